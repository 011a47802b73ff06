package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service queues package runs submitted through the API and executes
// them on the shared orchestrator.
type Service struct {
	orch  *Orchestrator
	jobs  *JobStore
	queue chan *Job
	log   *slog.Logger

	maxQueue int
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewService(orch *Orchestrator, jobTTL time.Duration, maxQueue int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if maxQueue < 1 {
		maxQueue = 16
	}
	return &Service{
		orch:     orch,
		jobs:     NewJobStore(jobTTL),
		queue:    make(chan *Job, maxQueue),
		log:      log,
		maxQueue: maxQueue,
	}
}

// Start launches the run consumer and the job store cleanup loop.
func (s *Service) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case job, ok := <-s.queue:
				if !ok {
					return
				}
				s.runJob(runCtx, job)
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the service and the orchestrator pool.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	close(s.queue)
	s.wg.Wait()
	s.orch.Close()
}

// Submit queues a new package run.
func (s *Service) Submit(job *Job) error {
	s.jobs.Put(job)
	select {
	case s.queue <- job:
		return nil
	default:
		job.SetStatus(JobFailed, "")
		job.AddError("job queue is full")
		return fmt.Errorf("job queue is full (%d)", s.maxQueue)
	}
}

// GetJob returns a job by ID.
func (s *Service) GetJob(id string) *Job {
	return s.jobs.Get(id)
}

// QueueDepth returns the current queue depth.
func (s *Service) QueueDepth() int {
	return len(s.queue)
}

func (s *Service) runJob(ctx context.Context, job *Job) {
	job.SetStatus(JobRunning, StageDiscovery)
	summary, err := s.orch.Run(ctx, job.Inputs)
	job.SetSummary(summary)
	if err != nil {
		job.AddError(err.Error())
		job.SetStatus(JobFailed, summary.PipelineMetadata.FailureStage)
		return
	}
	if summary.ProcessingStatus == StatusFailed {
		job.SetStatus(JobFailed, StageFinalization)
		return
	}
	job.SetStatus(JobCompleted, StageFinalization)
}
