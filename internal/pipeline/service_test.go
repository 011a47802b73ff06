package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func waitForJob(t *testing.T, svc *Service, id string, want JobStatus) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job := svc.GetJob(id)
		if job == nil {
			t.Fatalf("job %s not found", id)
		}
		snap := job.Snapshot()
		if snap.Status == want {
			return snap
		}
		if snap.Status == JobFailed && want != JobFailed {
			t.Fatalf("job failed: %v", snap.Errors)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return JobSnapshot{}
}

func TestServiceRunsSubmittedJob(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"personal_financial_statement.txt": samplePFS,
	})
	orch := newTestOrchestrator(t, DefaultConfig())
	svc := NewService(orch, time.Hour, 4, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job := NewJob([]string{dir})
	if err := svc.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForJob(t, svc, job.ID, JobCompleted)
	if snap.Stage != StageFinalization {
		t.Errorf("stage = %s, want %s", snap.Stage, StageFinalization)
	}
	summary := svc.GetJob(job.ID).Summary()
	if summary == nil {
		t.Fatal("completed job has no summary")
	}
	if summary.ProcessingStatus != StatusCompleted {
		t.Errorf("summary status = %s, want %s", summary.ProcessingStatus, StatusCompleted)
	}
}

func TestServiceJobFailsOnEmptyPackage(t *testing.T) {
	dir := writePackage(t, map[string]string{})
	orch := newTestOrchestrator(t, DefaultConfig())
	svc := NewService(orch, time.Hour, 4, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job := NewJob([]string{dir})
	if err := svc.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForJob(t, svc, job.ID, JobFailed)
	if len(snap.Errors) == 0 {
		t.Error("failed job has no errors")
	}
	summary := svc.GetJob(job.ID).Summary()
	if summary == nil {
		t.Fatal("failed job has no summary")
	}
	if summary.PipelineMetadata.FailureStage != StageDiscovery {
		t.Errorf("failure stage = %s, want %s", summary.PipelineMetadata.FailureStage, StageDiscovery)
	}
}

func TestServiceSubmitQueueFull(t *testing.T) {
	orch := newTestOrchestrator(t, DefaultConfig())
	svc := NewService(orch, time.Hour, 1, slog.Default())
	// Not started, so nothing drains the queue.

	first := NewJob([]string{"a"})
	if err := svc.Submit(first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second := NewJob([]string{"b"})
	if err := svc.Submit(second); err == nil {
		t.Fatal("second Submit should fail when the queue is full")
	}

	snap := second.Snapshot()
	if snap.Status != JobFailed {
		t.Errorf("status = %s, want %s", snap.Status, JobFailed)
	}
	if len(snap.Errors) == 0 {
		t.Error("rejected job has no errors")
	}
	if svc.QueueDepth() != 1 {
		t.Errorf("QueueDepth = %d, want 1", svc.QueueDepth())
	}
}
