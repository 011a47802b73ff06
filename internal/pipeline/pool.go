package pipeline

import "sync"

// pool is a fixed-size worker pool living for the orchestrator's
// lifetime. Stages submit per-document closures and wait on their own
// WaitGroup, so one pool serves every parallel stage.
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{tasks: make(chan func())}
	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *pool) submit(task func()) {
	p.tasks <- task
}

// close drains the pool. Safe to call more than once.
func (p *pool) close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
