package service

import (
	"context"
	"log/slog"
	"sync"
)

// fanoutTask is one unit of work submitted to a fanoutPool
type fanoutTask func(ctx context.Context) error

// fanoutPool runs tasks on a fixed number of goroutines. It lives for a single
// batch: Start, Submit every task, then Wait.
type fanoutPool struct {
	workerCount int
	taskQueue   chan fanoutTask
	wg          sync.WaitGroup
	ctx         context.Context
	logger      *slog.Logger
	closed      bool
	closeMux    sync.Mutex
}

func newFanoutPool(ctx context.Context, workerCount int, logger *slog.Logger) *fanoutPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &fanoutPool{
		workerCount: workerCount,
		taskQueue:   make(chan fanoutTask, workerCount*2),
		ctx:         ctx,
		logger:      logger,
	}
}

func (p *fanoutPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task. It returns false if the batch context is done and the
// task was dropped.
func (p *fanoutPool) Submit(task fanoutTask) bool {
	select {
	case p.taskQueue <- task:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Wait closes the queue and blocks until every accepted task has run.
func (p *fanoutPool) Wait() {
	p.closeMux.Lock()
	if !p.closed {
		close(p.taskQueue)
		p.closed = true
	}
	p.closeMux.Unlock()

	p.wg.Wait()
}

func (p *fanoutPool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		if err := task(p.ctx); err != nil {
			p.logger.Warn("fanout_task_failed", "worker", id, "error", err)
		}
	}
}
