package enrich

import (
	"context"
	"sync"

	"github.com/fwojciec/medprice"
)

// Default executor sizing.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Executor runs tasks on a fixed set of goroutines fed by a bounded queue.
// Tasks run with the executor's context, never the submitter's.
type Executor struct {
	// ErrorFunc receives the errors of failed tasks. May be nil.
	ErrorFunc func(error)

	ctx   context.Context
	queue chan Task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewExecutor starts workers goroutines serving a queue of queueSize tasks.
// Tasks receive ctx, which should outlive any single request.
func NewExecutor(ctx context.Context, workers, queueSize int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	e := &Executor{
		ctx:   ctx,
		queue: make(chan Task, queueSize),
	}

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.loop()
	}
	return e
}

func (e *Executor) loop() {
	defer e.wg.Done()
	for task := range e.queue {
		if err := task(e.ctx); err != nil && e.ErrorFunc != nil {
			e.ErrorFunc(err)
		}
	}
}

// Submit enqueues task without blocking.
// Returns EUNAVAILABLE if the queue is full or the executor is closed.
func (e *Executor) Submit(task Task) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return medprice.Errorf(medprice.EUNAVAILABLE, "executor closed")
	}

	select {
	case e.queue <- task:
		return nil
	default:
		return medprice.Errorf(medprice.EUNAVAILABLE, "enrichment queue full")
	}
}

// Close stops accepting tasks and waits for queued and running tasks to finish.
func (e *Executor) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}
