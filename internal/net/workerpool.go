package net

import (
	tomb "gopkg.in/tomb.v2"
)

// WorkerFunction processes one queued task. A non-nil return is fatal
// to the whole pool, mirroring tomb.Tomb's own convention.
type WorkerFunction func(t *tomb.Tomb, task any) error

// WorkerPool runs a fixed number of goroutines pulling tasks off a
// shared channel, supervised by the caller's tomb. This is the
// WorkerPool the server's accept loop hands connections to; it lives
// here rather than in a standalone utils package because this is its
// only caller.
type WorkerPool struct {
	size  int
	tasks chan any
}

// NewWorkerPool returns a pool with room to queue a handful of tasks
// ahead of the workers without blocking the accept loop.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		size:  size,
		tasks: make(chan any, size*4),
	}
}

// Setup spawns size goroutines under t, each repeatedly pulling a task
// and running fn until t starts dying. It returns once all workers
// have been registered with t; it does not block on them finishing.
func (p *WorkerPool) Setup(t *tomb.Tomb, fn WorkerFunction) {
	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			for {
				select {
				case <-t.Dying():
					return nil
				case task := <-p.tasks:
					if err := fn(t, task); err != nil {
						return err
					}
				}
			}
		})
	}
}

// AddTask enqueues a task for the next free worker. Callers on the hot
// accept-loop path should not block indefinitely here; the pool's
// buffer is sized so a burst of connections queues rather than stalls.
func (p *WorkerPool) AddTask(task any) {
	p.tasks <- task
}
