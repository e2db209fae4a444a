// Package workerpool runs a fixed-size pool of goroutines against a
// shared task channel, supervised by a tomb.Tomb so the whole pool shuts
// down cleanly when any worker returns an error or the parent context is
// cancelled.
//
// Adapted from the teacher's internal/worker.go (package server there);
// unchanged in shape, only renamed to its own package since this module's
// internal/server now owns session handling rather than worker dispatch.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction is the unit of work a pool runs for each task.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool dispatches tasks pushed via AddTask to a fixed number of
// concurrent workers running the same WorkerFunction.
type WorkerPool struct {
	n     int
	tasks chan any
}

// New creates a pool sized for n concurrent workers.
func New(n int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     n,
	}
}

// AddTask enqueues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup keeps the pool full of active workers until t starts dying. Each
// worker that exits (including on error) is replaced immediately, so the
// configured concurrency is maintained for the life of the tomb.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting on error")
			return err
		}
	}
	return nil
}
