// Package workerpool runs a bounded set of goroutines that drain a
// task channel under a tomb.Tomb, so the pool and its caller shut down
// together.
//
// Adapted from saiputravu-Exchange/internal/worker.go's WorkerPool,
// which drove the teacher's TCP connection handlers; here the tasks
// are raw bus message payloads, decoded by the work function and
// handed to the matcher. Matching itself
// stays serialized per symbol inside Matcher, so fanning the decode
// and dispatch step out across workers is safe — concurrent
// HandleEvent calls for different symbols proceed independently, and
// calls for the same symbol serialize on that symbol's guard
// (spec.md §5).
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskBuffer = 256

// Task is one unit of work submitted to the pool.
type Task = []byte

// WorkFunc processes one task. An error return kills the owning tomb.
type WorkFunc func(t *tomb.Tomb, task Task) error

// Pool is a fixed-size set of workers draining a shared task channel.
type Pool struct {
	size  int
	tasks chan Task
	work  WorkFunc
}

// New returns a pool of size workers that will run work on each
// submitted task once Run starts them.
func New(size int, work WorkFunc) *Pool {
	return &Pool{
		size:  size,
		tasks: make(chan Task, defaultTaskBuffer),
		work:  work,
	}
}

// Submit enqueues a task for processing. It blocks if the queue is
// full.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

// Run starts the pool's workers under t, one goroutine each, running
// until t begins dying.
func (p *Pool) Run(t *tomb.Tomb) {
	log.Info().Int("workers", p.size).Msg("starting worker pool")
	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			return p.worker(t)
		})
	}
}

func (p *Pool) worker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting on error")
				return err
			}
		}
	}
}
