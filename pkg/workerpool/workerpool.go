package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/andrej220/hamagent/internal/lg"
	"golang.org/x/sync/errgroup"
)

var ErrPanic = errors.New("worker panicked")

type JobFunc[T any] func(ctx context.Context, payload T) error

type Job[T any] struct {
	Payload     T
	Fn          JobFunc[T]
	Ctx         context.Context
	CleanupFunc func()
}

// Pool runs long-lived jobs, one goroutine each. A job ends when its
// function returns; there is no retry. Jobs never cancel each other.
type Pool[T any] struct {
	group         errgroup.Group
	activeWorkers int32
	logger        lg.Logger
}

// NewPool caps concurrent jobs at maxWorkers. Zero or less means no cap,
// which is what perpetual workers need: a capped pool would block Submit
// forever once full.
func NewPool[T any](maxWorkers int, logger lg.Logger) *Pool[T] {
	if logger == nil {
		logger = lg.Discard
	}
	p := &Pool[T]{logger: logger}
	if maxWorkers > 0 {
		p.group.SetLimit(maxWorkers)
	}
	return p
}

// Submit starts job. It blocks while the pool is at its limit.
func (p *Pool[T]) Submit(job Job[T]) {
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}
	p.logger.Debug("job submitted", lg.Any("job", job.Payload))
	p.group.Go(func() error {
		return p.worker(job)
	})
}

func (p *Pool[T]) worker(job Job[T]) (err error) {
	active := atomic.AddInt32(&p.activeWorkers, 1)
	defer atomic.AddInt32(&p.activeWorkers, -1)
	defer func() {
		if job.CleanupFunc != nil {
			job.CleanupFunc()
		}
	}()

	logger := p.logger.With(lg.Any("job", job.Payload))
	logger.Debug("worker started", lg.Int32("workers", active))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			logger.Error("worker panicked", lg.Any("panic", r))
		}
	}()

	if err = job.Fn(job.Ctx, job.Payload); err != nil {
		logger.Error("worker failed", lg.Err(err))
		return err
	}
	logger.Debug("worker finished", lg.Int32("workers", atomic.LoadInt32(&p.activeWorkers)-1))
	return nil
}

// Wait blocks until every submitted job has returned and reports the
// first error any of them produced.
func (p *Pool[T]) Wait() error {
	return p.group.Wait()
}

func (p *Pool[T]) ActiveWorkers() int32 {
	return atomic.LoadInt32(&p.activeWorkers)
}
