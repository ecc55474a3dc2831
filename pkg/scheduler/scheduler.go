// Package scheduler runs one independent execute, report, sleep loop per
// configured command.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andrej220/hamagent/internal/lg"
	"github.com/andrej220/hamagent/pkg/config"
	"github.com/andrej220/hamagent/pkg/executor"
	"github.com/andrej220/hamagent/pkg/reporter"
	dm "github.com/andrej220/hamagent/pkg/shared-models"
	"github.com/andrej220/hamagent/pkg/workerpool"
)

var ErrPanic = errors.New("cycle panicked")

// Recorder observes loop lifecycles and finished cycles.
type Recorder interface {
	LoopStarted(command string)
	LoopStopped(command string)
	ObserveCycle(o Outcome)
}

// ReporterFactory returns the reporter a single loop delivers through.
type ReporterFactory func(spec config.CommandSpec) reporter.Reporter

// SleepFunc waits for d or until ctx is done. It returns false when ctx
// ended the wait.
type SleepFunc func(ctx context.Context, d time.Duration) bool

type Option func(*Scheduler)

func WithLogger(l lg.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithReporterFactory gives each loop its own reporter, for wrappers that
// hold state such as circuit breakers.
func WithReporterFactory(f ReporterFactory) Option {
	return func(s *Scheduler) { s.reporterFor = f }
}

func WithSleep(f SleepFunc) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.sleep = f
		}
	}
}

type Scheduler struct {
	specs       []config.CommandSpec
	deviceID    string
	exec        executor.Executor
	rep         reporter.Reporter
	reporterFor ReporterFactory
	logger      lg.Logger
	recorder    Recorder
	sleep       SleepFunc
	pool        atomic.Pointer[workerpool.Pool[config.CommandSpec]]
}

func New(specs []config.CommandSpec, deviceID string, exec executor.Executor, rep reporter.Reporter, opts ...Option) *Scheduler {
	s := &Scheduler{
		specs:    specs,
		deviceID: deviceID,
		exec:     exec,
		rep:      rep,
		logger:   lg.Discard,
		recorder: noopRecorder{},
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts one loop per command and blocks until ctx is cancelled and
// every loop has returned. Cancellation is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.specs) == 0 {
		s.logger.Warn("no commands configured, idling")
		<-ctx.Done()
		return nil
	}

	pool := workerpool.NewPool[config.CommandSpec](0, s.logger)
	s.pool.Store(pool)
	for _, spec := range s.specs {
		pool.Submit(workerpool.Job[config.CommandSpec]{
			Payload: spec,
			Fn:      s.loop,
			Ctx:     ctx,
		})
	}
	s.logger.Info("scheduler started", lg.Int("loops", len(s.specs)))

	err := pool.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

// ActiveLoops is the number of loops currently running.
func (s *Scheduler) ActiveLoops() int32 {
	if p := s.pool.Load(); p != nil {
		return p.ActiveWorkers()
	}
	return 0
}

func (s *Scheduler) loop(ctx context.Context, spec config.CommandSpec) error {
	rep := s.rep
	if s.reporterFor != nil {
		rep = s.reporterFor(spec)
	}
	logger := s.logger.With(lg.String("command", spec.Command))

	s.recorder.LoopStarted(spec.Command)
	defer s.recorder.LoopStopped(spec.Command)
	logger.Info("command loop started", lg.Duration("interval", spec.Interval))

	for {
		out := s.cycle(ctx, spec, rep)
		if ctx.Err() != nil {
			// shutdown interrupted the cycle
			logger.Info("command loop stopped")
			return nil
		}
		s.recorder.ObserveCycle(out)
		logOutcome(logger, out)

		if !s.sleep(ctx, spec.Interval) {
			logger.Info("command loop stopped")
			return nil
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context, spec config.CommandSpec, rep reporter.Reporter) (out Outcome) {
	out = Outcome{Command: spec.Command, Stage: StageExecute, Started: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		out.Duration = time.Since(out.Started)
	}()

	execCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}
	output, err := s.exec.Run(execCtx, spec.Command)
	if err != nil {
		out.Err = err
		return out
	}

	out.Stage = StageDeliver
	out.Record = dm.NewResultRecord(spec.Command, output, s.deviceID)
	if err := rep.Report(ctx, out.Record); err != nil {
		out.Err = err
		return out
	}
	out.Stage = StageDone
	return out
}

func logOutcome(logger lg.Logger, out Outcome) {
	if !out.Failed() {
		logger.Info("command result reported",
			lg.Int("output_bytes", len(out.Record.Output)),
			lg.Duration("duration", out.Duration))
		return
	}
	if out.Stage == StageExecute {
		logger.Error("command execution failed", lg.Err(out.Err))
		return
	}
	var se *reporter.StatusError
	if errors.As(out.Err, &se) {
		logger.Error("result delivery failed", lg.Int("status", se.StatusCode), lg.Err(out.Err))
		return
	}
	logger.Error("result delivery failed", lg.Err(out.Err))
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type noopRecorder struct{}

func (noopRecorder) LoopStarted(string)   {}
func (noopRecorder) LoopStopped(string)   {}
func (noopRecorder) ObserveCycle(Outcome) {}
