package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"PowerPosition/internal/clock"
	"PowerPosition/internal/model"
)

// Work is invoked once per trigger instant. The trigger is in UTC.
type Work func(ctx context.Context, trigger time.Time) error

// ErrAlreadyRunning is returned by Start when the scheduler loop is already running.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Scheduler fires Work at the instants of a 5-field cron expression.
// Each run executes in its own goroutine so a slow or hung run never delays the
// next trigger, and a failed run is logged without stopping the loop.
type Scheduler struct {
	expr       string
	schedule   cron.Schedule
	clock      clock.Clock
	work       Work
	runOnStart bool
	log        zerolog.Logger

	running  atomic.Bool
	inflight sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunOnStart dispatches one run with the current time as soon as Start is called.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// New creates a Scheduler. A malformed expression yields an error wrapping
// model.ErrConfiguration.
func New(expr string, clk clock.Clock, work Work, log zerolog.Logger, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: parse schedule %q: %v", model.ErrConfiguration, expr, err)
	}
	if clk == nil {
		return nil, errors.New("scheduler: clock is required")
	}
	if work == nil {
		return nil, errors.New("scheduler: work is required")
	}

	s := &Scheduler{
		expr:     expr,
		schedule: schedule,
		clock:    clk,
		work:     work,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first trigger instant strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Start runs the scheduling loop until ctx is done and returns ctx.Err().
// In-flight runs receive the same ctx; Start does not wait for them.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.log.Info().Str("schedule", s.expr).Bool("run_on_start", s.runOnStart).Msg("Scheduler started")

	last := s.clock.Now().UTC()
	if s.runOnStart {
		s.dispatch(ctx, last, "initial")
	}

	for ctx.Err() == nil {
		now := s.clock.Now().UTC()
		from := now
		if from.Before(last) {
			// Never fire the same instant twice if the clock reads behind the last trigger.
			from = last
		}
		next := s.schedule.Next(from)
		if next.IsZero() {
			s.log.Error().Str("schedule", s.expr).Msg("Schedule has no future occurrence")
			<-ctx.Done()
			break
		}

		s.log.Info().Time("trigger", next).Msg("Next run scheduled")
		if err := s.clock.Sleep(ctx, next.Sub(now)); err != nil {
			break
		}

		s.dispatch(ctx, next, "scheduled")
		last = next
	}

	s.log.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// Wait blocks until every dispatched run has returned.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

func (s *Scheduler) dispatch(ctx context.Context, trigger time.Time, kind string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		log := s.log.With().Time("trigger", trigger).Str("kind", kind).Logger()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Run panicked")
			}
		}()

		log.Info().Msg("Run triggered")
		if err := s.work(ctx, trigger); err != nil {
			log.Error().Err(err).Msg("Run failed")
			return
		}
		log.Info().Msg("Run completed")
	}()
}
