// Package scheduler fires the daily reset at each 04:00 boundary.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sadopc/protocol/internal/clock"
)

// minDelay keeps the one-shot start time in the future by the time gocron
// validates it.
const minDelay = 10 * time.Millisecond

// Resetter receives the day id at startup and at every boundary.
type Resetter interface {
	PerformReset(newID clock.DayID)
}

// Scheduler arms one gocron one-shot job per boundary and re-arms it after
// each fire, so the delay is always recomputed from the current time.
type Scheduler struct {
	scheduler gocron.Scheduler
	resetter  Resetter
	clock     clockwork.Clock
	log       zerolog.Logger
	delay     func(time.Time) time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	job     gocron.Job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source for day ids, delays and gocron itself.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithDelayFunc overrides clock.UntilNextBoundary.
func WithDelayFunc(f func(now time.Time) time.Duration) Option {
	return func(s *Scheduler) { s.delay = f }
}

// New creates a stopped scheduler delivering resets to r.
func New(r Resetter, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		resetter: r,
		clock:    clockwork.NewRealClock(),
		log:      zerolog.Nop(),
		delay:    clock.UntilNextBoundary,
	}
	for _, opt := range opts {
		opt(s)
	}

	gs, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(gocronLogger{s.log}),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.scheduler = gs
	return s, nil
}

// Start delivers the reset for the current day synchronously, which catches up
// any boundary missed while the process was not running, then arms the job
// for the next boundary.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	now := s.clock.Now()
	s.resetter.PerformReset(clock.CurrentDayID(now))

	s.scheduler.Start()
	if err := s.arm(); err != nil {
		return err
	}
	s.log.Info().Msg("reset scheduler started")
	return nil
}

// Stop cancels the outstanding job. No reset is delivered after Stop returns.
// Safe to call more than once.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	job := s.job
	s.job = nil
	s.mu.Unlock()

	if job != nil {
		_ = s.scheduler.RemoveJob(job.ID())
	}
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop gocron scheduler: %w", err)
	}
	s.log.Info().Msg("reset scheduler stopped")
	return nil
}

// NextRun returns when the armed job fires.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return time.Time{}, false
	}
	t, err := job.NextRun()
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func (s *Scheduler) arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	now := s.clock.Now()
	d := s.delay(now)
	if d < minDelay {
		d = minDelay
	}
	at := now.Add(d)

	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(s.fire),
		gocron.WithName("daily-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to arm reset job: %w", err)
	}
	s.job = job
	s.log.Debug().Time("at", at).Dur("in", d).Msg("reset armed")
	return nil
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	day := clock.CurrentDayID(s.clock.Now())
	s.log.Info().Str("day", day.String()).Msg("reset boundary reached")
	s.resetter.PerformReset(day)

	if err := s.arm(); err != nil {
		s.log.Error().Err(err).Msg("re-arm reset job")
	}
}

// gocronLogger routes gocron's key/value logging into zerolog.
type gocronLogger struct {
	log zerolog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.log.Debug().Fields(args).Msg(msg) }
func (l gocronLogger) Error(msg string, args ...any) { l.log.Error().Fields(args).Msg(msg) }
func (l gocronLogger) Info(msg string, args ...any)  { l.log.Info().Fields(args).Msg(msg) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.log.Warn().Fields(args).Msg(msg) }
