// Package pomodoro drives the single pomodoro countdown. The store holds the
// slot; the Runner owns the timer that ends it.
package pomodoro

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sadopc/protocol/internal/store"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrTaskLocked  = errors.New("task is locked")
	ErrBadDuration = errors.New("pomodoro duration must be positive")
)

// Slot is the part of the store the runner drives.
type Slot interface {
	Task(id string) (store.Task, bool)
	StartPomodoro(taskID string, endTime time.Time, total time.Duration) bool
	StopPomodoro()
	ActivePomodoro() (store.ActivePomodoro, bool)
	ExpirePomodoro(taskID string, endTime time.Time) bool
}

// Runner schedules the end of the active countdown. Starting a new countdown
// or stopping cancels the pending one, which then never fires.
type Runner struct {
	slot  Slot
	clock clockwork.Clock
	log   zerolog.Logger

	// OnExpire, if set, is called after an expiry reached the store.
	OnExpire func(taskID string, completed bool)

	mu    sync.Mutex
	gen   uint64
	timer clockwork.Timer
}

// Option configures a Runner.
type Option func(*Runner)

func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// New creates a Runner over slot.
func New(slot Slot, opts ...Option) *Runner {
	r := &Runner{
		slot:  slot,
		clock: clockwork.NewRealClock(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a countdown for taskID using the task's own pomodoro length.
func (r *Runner) Start(taskID string) error {
	t, ok := r.slot.Task(taskID)
	if !ok {
		return fmt.Errorf("start pomodoro: %w: %s", ErrUnknownTask, taskID)
	}
	return r.StartFor(taskID, t.PomodoroDuration())
}

// StartFor begins a countdown of length d for taskID. A locked task cannot be
// started. Any countdown already running is abandoned without credit.
func (r *Runner) StartFor(taskID string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("start pomodoro: %w", ErrBadDuration)
	}
	t, ok := r.slot.Task(taskID)
	if !ok {
		return fmt.Errorf("start pomodoro: %w: %s", ErrUnknownTask, taskID)
	}
	if t.Locked {
		return fmt.Errorf("start pomodoro: %w: %s", ErrTaskLocked, taskID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
	end := r.clock.Now().Add(d)
	if !r.slot.StartPomodoro(taskID, end, d) {
		return fmt.Errorf("start pomodoro: %w: %s", ErrUnknownTask, taskID)
	}

	gen := r.gen
	r.timer = r.clock.AfterFunc(d, func() { r.expire(gen, taskID, end) })

	r.log.Info().Str("task", taskID).Dur("duration", d).Time("end", end).Msg("pomodoro started")
	return nil
}

// Stop abandons the running countdown, if any. The task is not completed.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
	if p, ok := r.slot.ActivePomodoro(); ok {
		r.log.Info().Str("task", p.TaskID).Msg("pomodoro stopped")
	}
	r.slot.StopPomodoro()
}

// Remaining returns the time left on the active countdown, 0 when idle.
func (r *Runner) Remaining() time.Duration {
	p, ok := r.slot.ActivePomodoro()
	if !ok {
		return 0
	}
	return p.Remaining(r.clock.Now())
}

// Running reports whether a countdown is active.
func (r *Runner) Running() bool {
	_, ok := r.slot.ActivePomodoro()
	return ok
}

func (r *Runner) cancelLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runner) expire(gen uint64, taskID string, end time.Time) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	// The store rejects a slot that a day reset already cleared.
	completed := r.slot.ExpirePomodoro(taskID, end)
	r.gen++
	r.mu.Unlock()

	r.log.Info().Str("task", taskID).Bool("completed", completed).Msg("pomodoro expired")

	// Called unlocked: the hook may start or stop the runner.
	if r.OnExpire != nil {
		r.OnExpire(taskID, completed)
	}
}
