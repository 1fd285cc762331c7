package pomodoro

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/protocol/internal/store"
)

var t0 = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T) (*Runner, *store.Store, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(t0)
	s := store.NewMemory(store.WithClock(fc))
	s.PerformReset("2026-02-10")
	return New(s, WithClock(fc)), s, fc
}

func waitTimers(t *testing.T, fc *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, n))
}

func completed(s *store.Store, id string) bool {
	task, _ := s.Task(id)
	return task.Completed
}

func TestStartUsesTaskDuration(t *testing.T) {
	r, s, _ := newTestRunner(t)

	require.NoError(t, r.Start("meditation"))

	p, ok := s.ActivePomodoro()
	require.True(t, ok)
	assert.Equal(t, "meditation", p.TaskID)
	assert.Equal(t, 20*time.Minute, p.Duration)
	assert.Equal(t, t0.Add(20*time.Minute), p.EndTime)
	assert.Equal(t, 20*time.Minute, r.Remaining())
	assert.True(t, r.Running())
}

func TestStartErrors(t *testing.T) {
	r, s, _ := newTestRunner(t)

	require.ErrorIs(t, r.Start("nope"), ErrUnknownTask)
	require.ErrorIs(t, r.StartFor("walk", 0), ErrBadDuration)

	s.SetEnforceTaskOrder(true)
	require.ErrorIs(t, r.Start("study"), ErrTaskLocked)
	require.NoError(t, r.Start("cold-exposure"))
}

func TestExpiryCompletesTask(t *testing.T) {
	r, s, fc := newTestRunner(t)
	s.SetEnforcePomodoro(true)

	var calls atomic.Int32
	r.OnExpire = func(taskID string, done bool) {
		assert.Equal(t, "walk", taskID)
		assert.True(t, done)
		calls.Add(1)
	}

	require.NoError(t, r.StartFor("walk", time.Minute))
	waitTimers(t, fc, 1)

	fc.Advance(30 * time.Second)
	assert.False(t, completed(s, "walk"))
	assert.Equal(t, 30*time.Second, r.Remaining())

	fc.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, completed(s, "walk"))
	assert.False(t, r.Running())
	assert.Equal(t, time.Duration(0), r.Remaining())
}

func TestRestartCancelsPrevious(t *testing.T) {
	r, s, fc := newTestRunner(t)

	var calls atomic.Int32
	r.OnExpire = func(string, bool) { calls.Add(1) }

	require.NoError(t, r.StartFor("walk", time.Minute))
	require.NoError(t, r.StartFor("reading", 2*time.Minute))
	waitTimers(t, fc, 1)

	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, completed(s, "walk"), "abandoned countdown earns nothing")
	assert.Zero(t, calls.Load())

	fc.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, completed(s, "reading"))
	assert.False(t, completed(s, "walk"))
}

func TestStopPreventsExpiry(t *testing.T) {
	r, s, fc := newTestRunner(t)

	var calls atomic.Int32
	r.OnExpire = func(string, bool) { calls.Add(1) }

	require.NoError(t, r.StartFor("walk", time.Minute))
	r.Stop()
	assert.False(t, r.Running())

	fc.Advance(2 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.False(t, completed(s, "walk"))

	// Stopping while idle is harmless.
	r.Stop()
}

func TestExpiryAfterResetIsNoop(t *testing.T) {
	r, s, fc := newTestRunner(t)

	done := make(chan bool, 1)
	r.OnExpire = func(_ string, c bool) { done <- c }

	require.NoError(t, r.StartFor("walk", time.Minute))
	waitTimers(t, fc, 1)
	s.PerformReset("2026-02-11")

	fc.Advance(time.Minute)
	select {
	case c := <-done:
		assert.False(t, c)
	case <-time.After(time.Second):
		t.Fatal("expiry callback not delivered")
	}
	assert.False(t, completed(s, "walk"))
}

func TestExpiryOnCompletedTaskKeepsIt(t *testing.T) {
	r, s, fc := newTestRunner(t)
	require.True(t, s.ToggleTask("walk"))

	done := make(chan bool, 1)
	r.OnExpire = func(_ string, c bool) { done <- c }

	require.NoError(t, r.StartFor("walk", time.Minute))
	waitTimers(t, fc, 1)
	fc.Advance(time.Minute)

	select {
	case c := <-done:
		assert.False(t, c)
	case <-time.After(time.Second):
		t.Fatal("expiry callback not delivered")
	}
	assert.True(t, completed(s, "walk"))
	assert.False(t, r.Running())
}

// gatedSlot blocks inside ExpirePomodoro until released.
type gatedSlot struct {
	*store.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSlot) ExpirePomodoro(taskID string, end time.Time) bool {
	close(g.entered)
	<-g.release
	return g.Store.ExpirePomodoro(taskID, end)
}

func TestStopWaitsForExpiryInFlight(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	s := store.NewMemory(store.WithClock(fc))
	s.PerformReset("2026-02-10")
	g := &gatedSlot{Store: s, entered: make(chan struct{}), release: make(chan struct{})}
	r := New(g, WithClock(fc))

	var calls atomic.Int32
	r.OnExpire = func(string, bool) { calls.Add(1) }

	require.NoError(t, r.StartFor("walk", time.Minute))
	waitTimers(t, fc, 1)
	fc.Advance(time.Minute)

	select {
	case <-g.entered:
	case <-time.After(time.Second):
		t.Fatal("expiry never reached the slot")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the expiry was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, completed(s, "walk"))
	assert.False(t, r.Running())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOnExpireMayStopRunner(t *testing.T) {
	r, s, fc := newTestRunner(t)

	done := make(chan struct{})
	r.OnExpire = func(string, bool) {
		r.Stop()
		close(done)
	}

	require.NoError(t, r.StartFor("walk", time.Minute))
	waitTimers(t, fc, 1)
	fc.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner deadlocked in the expiry hook")
	}
	assert.True(t, completed(s, "walk"))
}
