package store

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/protocol/internal/clock"
	"github.com/sadopc/protocol/internal/kv"
)

var t0 = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(t0)
	return NewMemory(WithClock(fc)), fc
}

func newPersistentStore(t *testing.T) (*Store, kv.Channel, *clockwork.FakeClock) {
	t.Helper()
	ch, err := kv.NewMemorySQLite()
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })

	fc := clockwork.NewFakeClockAt(t0)
	return New(context.Background(), ch, WithClock(fc)), ch, fc
}

// openDay puts s into day with the given streak, as if it had been running.
func openDay(s *Store, day clock.DayID, streak int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastResetDay = day
	s.state.Streak = streak
}

func completeBuiltins(t *testing.T, s *Store, n int) {
	t.Helper()
	for i, d := range Builtins() {
		if i >= n {
			break
		}
		require.True(t, s.ToggleTask(d.ID), "toggle %s", d.ID)
	}
}

func builtinIDs() []string {
	var ids []string
	for _, d := range Builtins() {
		ids = append(ids, d.ID)
	}
	return ids
}

// ============================================================
// Initial state
// ============================================================

func TestInitialState(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, clock.NoDay, s.Day())
	assert.Equal(t, 0, s.Streak())
	assert.Len(t, s.Tasks(), 8)
	for _, task := range s.Tasks() {
		assert.False(t, task.Completed)
		assert.Equal(t, KindBuiltin, task.Kind)
	}
	assert.Empty(t, s.LockedTaskIDs())
	assert.Empty(t, s.DayRecords())
	assert.Equal(t, 0, s.ProgressPercent())
}

func TestCatalogOrderAndShape(t *testing.T) {
	defs := Builtins()
	require.Len(t, defs, 8)

	seen := map[string]bool{}
	for _, d := range defs {
		assert.NotEmpty(t, d.ID)
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		assert.True(t, d.Category.Valid(), "category of %s", d.ID)
		assert.Positive(t, d.PomodoroMinutes)
	}

	// Builtins returns a copy.
	defs[0].Label = "mutated"
	assert.NotEqual(t, "mutated", Builtins()[0].Label)
}

// ============================================================
// Reset transition
// ============================================================

func TestResetFirstRun(t *testing.T) {
	s, _ := newTestStore(t)

	s.PerformReset("2026-02-10")

	assert.Equal(t, clock.DayID("2026-02-10"), s.Day())
	assert.Equal(t, 0, s.Streak())
	assert.Empty(t, s.DayRecords(), "first run must not archive")
}

func TestResetCompleteDayIncrementsStreak(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 3)
	completeBuiltins(t, s, 8)

	s.PerformReset("2026-02-10")

	rec, ok := s.DayHistory("2026-02-09")
	require.True(t, ok)
	assert.True(t, rec.Complete)
	assert.Equal(t, 8, rec.TasksCompleted)
	assert.Equal(t, 8, rec.TotalTasks)

	assert.Equal(t, 4, s.Streak())
	assert.Equal(t, clock.DayID("2026-02-10"), s.Day())
	for _, task := range s.Tasks() {
		assert.False(t, task.Completed, "%s should be reset", task.ID)
	}
	assert.Len(t, s.DayRecords(), 1)
}

func TestResetIncompleteDayResetsStreak(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 3)
	completeBuiltins(t, s, 6)

	s.PerformReset("2026-02-10")

	rec, ok := s.DayHistory("2026-02-09")
	require.True(t, ok)
	assert.False(t, rec.Complete)
	assert.Equal(t, 6, rec.TasksCompleted)
	assert.Equal(t, 8, rec.TotalTasks)
	assert.Equal(t, 0, s.Streak())
}

func TestResetIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 3)
	completeBuiltins(t, s, 8)

	s.PerformReset("2026-02-10")
	first := s.Snapshot()

	s.PerformReset("2026-02-10")
	s.PerformReset("2026-02-10")
	second := s.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, 4, s.Streak())
	assert.Len(t, s.DayRecords(), 1)
}

func TestResetIncompleteCustomTaskBreaksStreak(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 5)
	_, err := s.AddCustomTask(NewCustomTask{Label: "Cold call", Category: CategoryCognitive})
	require.NoError(t, err)
	completeBuiltins(t, s, 8)

	assert.False(t, s.DayComplete())
	s.PerformReset("2026-02-10")

	rec, _ := s.DayHistory("2026-02-09")
	assert.False(t, rec.Complete)
	assert.Equal(t, 8, rec.TasksCompleted)
	assert.Equal(t, 9, rec.TotalTasks)
	assert.Equal(t, 0, s.Streak())
}

func TestResetCompleteWithCustomTasks(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 1)
	c, err := s.AddCustomTask(NewCustomTask{Label: "Stretch", Category: CategoryPhysical})
	require.NoError(t, err)
	completeBuiltins(t, s, 8)
	require.True(t, s.ToggleCustomTask(c.ID))

	assert.True(t, s.DayComplete())
	s.PerformReset("2026-02-10")

	assert.Equal(t, 2, s.Streak())
	task, ok := s.Task(c.ID)
	require.True(t, ok)
	assert.False(t, task.Completed, "custom completion resets too")
}

func TestResetAcrossSkippedDaysResetsStreak(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-06", 7)
	completeBuiltins(t, s, 8)

	// Process was closed from the 6th until the 10th.
	s.PerformReset("2026-02-10")

	rec, ok := s.DayHistory("2026-02-06")
	require.True(t, ok)
	assert.True(t, rec.Complete)
	assert.Equal(t, 0, s.Streak())

	_, ok = s.DayHistory("2026-02-07")
	assert.False(t, ok, "skipped days are not archived retroactively")
}

func TestResetIgnoresEarlierAndMalformedDays(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-10", 2)
	completeBuiltins(t, s, 3)

	s.PerformReset("2026-02-09")
	s.PerformReset("not-a-day")
	s.PerformReset(clock.NoDay)

	assert.Equal(t, clock.DayID("2026-02-10"), s.Day())
	assert.Equal(t, 2, s.Streak())
	done, _ := s.Counts()
	assert.Equal(t, 3, done)
	assert.Empty(t, s.DayRecords())
}

func TestResetArchivesIntentMoodAndFailuresOfClosingDay(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	require.NoError(t, s.SetIntent("  ship it  "))
	require.NoError(t, s.SetMood(4))
	s.TriggerFailure()
	s.TriggerFailure()

	fc.Advance(20 * time.Hour) // 2026-02-11 05:00
	s.PerformReset(clock.CurrentDayID(fc.Now()))
	require.NoError(t, s.SetIntent("new day"))
	s.TriggerFailure()

	rec, ok := s.DayHistory("2026-02-10")
	require.True(t, ok)
	assert.Equal(t, "ship it", rec.Intent)
	assert.Equal(t, 4, rec.Mood)
	assert.Equal(t, 2, rec.FailureCount)

	live, ok := s.DayHistory("2026-02-11")
	require.True(t, ok)
	assert.Equal(t, "new day", live.Intent)
	assert.Equal(t, 1, live.FailureCount)
	assert.Len(t, s.Failures(), 3)
}

func TestResetClearsPomodoroAndProtocolStart(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	require.True(t, s.InitiateProtocol())
	require.True(t, s.StartPomodoro("training", fc.Now().Add(time.Hour), time.Hour))

	s.PerformReset("2026-02-11")

	_, ok := s.ActivePomodoro()
	assert.False(t, ok)
	_, ok = s.ProtocolStarted()
	assert.False(t, ok)
}

func TestArchiveNeverOverwritten(t *testing.T) {
	s, _ := newTestStore(t)
	openDay(s, "2026-02-09", 0)
	s.mu.Lock()
	s.state.Records["2026-02-09"] = DayRecord{Day: "2026-02-09", Complete: true, TasksCompleted: 8, TotalTasks: 8}
	s.mu.Unlock()

	s.PerformReset("2026-02-10")

	rec, _ := s.DayHistory("2026-02-09")
	assert.True(t, rec.Complete)
	assert.Equal(t, 8, rec.TasksCompleted)
}

func TestStreakAcrossSeveralDays(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-01")

	days := []clock.DayID{"2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05"}
	for i, day := range days {
		completeBuiltins(t, s, 8)
		s.PerformReset(day)
		// Redundant fires never double count.
		s.PerformReset(day)
		assert.Equal(t, i+1, s.Streak())
	}

	completeBuiltins(t, s, 7)
	s.PerformReset("2026-02-06")
	assert.Equal(t, 0, s.Streak())
	assert.Len(t, s.DayRecords(), 5)
}

// ============================================================
// Task ordering and enforcement
// ============================================================

func TestLockedTaskIDsDisabled(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	completeBuiltins(t, s, 3)

	assert.Empty(t, s.LockedTaskIDs())
}

func TestLockedTaskIDsScenario(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	completeBuiltins(t, s, 3)
	s.SetEnforceTaskOrder(true)

	ids := builtinIDs()
	assert.Equal(t, ids[4:], s.LockedTaskIDs())
	assert.False(t, s.IsLocked(ids[3]), "first incomplete task stays unlocked")
	for _, id := range ids[:3] {
		assert.False(t, s.IsLocked(id))
	}
}

func TestLockedTaskIDsIsSuffix(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	c, err := s.AddCustomTask(NewCustomTask{Label: "Extra"})
	require.NoError(t, err)

	// Complete a later task before enforcement, then enable it.
	ids := builtinIDs()
	require.True(t, s.ToggleTask(ids[0]))
	require.True(t, s.ToggleTask(ids[5]))
	s.SetEnforceTaskOrder(true)

	want := append(append([]string{}, ids[2:]...), c.ID)
	assert.Equal(t, want, s.LockedTaskIDs())

	// A locked task cannot be toggled, even to un-complete it.
	assert.False(t, s.ToggleTask(ids[5]))
	assert.False(t, s.ToggleCustomTask(c.ID))
	task, _ := s.Task(ids[5])
	assert.True(t, task.Completed)
	assert.True(t, task.Locked)
}

func TestLockedTaskIDsAllCompleteIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	s.SetEnforceTaskOrder(true)

	for _, id := range builtinIDs() {
		require.True(t, s.ToggleTask(id))
	}
	assert.Empty(t, s.LockedTaskIDs())
	assert.True(t, s.DayComplete())
}

func TestToggleUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	assert.False(t, s.ToggleTask("nope"))
	assert.False(t, s.ToggleCustomTask("nope"))
	assert.False(t, s.Toggle("nope"))
}

func TestToggleFlipsBothWays(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")

	require.True(t, s.Toggle("walk"))
	task, _ := s.Task("walk")
	assert.True(t, task.Completed)

	require.True(t, s.Toggle("walk"))
	task, _ = s.Task("walk")
	assert.False(t, task.Completed)
}

func TestToggleConcurrent(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	c, err := s.AddCustomTask(NewCustomTask{Label: "Journal"})
	require.NoError(t, err)

	const n = 50
	var flips atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, id := range []string{"walk", c.ID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if s.Toggle(id) {
					flips.Add(1)
				}
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(2*n), flips.Load())
	walk, _ := s.Task("walk")
	custom, _ := s.Task(c.ID)
	assert.False(t, walk.Completed, "an even number of flips ends where it started")
	assert.False(t, custom.Completed)
}

func TestToggleRacingRemoveLeavesNoOrphan(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")
	c, err := s.AddCustomTask(NewCustomTask{Label: "Journal"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle(c.ID)
		}()
	}
	require.True(t, s.RemoveCustomTask(c.ID))
	wg.Wait()

	_, ok := s.Task(c.ID)
	assert.False(t, ok)
	assert.NotContains(t, s.state.CustomCompletions, c.ID)
	assert.Len(t, s.Tasks(), len(Builtins()))
	assert.False(t, s.Toggle(c.ID))
}

func TestEnforcePomodoro(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	s.SetEnforcePomodoro(true)

	assert.False(t, s.ToggleTask("reading"), "no pomodoro running")

	require.True(t, s.StartPomodoro("reading", fc.Now().Add(30*time.Minute), 30*time.Minute))
	assert.False(t, s.ToggleTask("walk"), "pomodoro bound to another task")
	assert.True(t, s.ToggleTask("reading"))

	// Un-completing is never blocked by the pomodoro rule.
	s.StopPomodoro()
	assert.True(t, s.ToggleTask("reading"))
	task, _ := s.Task("reading")
	assert.False(t, task.Completed)
}

func TestEnforcementFlagsIndependent(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetEnforceTaskOrder(true)
	assert.Equal(t, Settings{EnforceTaskOrder: true}, s.Settings())
	s.SetEnforcePomodoro(true)
	s.SetEnforceTaskOrder(false)
	assert.Equal(t, Settings{EnforcePomodoro: true}, s.Settings())
}

func TestProgressPercent(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")

	assert.Equal(t, 0, s.ProgressPercent())
	completeBuiltins(t, s, 1)
	assert.Equal(t, 13, s.ProgressPercent()) // 12.5 rounds up

	_, err := s.AddCustomTask(NewCustomTask{Label: "ninth"})
	require.NoError(t, err)
	// 1 of 9
	assert.Equal(t, 11, s.ProgressPercent())

	assert.Equal(t, 0, progressPercent(0, 0))
	assert.Equal(t, 100, progressPercent(9, 9))
	assert.Equal(t, 67, progressPercent(2, 3))
}

// ============================================================
// Custom tasks
// ============================================================

func TestAddCustomTask(t *testing.T) {
	s, _ := newTestStore(t)

	c, err := s.AddCustomTask(NewCustomTask{Label: "  Language drills ", Category: CategoryIntellectual})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Language drills", c.Label)
	assert.Equal(t, defaultCustomPomodoroMinutes, c.PomodoroMinutes)
	assert.Equal(t, t0, c.CreatedAt)

	tasks := s.Tasks()
	require.Len(t, tasks, 9)
	assert.Equal(t, c.ID, tasks[8].ID)
	assert.Equal(t, KindCustom, tasks[8].Kind)

	c2, err := s.AddCustomTask(NewCustomTask{Label: "Second"})
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, c2.ID)
	assert.Equal(t, c2.ID, s.Tasks()[9].ID, "creation order")
}

func TestAddCustomTaskValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddCustomTask(NewCustomTask{Label: "   "})
	require.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.AddCustomTask(NewCustomTask{Label: "x", Category: "spiritual"})
	require.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.AddCustomTask(NewCustomTask{Label: "x", PomodoroMinutes: -1})
	require.ErrorIs(t, err, ErrInvalidTask)

	assert.Empty(t, s.CustomTasks())
}

func TestRemoveCustomTaskPrunesCompletion(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	c, err := s.AddCustomTask(NewCustomTask{Label: "Temp"})
	require.NoError(t, err)
	require.True(t, s.ToggleCustomTask(c.ID))
	require.True(t, s.StartPomodoro(c.ID, fc.Now().Add(time.Minute), time.Minute))

	require.True(t, s.RemoveCustomTask(c.ID))
	assert.False(t, s.RemoveCustomTask(c.ID))

	s.mu.Lock()
	_, exists := s.state.CustomCompletions[c.ID]
	s.mu.Unlock()
	assert.False(t, exists)
	_, active := s.ActivePomodoro()
	assert.False(t, active)
	_, total := s.Counts()
	assert.Equal(t, 8, total)
}

// ============================================================
// Pomodoro slot
// ============================================================

func TestStartPomodoroOverwrites(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	end1 := fc.Now().Add(20 * time.Minute)
	require.True(t, s.StartPomodoro("meditation", end1, 20*time.Minute))
	end2 := fc.Now().Add(30 * time.Minute)
	require.True(t, s.StartPomodoro("reading", end2, 30*time.Minute))

	p, ok := s.ActivePomodoro()
	require.True(t, ok)
	assert.Equal(t, "reading", p.TaskID)

	// The abandoned countdown earns nothing.
	assert.False(t, s.ExpirePomodoro("meditation", end1))
	task, _ := s.Task("meditation")
	assert.False(t, task.Completed)

	assert.False(t, s.StartPomodoro("ghost", end2, time.Minute))
}

func TestExpirePomodoroCompletesUnderEnforcement(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	s.SetEnforcePomodoro(true)

	end := fc.Now().Add(25 * time.Minute)
	require.True(t, s.StartPomodoro("study", end, 25*time.Minute))
	assert.True(t, s.ExpirePomodoro("study", end))

	task, _ := s.Task("study")
	assert.True(t, task.Completed)
	_, ok := s.ActivePomodoro()
	assert.False(t, ok, "slot cleared after completion")
}

func TestExpirePomodoroAlreadyCompleteKeepsCompletion(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	require.True(t, s.ToggleTask("walk"))

	end := fc.Now().Add(time.Minute)
	require.True(t, s.StartPomodoro("walk", end, time.Minute))
	assert.False(t, s.ExpirePomodoro("walk", end))

	task, _ := s.Task("walk")
	assert.True(t, task.Completed)
	_, ok := s.ActivePomodoro()
	assert.False(t, ok)
}

func TestStopPomodoroGivesNoCredit(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	end := fc.Now().Add(time.Minute)
	require.True(t, s.StartPomodoro("walk", end, time.Minute))
	s.StopPomodoro()

	assert.False(t, s.ExpirePomodoro("walk", end))
	task, _ := s.Task("walk")
	assert.False(t, task.Completed)
}

func TestExpireAfterResetIsNoop(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	end := fc.Now().Add(time.Minute)
	require.True(t, s.StartPomodoro("walk", end, time.Minute))
	s.PerformReset("2026-02-11")

	assert.False(t, s.ExpirePomodoro("walk", end))
	task, _ := s.Task("walk")
	assert.False(t, task.Completed)
}

// ============================================================
// Failure signal
// ============================================================

func TestFailureWindow(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")

	ev := s.TriggerFailure()
	assert.Equal(t, t0, ev.At)
	assert.Equal(t, clock.DayID("2026-02-10"), ev.Day)
	assert.True(t, s.FailureActive())

	fc.Advance(5 * time.Second)
	// Unrelated mutations do not disturb the window.
	require.True(t, s.ToggleTask("walk"))
	s.SetEnforceTaskOrder(true)
	assert.True(t, s.FailureActive())

	fc.Advance(5 * time.Second)
	assert.False(t, s.FailureActive(), "window closes exactly at 10s")

	fc.Advance(time.Second)
	assert.False(t, s.FailureActive())
	assert.Equal(t, time.Duration(0), s.FailureRemaining())
}

func TestFailureRepeatedTriggersStack(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	s.SetEnforceTaskOrder(true)
	completeBuiltins(t, s, 2)
	streak := s.Streak()

	s.TriggerFailure()
	fc.Advance(8 * time.Second)
	s.TriggerFailure()
	fc.Advance(8 * time.Second)
	assert.True(t, s.FailureActive(), "window follows the latest trigger")
	assert.Equal(t, 2*time.Second, s.FailureRemaining())

	assert.Len(t, s.Failures(), 2)
	assert.Equal(t, 2, s.FailureCount("2026-02-10"))
	assert.Equal(t, streak, s.Streak())
	done, _ := s.Counts()
	assert.Equal(t, 2, done)
}

func TestFailureBeforeBoundaryFiledUnderPreviousDay(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 2, 11, 2, 30, 0, 0, time.UTC))
	s := NewMemory(WithClock(fc))

	ev := s.TriggerFailure()
	assert.Equal(t, clock.DayID("2026-02-10"), ev.Day)
}

// ============================================================
// Journal
// ============================================================

func TestJournalRequiresOpenDay(t *testing.T) {
	s, _ := newTestStore(t)
	require.ErrorIs(t, s.SetIntent("x"), ErrNoOpenDay)
	require.ErrorIs(t, s.SetMood(3), ErrNoOpenDay)
}

func TestMoodRange(t *testing.T) {
	s, _ := newTestStore(t)
	s.PerformReset("2026-02-10")

	require.Error(t, s.SetMood(-1))
	require.Error(t, s.SetMood(6))
	require.NoError(t, s.SetMood(0))
	require.NoError(t, s.SetMood(5))

	e, ok := s.DailyEntry("2026-02-10")
	require.True(t, ok)
	assert.Equal(t, 5, e.Mood)
}

func TestWeightLog(t *testing.T) {
	s, fc := newTestStore(t)

	_, err := s.LogWeight(0, UnitKilograms)
	require.ErrorIs(t, err, ErrInvalidWeight)
	_, err = s.LogWeight(80, "stone")
	require.ErrorIs(t, err, ErrInvalidWeight)

	e, err := s.LogWeight(81.4, "")
	require.NoError(t, err)
	assert.Equal(t, UnitKilograms, e.Unit)

	fc.Advance(time.Hour)
	_, err = s.LogWeight(81.4, UnitKilograms)
	require.NoError(t, err)
	_, err = s.LogWeight(180, UnitPounds)
	require.NoError(t, err)

	log := s.WeightLog()
	require.Len(t, log, 3, "no dedup")
	assert.Equal(t, t0, log[0].At)
	assert.Equal(t, UnitPounds, log[2].Unit)
}

// ============================================================
// Protocol start
// ============================================================

func TestInitiateProtocol(t *testing.T) {
	s, _ := newTestStore(t)
	assert.False(t, s.InitiateProtocol(), "no open day")

	s.PerformReset("2026-02-10")
	assert.True(t, s.InitiateProtocol())
	assert.False(t, s.InitiateProtocol(), "already started")

	at, ok := s.ProtocolStarted()
	require.True(t, ok)
	assert.Equal(t, t0, at)
}

// ============================================================
// History
// ============================================================

func TestDayHistoryLiveAndUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok := s.DayHistory(clock.NoDay)
	assert.False(t, ok)

	s.PerformReset("2026-02-10")
	completeBuiltins(t, s, 2)

	live, ok := s.DayHistory("2026-02-10")
	require.True(t, ok)
	assert.Equal(t, 2, live.TasksCompleted)
	assert.False(t, live.Complete)

	_, ok = s.DayHistory("2025-01-01")
	assert.False(t, ok)
}

func TestDayRecordsSorted(t *testing.T) {
	s, _ := newTestStore(t)
	for _, d := range []clock.DayID{"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04"} {
		s.PerformReset(d)
	}

	recs := s.DayRecords()
	require.Len(t, recs, 3)
	assert.Equal(t, clock.DayID("2026-02-01"), recs[0].Day)
	assert.Equal(t, clock.DayID("2026-02-03"), recs[2].Day)
	assert.Equal(t, recs, s.Snapshot().SortedRecords())
}

// ============================================================
// Persistence
// ============================================================

func TestPersistenceRoundTrip(t *testing.T) {
	s, ch, fc := newPersistentStore(t)
	s.PerformReset("2026-02-09")
	completeBuiltins(t, s, 8)
	s.PerformReset("2026-02-10")
	c, err := s.AddCustomTask(NewCustomTask{Label: "Stretch"})
	require.NoError(t, err)
	require.True(t, s.ToggleCustomTask(c.ID))
	require.True(t, s.ToggleTask("walk"))
	require.NoError(t, s.SetIntent("focus"))
	s.TriggerFailure()
	_, err = s.LogWeight(80, UnitKilograms)
	require.NoError(t, err)
	s.SetEnforceTaskOrder(true)
	require.True(t, s.InitiateProtocol())
	require.True(t, s.StartPomodoro("cold-exposure", fc.Now().Add(time.Minute), time.Minute))

	reloaded := New(context.Background(), ch, WithClock(fc))

	assert.Equal(t, s.Day(), reloaded.Day())
	assert.Equal(t, 1, reloaded.Streak())
	assert.Equal(t, s.DayRecords(), reloaded.DayRecords())
	assert.Equal(t, s.Tasks(), reloaded.Tasks())
	assert.Equal(t, s.Failures()[0].Day, reloaded.Failures()[0].Day)
	assert.Len(t, reloaded.WeightLog(), 1)
	assert.Equal(t, s.Settings(), reloaded.Settings())
	_, ok := reloaded.ProtocolStarted()
	assert.True(t, ok)

	// Ephemeral state never crosses the channel.
	_, ok = reloaded.ActivePomodoro()
	assert.False(t, ok)
	assert.False(t, reloaded.FailureActive())
}

func TestPersistedPayloadExcludesEphemeral(t *testing.T) {
	s, ch, fc := newPersistentStore(t)
	s.PerformReset("2026-02-10")
	require.True(t, s.StartPomodoro("walk", fc.Now().Add(time.Minute), time.Minute))
	s.TriggerFailure()

	data, err := ch.Load(context.Background(), StateKey)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{
		"completions", "custom_tasks", "custom_completions", "streak", "last_reset_day",
		"failures", "journal", "weights", "records", "settings",
	} {
		assert.Contains(t, raw, k)
	}
	for k := range raw {
		assert.NotContains(t, []string{"active", "active_pomodoro", "failure_active", "failure_until"}, k)
	}
}

func TestLoadCorruptFallsBackToInitial(t *testing.T) {
	ch, err := kv.NewMemorySQLite()
	require.NoError(t, err)
	defer ch.Close()
	require.NoError(t, ch.Save(context.Background(), StateKey, []byte("{not json")))

	s := New(context.Background(), ch)
	assert.Equal(t, clock.NoDay, s.Day())
	assert.Equal(t, 0, s.Streak())
	assert.Len(t, s.Tasks(), 8)
}

func TestLoadUnsupportedVersionFallsBack(t *testing.T) {
	ch, err := kv.NewMemorySQLite()
	require.NoError(t, err)
	defer ch.Close()
	require.NoError(t, ch.Save(context.Background(), StateKey, []byte(`{"version":7,"streak":9}`)))

	s := New(context.Background(), ch)
	assert.Equal(t, 0, s.Streak())
}

func TestLoadNormalizesMaps(t *testing.T) {
	ch, err := kv.NewMemoryBadger()
	require.NoError(t, err)
	defer ch.Close()

	payload := `{
		"version": 2,
		"streak": 2,
		"last_reset_day": "2026-02-10",
		"completions": {"walk": true, "retired-task": true},
		"custom_tasks": [{"id": "c1", "label": "One"}, {"id": "c1", "label": "Dup"}],
		"custom_completions": {"c1": true, "orphan": true}
	}`
	require.NoError(t, ch.Save(context.Background(), StateKey, []byte(payload)))

	s := New(context.Background(), ch)
	assert.Equal(t, 2, s.Streak())
	tasks := s.Tasks()
	require.Len(t, tasks, 9)
	done, total := s.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 9, total)

	// Nil maps from the payload are usable.
	require.NoError(t, s.SetIntent("ok"))
	s.PerformReset("2026-02-11")
	assert.Len(t, s.DayRecords(), 1)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, fc := newTestStore(t)
	s.PerformReset("2026-02-10")
	require.True(t, s.StartPomodoro("walk", fc.Now().Add(time.Minute), time.Minute))
	require.NoError(t, s.SetIntent("a"))

	snap := s.Snapshot()
	require.NotNil(t, snap.ActivePomodoro)
	snap.ActivePomodoro.TaskID = "mutated"
	snap.Journal["2026-02-10"] = DailyEntry{Intent: "mutated"}
	snap.Tasks[0].Completed = true

	p, _ := s.ActivePomodoro()
	assert.Equal(t, "walk", p.TaskID)
	e, _ := s.DailyEntry("2026-02-10")
	assert.Equal(t, "a", e.Intent)
	assert.False(t, s.Tasks()[0].Completed)
}
