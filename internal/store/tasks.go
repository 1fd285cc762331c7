package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const defaultCustomPomodoroMinutes = 25

// ToggleTask flips the completion of built-in task id. It reports whether
// the state changed; a rejected toggle (unknown id, locked task, or pomodoro
// enforcement unmet) leaves the store untouched.
func (s *Store) ToggleTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := builtinByID(id); !ok {
		return false
	}
	if !s.toggleLocked(KindBuiltin, id) {
		return false
	}
	s.persistLocked()
	return true
}

// ToggleCustomTask is ToggleTask for custom tasks.
func (s *Store) ToggleCustomTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.toggleLocked(KindCustom, id) {
		return false
	}
	s.persistLocked()
	return true
}

// Toggle dispatches to the built-in or custom completion by id. The kind
// lookup and the flip happen under one lock.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.kindLocked(id)
	if !ok {
		return false
	}
	if !s.toggleLocked(kind, id) {
		return false
	}
	s.persistLocked()
	return true
}

// toggleLocked is the single completion path shared by manual toggles and
// pomodoro expiry.
func (s *Store) toggleLocked(kind Kind, id string) bool {
	completions := s.state.Completions
	if kind == KindCustom {
		completions = s.state.CustomCompletions
	}

	done, exists := completions[id]
	if !exists {
		return false
	}
	if s.isLockedLocked(id) {
		return false
	}
	if s.state.Settings.EnforcePomodoro && !done && (s.active == nil || s.active.TaskID != id) {
		return false
	}

	completions[id] = !done
	return true
}

func (s *Store) kindLocked(id string) (Kind, bool) {
	if _, ok := s.state.Completions[id]; ok {
		return KindBuiltin, true
	}
	if _, ok := s.state.CustomCompletions[id]; ok {
		return KindCustom, true
	}
	return 0, false
}

func (s *Store) completedLocked(id string) bool {
	if done, ok := s.state.Completions[id]; ok {
		return done
	}
	return s.state.CustomCompletions[id]
}

// AddCustomTask appends a user-defined task after every existing task in
// unlock order. Its completion starts false.
func (s *Store) AddCustomTask(in NewCustomTask) (CustomTask, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return CustomTask{}, fmt.Errorf("add custom task: %w: label is required", ErrInvalidTask)
	}
	if in.Category == "" {
		in.Category = CategoryCognitive
	}
	if !in.Category.Valid() {
		return CustomTask{}, fmt.Errorf("add custom task: %w: unknown category %q", ErrInvalidTask, in.Category)
	}
	if in.PomodoroMinutes < 0 {
		return CustomTask{}, fmt.Errorf("add custom task: %w: negative pomodoro minutes", ErrInvalidTask)
	}
	if in.PomodoroMinutes == 0 {
		in.PomodoroMinutes = defaultCustomPomodoroMinutes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := CustomTask{
		TaskDefinition: TaskDefinition{
			ID:              uuid.NewString(),
			Label:           label,
			Category:        in.Category,
			Duration:        strings.TrimSpace(in.Duration),
			Description:     strings.TrimSpace(in.Description),
			PomodoroMinutes: in.PomodoroMinutes,
		},
		CreatedAt: s.clock.Now(),
	}
	s.state.CustomTasks = append(s.state.CustomTasks, t)
	s.state.CustomCompletions[t.ID] = false
	s.persistLocked()

	s.log.Debug().Str("task", t.ID).Str("label", t.Label).Msg("custom task added")
	return t, nil
}

// RemoveCustomTask deletes custom task id together with its completion entry.
// A pomodoro bound to it is abandoned.
func (s *Store) RemoveCustomTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.state.CustomTasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.state.CustomTasks = append(s.state.CustomTasks[:idx], s.state.CustomTasks[idx+1:]...)
	delete(s.state.CustomCompletions, id)
	if s.active != nil && s.active.TaskID == id {
		s.active = nil
	}
	s.persistLocked()
	return true
}

// CustomTasks returns the custom tasks in creation order.
func (s *Store) CustomTasks() []CustomTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CustomTask(nil), s.state.CustomTasks...)
}

// Tasks returns the full unlock sequence: built-ins in catalog order, then
// custom tasks in creation order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksLocked()
}

// Task looks up one task of the sequence by id.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasksLocked() {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (s *Store) tasksLocked() []Task {
	locked := make(map[string]bool)
	for _, id := range s.lockedLocked() {
		locked[id] = true
	}

	out := make([]Task, 0, len(builtins)+len(s.state.CustomTasks))
	for _, d := range builtins {
		out = append(out, Task{
			TaskDefinition: d,
			Kind:           KindBuiltin,
			Completed:      s.state.Completions[d.ID],
			Locked:         locked[d.ID],
		})
	}
	for _, c := range s.state.CustomTasks {
		out = append(out, Task{
			TaskDefinition: c.TaskDefinition,
			Kind:           KindCustom,
			Completed:      s.state.CustomCompletions[c.ID],
			Locked:         locked[c.ID],
		})
	}
	return out
}

// sequenceLocked returns task ids in unlock order.
func (s *Store) sequenceLocked() []string {
	ids := make([]string, 0, len(builtins)+len(s.state.CustomTasks))
	for _, d := range builtins {
		ids = append(ids, d.ID)
	}
	for _, c := range s.state.CustomTasks {
		ids = append(ids, c.ID)
	}
	return ids
}

// LockedTaskIDs returns the ids that may not be toggled, in unlock order.
// It is empty unless task order is enforced; otherwise it is every task after
// the first incomplete one, whatever their own state. Recomputed on each call.
func (s *Store) LockedTaskIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedLocked()
}

func (s *Store) lockedLocked() []string {
	if !s.state.Settings.EnforceTaskOrder {
		return nil
	}

	var locked []string
	seenIncomplete := false
	for _, id := range s.sequenceLocked() {
		if seenIncomplete {
			locked = append(locked, id)
			continue
		}
		if !s.completedLocked(id) {
			seenIncomplete = true
		}
	}
	return locked
}

func (s *Store) isLockedLocked(id string) bool {
	for _, l := range s.lockedLocked() {
		if l == id {
			return true
		}
	}
	return false
}

// IsLocked reports whether id is currently locked.
func (s *Store) IsLocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLockedLocked(id)
}

func (s *Store) countsLocked() (done, total int) {
	for _, v := range s.state.Completions {
		total++
		if v {
			done++
		}
	}
	for _, v := range s.state.CustomCompletions {
		total++
		if v {
			done++
		}
	}
	return done, total
}

// Counts returns completed and total task counts for the open day.
func (s *Store) Counts() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

// ProgressPercent returns the completed share of all tasks rounded to the
// nearest integer, or 0 when there are no tasks.
func (s *Store) ProgressPercent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressPercent(s.countsLocked())
}

func progressPercent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// DayComplete reports whether every built-in and custom task is complete.
func (s *Store) DayComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dayCompleteLocked()
}
