// Package store is the authoritative model of the discipline protocol: task
// completion for the open discipline day, custom tasks, the streak, the day
// archive, the failure log, the journal, the weight log and the enforcement
// flags.
//
// Every exported method is atomic with respect to every other; the store is
// the single writer of all persisted fields. After each mutation the
// persisted subset is written through the kv.Channel. Write failures are
// logged, never returned.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sadopc/protocol/internal/clock"
	"github.com/sadopc/protocol/internal/kv"
)

// StateKey is the persistence key. The schema version is part of the key so
// an older layout is never decoded into this one.
const StateKey = "protocol-state-v2"

const schemaVersion = 2

var (
	ErrInvalidTask   = errors.New("invalid task")
	ErrInvalidWeight = errors.New("invalid weight")
	ErrNoOpenDay     = errors.New("no open discipline day")
)

// state is the persisted subset of the store.
type state struct {
	Version           int                        `json:"version"`
	Completions       map[string]bool            `json:"completions"`
	CustomTasks       []CustomTask               `json:"custom_tasks"`
	CustomCompletions map[string]bool            `json:"custom_completions"`
	Streak            int                        `json:"streak"`
	LastResetDay      clock.DayID                `json:"last_reset_day"`
	ProtocolStartedAt *time.Time                 `json:"protocol_started_at,omitempty"`
	Failures          []FailureEvent             `json:"failures"`
	Journal           map[clock.DayID]DailyEntry `json:"journal"`
	Weights           []WeightEntry              `json:"weights"`
	Records           map[clock.DayID]DayRecord  `json:"records"`
	Settings          Settings                   `json:"settings"`
}

func initialState() state {
	st := state{Version: schemaVersion}
	st.normalize()
	return st
}

// normalize repairs a decoded state so every invariant on map shape holds:
// one completion entry per built-in, one per custom task, nothing else.
func (st *state) normalize() {
	st.Version = schemaVersion

	completions := make(map[string]bool, len(builtins))
	for _, d := range builtins {
		completions[d.ID] = st.Completions[d.ID]
	}
	st.Completions = completions

	custom := make(map[string]bool, len(st.CustomTasks))
	kept := st.CustomTasks[:0]
	seen := make(map[string]bool, len(st.CustomTasks))
	for _, t := range st.CustomTasks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		kept = append(kept, t)
		custom[t.ID] = st.CustomCompletions[t.ID]
	}
	st.CustomTasks = kept
	st.CustomCompletions = custom

	if st.Streak < 0 {
		st.Streak = 0
	}
	if st.LastResetDay != clock.NoDay && !st.LastResetDay.Valid() {
		st.LastResetDay = clock.NoDay
	}
	if st.Journal == nil {
		st.Journal = make(map[clock.DayID]DailyEntry)
	}
	if st.Records == nil {
		st.Records = make(map[clock.DayID]DayRecord)
	}
}

// Store owns all protocol state. Construct it once with New and pass it to
// the scheduler and the presentation layer.
type Store struct {
	mu    sync.Mutex
	ch    kv.Channel
	clock clockwork.Clock
	log   zerolog.Logger

	state state

	// ephemeral
	active       *ActivePomodoro
	failureUntil time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New builds the store and loads the persisted snapshot from ch. A missing or
// unreadable snapshot yields the initial state, exactly as on a first run.
// A nil channel keeps the store purely in memory.
func New(ctx context.Context, ch kv.Channel, opts ...Option) *Store {
	s := &Store{
		ch:    ch,
		clock: clockwork.NewRealClock(),
		log:   zerolog.Nop(),
		state: initialState(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if ch != nil {
		st, err := load(ctx, ch)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			s.log.Info().Str("key", StateKey).Msg("no stored state, starting fresh")
		case err != nil:
			s.log.Warn().Err(err).Str("key", StateKey).Msg("stored state unreadable, starting fresh")
		default:
			s.state = st
		}
	}

	return s
}

// NewMemory creates a store without persistence, for tests.
func NewMemory(opts ...Option) *Store {
	return New(context.Background(), nil, opts...)
}

func load(ctx context.Context, ch kv.Channel) (state, error) {
	data, err := ch.Load(ctx, StateKey)
	if err != nil {
		return state{}, err
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return state{}, fmt.Errorf("decode state: %w", err)
	}
	if st.Version != 0 && st.Version != schemaVersion {
		return state{}, fmt.Errorf("decode state: unsupported version %d", st.Version)
	}
	st.normalize()
	return st, nil
}

// persistLocked writes the persisted subset. Callers hold s.mu.
func (s *Store) persistLocked() {
	if s.ch == nil {
		return
	}

	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.Error().Err(err).Msg("encode state")
		return
	}
	if err := s.ch.Save(context.Background(), StateKey, data); err != nil {
		s.log.Error().Err(err).Msg("persist state")
	}
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Day returns the open discipline day, or clock.NoDay before the first reset.
func (s *Store) Day() clock.DayID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastResetDay
}

// Streak returns the number of consecutive complete days before the open one.
func (s *Store) Streak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Streak
}

// Snapshot returns a deep copy of the whole store, ephemeral fields included.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	snap := Snapshot{
		TakenAt:       now,
		Day:           s.state.LastResetDay,
		Tasks:         s.tasksLocked(),
		LockedTaskIDs: s.lockedLocked(),
		Streak:        s.state.Streak,
		Failures:      append([]FailureEvent(nil), s.state.Failures...),
		Journal:       make(map[clock.DayID]DailyEntry, len(s.state.Journal)),
		Weights:       append([]WeightEntry(nil), s.state.Weights...),
		Records:       make(map[clock.DayID]DayRecord, len(s.state.Records)),
		Settings:      s.state.Settings,
		Today:         s.recordLocked(s.state.LastResetDay),
		FailureActive: s.failureActiveLocked(now),
	}
	if s.state.ProtocolStartedAt != nil {
		t := *s.state.ProtocolStartedAt
		snap.ProtocolStartedAt = &t
	}
	for k, v := range s.state.Journal {
		snap.Journal[k] = v
	}
	for k, v := range s.state.Records {
		snap.Records[k] = v
	}
	if s.active != nil {
		p := *s.active
		snap.ActivePomodoro = &p
	}
	return snap
}

// SortedRecords returns the archive of snap ordered by day.
func (snap Snapshot) SortedRecords() []DayRecord {
	out := make([]DayRecord, 0, len(snap.Records))
	for _, r := range snap.Records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
