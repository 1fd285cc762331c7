package store

import (
	"time"

	"github.com/sadopc/protocol/internal/clock"
)

// Category groups tasks by the faculty they train.
type Category string

const (
	CategoryPhysical     Category = "physical"
	CategoryCognitive    Category = "cognitive"
	CategoryIntellectual Category = "intellectual"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPhysical, CategoryCognitive, CategoryIntellectual:
		return true
	}
	return false
}

// TaskDefinition is the shape shared by built-in and custom tasks.
type TaskDefinition struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Category        Category `json:"category"`
	Duration        string   `json:"duration"` // nominal, for display only
	Description     string   `json:"description"`
	PomodoroMinutes int      `json:"pomodoro_minutes"`
}

// PomodoroDuration returns the default countdown length for the task.
func (d TaskDefinition) PomodoroDuration() time.Duration {
	return time.Duration(d.PomodoroMinutes) * time.Minute
}

// CustomTask is a user-created task, appended after the built-ins in unlock order.
type CustomTask struct {
	TaskDefinition
	CreatedAt time.Time `json:"created_at"`
}

// NewCustomTask holds the user-supplied fields of a custom task.
type NewCustomTask struct {
	Label           string
	Category        Category
	Duration        string
	Description     string
	PomodoroMinutes int
}

// Kind tells built-in and custom tasks apart.
type Kind int

const (
	KindBuiltin Kind = iota
	KindCustom
)

func (k Kind) String() string {
	if k == KindCustom {
		return "custom"
	}
	return "builtin"
}

// Task is one entry of the unlock sequence with its state for the open day.
type Task struct {
	TaskDefinition
	Kind      Kind `json:"kind"`
	Completed bool `json:"completed"`
	Locked    bool `json:"locked"`
}

// FailureEvent records one press of the failure signal. Never mutated.
type FailureEvent struct {
	At  time.Time   `json:"at"`
	Day clock.DayID `json:"day"`
}

// DayRecord is the archive entry written once when a discipline day closes.
type DayRecord struct {
	Day            clock.DayID `json:"day"`
	Complete       bool        `json:"complete"`
	TasksCompleted int         `json:"tasks_completed"`
	TotalTasks     int         `json:"total_tasks"`
	FailureCount   int         `json:"failure_count"`
	Intent         string      `json:"intent"`
	Mood           int         `json:"mood"`
}

// DailyEntry is the intent and mood recorded for a discipline day.
type DailyEntry struct {
	Intent string `json:"intent"`
	Mood   int    `json:"mood"` // 0-5
}

// MaxMood is the highest accepted mood value.
const MaxMood = 5

// WeightUnit is the unit a weight entry was recorded in.
type WeightUnit string

const (
	UnitKilograms WeightUnit = "kg"
	UnitPounds    WeightUnit = "lb"
)

// WeightEntry is one point of the weight time series.
type WeightEntry struct {
	At    time.Time  `json:"at"`
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

// ActivePomodoro is the single running countdown. It is never persisted.
type ActivePomodoro struct {
	TaskID   string
	EndTime  time.Time
	Duration time.Duration
}

// Remaining returns the time left on the countdown at now, never negative.
func (p ActivePomodoro) Remaining(now time.Time) time.Duration {
	d := p.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Settings are the two independent enforcement flags.
type Settings struct {
	EnforceTaskOrder bool `json:"enforce_task_order"`
	EnforcePomodoro  bool `json:"enforce_pomodoro"`
}

// Snapshot is a consistent deep copy of the store at one instant.
type Snapshot struct {
	TakenAt           time.Time                  `json:"taken_at"`
	Day               clock.DayID                `json:"day"`
	Tasks             []Task                     `json:"tasks"`
	LockedTaskIDs     []string                   `json:"locked_task_ids"`
	Streak            int                        `json:"streak"`
	ProtocolStartedAt *time.Time                 `json:"protocol_started_at,omitempty"`
	Failures          []FailureEvent             `json:"failures"`
	Journal           map[clock.DayID]DailyEntry `json:"journal"`
	Weights           []WeightEntry              `json:"weights"`
	Records           map[clock.DayID]DayRecord  `json:"records"`
	Settings          Settings                   `json:"settings"`
	Today             DayRecord                  `json:"today"`

	// Ephemeral; excluded from every serialized form.
	ActivePomodoro *ActivePomodoro `json:"-"`
	FailureActive  bool            `json:"-"`
}
