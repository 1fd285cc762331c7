package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/protocol/internal/store"
)

type jsonExport struct {
	ExportedAt string            `json:"exported_at"`
	Day        string            `json:"day"`
	Streak     int               `json:"streak"`
	Progress   int               `json:"progress_percent"`
	Today      store.DayRecord   `json:"today"`
	Tasks      []store.Task      `json:"tasks"`
	Locked     []string          `json:"locked_task_ids"`
	Settings   store.Settings    `json:"settings"`
	Records    []store.DayRecord `json:"records"`
	Failures   []jsonFailure     `json:"failures"`
	Weights    []jsonWeight      `json:"weights"`
}

type jsonFailure struct {
	At  string `json:"at"`
	Day string `json:"day"`
}

type jsonWeight struct {
	At    string  `json:"at"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ToJSON writes snap to path. The running countdown and the failure flag are
// transient and not exported.
func ToJSON(snap store.Snapshot, path string) error {
	data, err := MarshalJSON(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// MarshalJSON renders snap as indented JSON.
func MarshalJSON(snap store.Snapshot) ([]byte, error) {
	export := jsonExport{
		ExportedAt: snap.TakenAt.UTC().Format(time.RFC3339),
		Day:        snap.Day.String(),
		Streak:     snap.Streak,
		Progress:   percent(snap.Today.TasksCompleted, snap.Today.TotalTasks),
		Today:      snap.Today,
		Tasks:      snap.Tasks,
		Locked:     snap.LockedTaskIDs,
		Settings:   snap.Settings,
		Records:    snap.SortedRecords(),
		Failures:   []jsonFailure{},
		Weights:    []jsonWeight{},
	}
	if export.Locked == nil {
		export.Locked = []string{}
	}

	for _, f := range snap.Failures {
		export.Failures = append(export.Failures, jsonFailure{
			At:  f.At.UTC().Format(time.RFC3339),
			Day: f.Day.String(),
		})
	}
	for _, w := range snap.Weights {
		export.Weights = append(export.Weights, jsonWeight{
			At:    w.At.UTC().Format(time.RFC3339),
			Value: w.Value,
			Unit:  string(w.Unit),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}
