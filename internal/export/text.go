// Package export renders a store snapshot as a text report, CSV or JSON.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sadopc/protocol/internal/store"
)

// ToText writes a plain-text report of snap to w. Output depends only on snap
// and now.
func ToText(w io.Writer, snap store.Snapshot, now time.Time) error {
	var b strings.Builder

	day := snap.Day.String()
	if day == "" {
		day = "(not started)"
	}
	fmt.Fprintf(&b, "Protocol report  %s\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Discipline day:  %s\n", day)
	fmt.Fprintf(&b, "Streak:          %d\n", snap.Streak)
	fmt.Fprintf(&b, "Progress:        %d/%d (%d%%)\n\n",
		snap.Today.TasksCompleted, snap.Today.TotalTasks,
		percent(snap.Today.TasksCompleted, snap.Today.TotalTasks))

	b.WriteString(TasksTable(snap.Tasks))
	b.WriteString("\n\n")

	if len(snap.Records) > 0 {
		b.WriteString("History\n")
		b.WriteString(RecordsTable(snap.SortedRecords()))
		b.WriteString("\n\n")
	}

	if len(snap.Failures) > 0 {
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Failure at", "Day"})
		for _, f := range snap.Failures {
			tw.AppendRow(table.Row{f.At.Format("2006-01-02 15:04:05"), f.Day})
		}
		b.WriteString("Failures\n")
		b.WriteString(tw.Render())
		b.WriteString("\n\n")
	}

	if len(snap.Weights) > 0 {
		b.WriteString("Weight\n")
		b.WriteString(WeightsTable(snap.Weights))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// TasksTable renders the unlock sequence with completion and lock markers.
func TasksTable(tasks []store.Task) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "ID", "Task", "Category", "Duration", "Status"})
	for i, t := range tasks {
		label := t.Label
		if t.Kind == store.KindCustom {
			label += " *"
		}
		tw.AppendRow(table.Row{i + 1, t.ID, label, t.Category, t.Duration, taskStatus(t)})
	}
	return tw.Render()
}

// RecordsTable renders archived day records.
func RecordsTable(records []store.DayRecord) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Day", "Done", "Tasks", "Failures", "Mood", "Intent"})
	for _, r := range records {
		done := "no"
		if r.Complete {
			done = "yes"
		}
		mood := "-"
		if r.Mood > 0 {
			mood = strconv.Itoa(r.Mood)
		}
		tw.AppendRow(table.Row{
			r.Day,
			done,
			fmt.Sprintf("%d/%d", r.TasksCompleted, r.TotalTasks),
			r.FailureCount,
			mood,
			r.Intent,
		})
	}
	return tw.Render()
}

// WeightsTable renders the weight log.
func WeightsTable(weights []store.WeightEntry) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"At", "Weight"})
	for _, w := range weights {
		tw.AppendRow(table.Row{
			w.At.Format("2006-01-02 15:04"),
			strconv.FormatFloat(w.Value, 'f', 1, 64) + " " + string(w.Unit),
		})
	}
	return tw.Render()
}

func taskStatus(t store.Task) string {
	switch {
	case t.Completed && t.Locked:
		return "done (locked)"
	case t.Completed:
		return "done"
	case t.Locked:
		return "locked"
	}
	return "open"
}
