package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sadopc/protocol/internal/store"
)

var csvHeader = []string{"Day", "Complete", "Tasks Completed", "Total Tasks", "Progress %", "Failures", "Mood", "Intent"}

// ToCSV writes the day archive to path, one row per day.
func ToCSV(records []store.DayRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, records)
}

// WriteCSV writes the day archive to w.
func WriteCSV(out io.Writer, records []store.DayRecord) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Day.String(),
			strconv.FormatBool(r.Complete),
			strconv.Itoa(r.TasksCompleted),
			strconv.Itoa(r.TotalTasks),
			strconv.Itoa(percent(r.TasksCompleted, r.TotalTasks)),
			strconv.Itoa(r.FailureCount),
			strconv.Itoa(r.Mood),
			r.Intent,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return (done*200 + total) / (total * 2)
}
