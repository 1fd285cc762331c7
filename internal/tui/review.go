package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/protocol/internal/store"
)

// reviewWindow is how many days one chart page shows.
const reviewWindow = 7

type reviewModel struct {
	store  *store.Store
	width  int
	height int

	records []store.DayRecord // archive plus the open day, oldest first
	offset  int               // pages back from the newest

	chart barchart.Model
}

func newReviewModel(s *store.Store) reviewModel {
	return reviewModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *reviewModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

type reviewDataMsg struct {
	records []store.DayRecord
}

func (r reviewModel) refresh() tea.Cmd {
	return func() tea.Msg {
		records := r.store.DayRecords()
		if today, ok := r.store.DayHistory(r.store.Day()); ok {
			records = append(records, today)
		}
		return reviewDataMsg{records: records}
	}
}

// page returns the records shown at the current offset.
func (r reviewModel) page() []store.DayRecord {
	end := len(r.records) - r.offset*reviewWindow
	if end <= 0 {
		return nil
	}
	start := max(0, end-reviewWindow)
	return r.records[start:end]
}

func (r reviewModel) update(msg tea.Msg) (reviewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reviewDataMsg:
		r.records = msg.records
		if r.offset*reviewWindow >= len(r.records) {
			r.offset = 0
		}
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if (r.offset+1)*reviewWindow < len(r.records) {
				r.offset++
				r.buildChart()
			}
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				r.buildChart()
			}
		}
	}
	return r, nil
}

func (r *reviewModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, rec := range r.page() {
		style := lipgloss.NewStyle().Foreground(colorWarning)
		if rec.Complete {
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		}
		label := string(rec.Day)
		if len(label) == len("2006-01-02") {
			label = label[5:]
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  "completed",
				Value: float64(rec.TasksCompleted),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reviewModel) view() string {
	w := r.width - 4

	page := r.page()
	rangeLabel := ""
	if len(page) > 0 {
		rangeLabel = mutedStyle.Render(fmt.Sprintf("%s to %s", page[0].Day, page[len(page)-1].Day))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Review"), "  ", rangeLabel,
	)

	if len(page) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("  No days recorded yet")))
	}

	legend := fmt.Sprintf("  %s complete  %s incomplete",
		successStyle.Render("█"), warningStyle.Render("█"))
	nav := mutedStyle.Render("  ←/→: older/newer")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", legend, "", r.renderRecordTable(w, page), "", nav,
		),
	)
}

func (r reviewModel) renderRecordTable(w int, page []store.DayRecord) string {
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-8s %8s %6s  %s", "Day", "Tasks", "Failures", "Mood", "Intent")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 60))))

	for i := len(page) - 1; i >= 0; i-- {
		rec := page[i]
		mark := warningStyle.Render("○")
		if rec.Complete {
			mark = successStyle.Render("●")
		}
		failures := fmt.Sprintf("%8d", rec.FailureCount)
		if rec.FailureCount > 0 {
			failures = errorStyle.Render(failures)
		}
		mood := "-"
		if rec.Mood > 0 {
			mood = strings.Repeat("★", rec.Mood)
		}
		intent := rec.Intent
		if limit := w - 50; limit > 3 && len(intent) > limit {
			intent = intent[:limit-3] + "..."
		}
		rows = append(rows, fmt.Sprintf("%s %-12s %-8s %s %6s  %s",
			mark, rec.Day, fmt.Sprintf("%d/%d", rec.TasksCompleted, rec.TotalTasks), failures, mood, intent))
	}
	return strings.Join(rows, "\n")
}
