package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/protocol/internal/pomodoro"
	"github.com/sadopc/protocol/internal/store"
)

type dashboardModel struct {
	store  *store.Store
	runner *pomodoro.Runner
	width  int
	height int

	snap   store.Snapshot
	cursor int
	bar    progress.Model
}

func newDashboardModel(s *store.Store, r *pomodoro.Runner) dashboardModel {
	return dashboardModel{
		store:  s,
		runner: r,
		bar:    progress.New(progress.WithSolidFill(string(colorSuccess)), progress.WithoutPercentage()),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.bar.Width = max(10, w-30)
}

func (d *dashboardModel) setSnapshot(snap store.Snapshot) {
	d.snap = snap
	if d.cursor >= len(snap.Tasks) {
		d.cursor = max(0, len(snap.Tasks)-1)
	}
}

func (d dashboardModel) initiated() bool { return d.snap.ProtocolStartedAt != nil }

func (d dashboardModel) selected() (store.Task, bool) {
	if d.cursor < 0 || d.cursor >= len(d.snap.Tasks) {
		return store.Task{}, false
	}
	return d.snap.Tasks[d.cursor], true
}

// loadSnapshot re-reads the store off the update loop.
func loadSnapshot(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: s.Snapshot()}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return d, nil
	}

	if !d.initiated() {
		if key.Matches(keyMsg, keys.Initiate) {
			return d.initiate()
		}
		return d, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if d.cursor < len(d.snap.Tasks)-1 {
			d.cursor++
		}
	case key.Matches(keyMsg, keys.Toggle), key.Matches(keyMsg, keys.Enter):
		return d.toggle()
	case key.Matches(keyMsg, keys.Pomodoro):
		return d.startPomodoro()
	}
	return d, nil
}

func (d dashboardModel) initiate() (dashboardModel, tea.Cmd) {
	if !d.store.InitiateProtocol() {
		return d, statusCmd("No discipline day is open yet", true)
	}
	return d, tea.Batch(loadSnapshot(d.store), statusCmd("Protocol initiated", false))
}

func (d dashboardModel) toggle() (dashboardModel, tea.Cmd) {
	t, ok := d.selected()
	if !ok {
		return d, nil
	}
	if !d.store.Toggle(t.ID) {
		switch {
		case t.Locked:
			return d, statusCmd(t.Label+" is locked until the tasks above it are done", true)
		case d.snap.Settings.EnforcePomodoro && !t.Completed:
			return d, statusCmd("Start the pomodoro for "+t.Label+" first (p)", true)
		}
		return d, statusCmd("Could not toggle "+t.Label, true)
	}
	return d, loadSnapshot(d.store)
}

func (d dashboardModel) startPomodoro() (dashboardModel, tea.Cmd) {
	t, ok := d.selected()
	if !ok {
		return d, nil
	}
	if t.Completed {
		return d, statusCmd(t.Label+" is already done", true)
	}
	if err := d.runner.Start(t.ID); err != nil {
		if errors.Is(err, pomodoro.ErrTaskLocked) {
			return d, statusCmd(t.Label+" is locked", true)
		}
		return d, statusCmd(fmt.Sprintf("Error: %v", err), true)
	}
	return d, tea.Batch(
		loadSnapshot(d.store),
		func() tea.Msg { return switchViewMsg{view: viewPomodoro} },
	)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4
	if !d.initiated() {
		return d.renderGate(contentWidth)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderSummaryPanel(contentWidth),
		d.renderTaskPanel(contentWidth),
	)
}

func (d dashboardModel) renderGate(w int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render(string(d.snap.Day)),
		"",
		titleStyle.Render("The protocol has not been initiated today"),
		mutedStyle.Render(fmt.Sprintf("%d tasks waiting  ·  streak %d", len(d.snap.Tasks), d.snap.Streak)),
		"",
		highlightStyle.Render("Press i to initiate"),
	)
	return activePanelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	done, total := d.snap.Today.TasksCompleted, d.snap.Today.TotalTasks
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}

	title := titleStyle.Render("Today")
	day := highlightStyle.Render(string(d.snap.Day))
	counts := fmt.Sprintf("%d/%d", done, total)
	if d.snap.Today.Complete {
		counts = successStyle.Render(counts + "  complete")
	}

	lines := []string{
		fmt.Sprintf("%s  %s", title, day),
		fmt.Sprintf("%s  %s", d.bar.ViewAs(pct), counts),
		mutedStyle.Render(fmt.Sprintf("streak %d  ·  failures today %d", d.snap.Streak, d.snap.Today.FailureCount)),
	}
	if p := d.snap.ActivePomodoro; p != nil {
		lines = append(lines, successStyle.Render(fmt.Sprintf("● pomodoro %s  %s left",
			p.TaskID, formatCountdown(p.Remaining(d.snap.TakenAt)))))
	}
	return panelStyle.Width(w).Render(strings.Join(lines, "\n"))
}

func (d dashboardModel) renderTaskPanel(w int) string {
	title := titleStyle.Render("Protocol")
	if len(d.snap.Tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No tasks")))
	}

	rows := []string{title}
	for i, t := range d.snap.Tasks {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		mark := "[ ]"
		switch {
		case t.Completed:
			mark = successStyle.Render("[✓]")
		case t.Locked:
			mark = lockedItemStyle.Render("[🔒]")
			if i != d.cursor {
				style = lockedItemStyle
			}
		}

		label := t.Label
		if t.Kind == store.KindCustom {
			label += mutedStyle.Render(" (custom)")
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s %s",
			cursor, mark, categoryDot(string(t.Category)), style.Render(label), mutedStyle.Render(t.Duration)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  space: toggle  p: pomodoro  f: log failure"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
