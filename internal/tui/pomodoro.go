package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/protocol/internal/pomodoro"
	"github.com/sadopc/protocol/internal/store"
)

type pomodoroModel struct {
	store  *store.Store
	runner *pomodoro.Runner
	width  int
	height int

	snap store.Snapshot
	bar  progress.Model

	// last finished countdown, shown until the next one starts
	lastTask      string
	lastCompleted bool
}

func newPomodoroModel(s *store.Store, r *pomodoro.Runner) pomodoroModel {
	return pomodoroModel{
		store:  s,
		runner: r,
		bar:    progress.New(progress.WithSolidFill(string(colorAccent)), progress.WithoutPercentage()),
	}
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
	p.bar.Width = max(10, w-16)
}

func (p *pomodoroModel) setSnapshot(snap store.Snapshot) {
	p.snap = snap
}

// nextTask returns the first task that can still be worked on.
func (p pomodoroModel) nextTask() (store.Task, bool) {
	for _, t := range p.snap.Tasks {
		if !t.Completed && !t.Locked {
			return t, true
		}
	}
	return store.Task{}, false
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	switch msg := msg.(type) {
	case PomodoroDoneMsg:
		p.lastTask = msg.TaskID
		p.lastCompleted = msg.Completed
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if p.runner.Running() {
				return p, nil
			}
			t, ok := p.nextTask()
			if !ok {
				return p, statusCmd("Nothing left to work on today", false)
			}
			if err := p.runner.Start(t.ID); err != nil {
				return p, statusCmd(fmt.Sprintf("Error: %v", err), true)
			}
			p.lastTask = ""
			return p, tea.Batch(loadSnapshot(p.store), statusCmd("Pomodoro started: "+t.Label, false))

		case key.Matches(msg, keys.Stop):
			if !p.runner.Running() {
				return p, nil
			}
			p.runner.Stop()
			return p, tea.Batch(loadSnapshot(p.store), statusCmd("Pomodoro cancelled", false))
		}
	}
	return p, nil
}

func (p pomodoroModel) label(id string) string {
	for _, t := range p.snap.Tasks {
		if t.ID == id {
			return t.Label
		}
	}
	return id
}

func (p pomodoroModel) view() string {
	w := p.width - 4
	title := titleStyle.Render("Pomodoro")

	var timeDisplay, taskLine, indicator, controls string
	if a := p.snap.ActivePomodoro; a != nil {
		remaining := p.runner.Remaining()
		elapsed := 0.0
		if a.Duration > 0 {
			elapsed = 1 - float64(remaining)/float64(a.Duration)
		}
		timeDisplay = timerRunningStyle.Width(w - 6).Render(formatCountdown(remaining))
		taskLine = highlightStyle.Render(p.label(a.TaskID))
		indicator = p.bar.ViewAs(elapsed)
		controls = mutedStyle.Render("x: cancel")
	} else {
		next, ok := p.nextTask()
		switch {
		case ok:
			timeDisplay = timerStyle.Width(w - 6).Render(formatCountdown(next.PomodoroDuration()))
			taskLine = mutedStyle.Render("Next: " + next.Label)
		default:
			timeDisplay = timerStyle.Width(w - 6).Render("--:--")
			taskLine = mutedStyle.Render("No open tasks")
		}
		if p.lastTask != "" {
			if p.lastCompleted {
				indicator = successStyle.Render("✓ " + p.label(p.lastTask) + " completed")
			} else {
				indicator = warningStyle.Render("Time is up for " + p.label(p.lastTask))
			}
		}
		controls = mutedStyle.Render("s: start next task")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		timeDisplay,
		taskLine,
		"",
		indicator,
	)
	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}
