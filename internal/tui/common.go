package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/protocol/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewPomodoro
	viewReview
	viewJournal
	viewSettings
)

var viewNames = []string{"Dashboard", "Pomodoro", "Review", "Journal", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type snapshotMsg struct {
	snap store.Snapshot
}

type switchViewMsg struct {
	view viewState
}

type exportDoneMsg struct {
	path string
}

// PomodoroDoneMsg is sent into the program when a countdown runs out.
type PomodoroDoneMsg struct {
	TaskID    string
	Completed bool
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	// round up so 00:00 only shows once the countdown is really over
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}
