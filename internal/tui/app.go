package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/protocol/internal/export"
	"github.com/sadopc/protocol/internal/pomodoro"
	"github.com/sadopc/protocol/internal/store"
)

var exportFormats = []string{"Text", "CSV", "JSON"}

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	runner *pomodoro.Runner
	tick   time.Duration
	width  int
	height int

	snap store.Snapshot

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	failing     bool
	failForm    *huh.Form
	failConfirm *bool

	dashboard dashboardModel
	pomodoro  pomodoroModel
	review    reviewModel
	journal   journalModel
	settings  settingsModel

	help   help.Model
	status string
}

// NewApp builds the root model. tick is the refresh interval; the snapshot is
// re-read from the store on every tick.
func NewApp(s *store.Store, r *pomodoro.Runner, tick time.Duration) App {
	h := help.New()
	h.ShowAll = false

	if tick <= 0 {
		tick = time.Second
	}
	home, _ := os.UserHomeDir()
	confirm := false

	a := App{
		store:       s,
		runner:      r,
		tick:        tick,
		activeView:  viewDashboard,
		exportDir:   home,
		failConfirm: &confirm,
		dashboard:   newDashboardModel(s, r),
		pomodoro:    newPomodoroModel(s, r),
		review:      newReviewModel(s),
		journal:     newJournalModel(s),
		settings:    newSettingsModel(s),
		help:        h,
	}
	a.setSnapshot(s.Snapshot())
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		loadSnapshot(a.store),
		a.settings.refresh(),
		a.tickCmd(),
	)
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.pomodoro.setSize(a.width, contentHeight)
		a.review.setSize(a.width, contentHeight)
		a.journal.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.failing {
			return a.updateFailForm(msg)
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Fail):
			return a.showFailForm()
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewPomodoro)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewReview)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewJournal)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		return a, tea.Batch(a.tickCmd(), loadSnapshot(a.store))

	case snapshotMsg:
		a.setSnapshot(msg.snap)
		return a, nil

	case switchViewMsg:
		return a.switchTo(msg.view)

	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case reviewDataMsg:
		var cmd tea.Cmd
		a.review, cmd = a.review.update(msg)
		return a, cmd

	case PomodoroDoneMsg:
		var cmd tea.Cmd
		a.pomodoro, cmd = a.pomodoro.update(msg)
		text := "Pomodoro finished: " + a.pomodoro.label(msg.TaskID)
		if msg.Completed {
			text += " (completed)"
		}
		a.status = text
		return a, tea.Batch(cmd, loadSnapshot(a.store))

	case statusMsg:
		a.status = msg.text
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	if a.failing {
		return a.updateFailForm(msg)
	}
	return a.updateActiveView(msg)
}

func (a *App) setSnapshot(snap store.Snapshot) {
	a.snap = snap
	a.dashboard.setSnapshot(snap)
	a.pomodoro.setSnapshot(snap)
	a.journal.setSnapshot(snap)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewPomodoro:
		a.pomodoro, cmd = a.pomodoro.update(msg)
	case viewReview:
		a.review, cmd = a.review.update(msg)
	case viewJournal:
		a.journal, cmd = a.journal.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewJournal:
		return a.journal.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewReview:
		return a.review.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return loadSnapshot(a.store)
}

// --- Failure confirmation ---

func (a App) showFailForm() (tea.Model, tea.Cmd) {
	*a.failConfirm = false
	a.failForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Log a failure for today?").
				Description("This is recorded permanently. Streak and tasks are not touched.").
				Affirmative("I failed").
				Negative("Cancel").
				Value(a.failConfirm),
		),
	)
	a.failing = true
	return a, a.failForm.Init()
}

func (a App) updateFailForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		a.failing = false
		a.failForm = nil
		return a, nil
	}

	form, cmd := a.failForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.failForm = f
	}

	switch a.failForm.State {
	case huh.StateAborted:
		a.failing = false
		a.failForm = nil
		return a, nil
	case huh.StateCompleted:
		a.failing = false
		a.failForm = nil
		if !*a.failConfirm {
			return a, nil
		}
		return a, tea.Batch(a.triggerFailure(), loadSnapshot(a.store))
	}
	return a, cmd
}

func (a App) triggerFailure() tea.Cmd {
	ev := a.store.TriggerFailure()
	return statusCmd(fmt.Sprintf("Failure logged (%d today)", a.store.FailureCount(ev.Day)), true)
}

// --- Rendering ---

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()
	banner := a.renderFailureBanner()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewPomodoro:
		content = a.pomodoro.view()
	case viewReview:
		content = a.review.view()
	case viewJournal:
		content = a.journal.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	contentHeight := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if banner != "" {
		contentHeight -= lipgloss.Height(banner)
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch {
	case a.failing && a.failForm != nil:
		content = activePanelStyle.Width(a.width - 4).Render(a.failForm.View())
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	parts := []string{header}
	if banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("protocol")
	done, total := a.snap.Today.TasksCompleted, a.snap.Today.TotalTasks
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	stats := mutedStyle.Render(fmt.Sprintf("  %s  streak %d  %d%%", a.snap.Day, a.snap.Streak, pct))

	gap := a.width - lipgloss.Width(title) - lipgloss.Width(stats) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, stats, spacer, tabRow),
	)
}

func (a App) renderFailureBanner() string {
	if !a.snap.FailureActive {
		return ""
	}
	left := a.store.FailureRemaining()
	text := fmt.Sprintf("FAILURE LOGGED  %ds", int((left+time.Second-1)/time.Second))
	return failureBannerStyle.Width(a.width).Render(text)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	pomoInfo := ""
	if p := a.snap.ActivePomodoro; p != nil {
		pomoInfo = successStyle.Render(" ● " + formatCountdown(a.runner.Remaining()))
	}

	left := footerStyle.Render(helpView)
	right := pomoInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		snap := a.store.Snapshot()
		base := filepath.Join(a.exportDir, fmt.Sprintf("protocol-export-%s", snap.Day))

		var path string
		var err error
		switch format {
		case 0:
			path = base + ".txt"
			err = writeText(path, snap)
		case 1:
			path = base + ".csv"
			err = export.ToCSV(snap.SortedRecords(), path)
		default:
			path = base + ".json"
			err = export.ToJSON(snap, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func writeText(path string, snap store.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := export.ToText(f, snap, snap.TakenAt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
