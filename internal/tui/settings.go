package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/protocol/internal/store"
)

type settingsForm int

const (
	formEnforcement settingsForm = iota
	formCustomTask
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings store.Settings
	custom   []store.CustomTask
	cursor   int

	formActive bool
	form       *huh.Form
	formType   settingsForm

	// Form values as pointers (survive value copies)
	enforceOrder    *bool
	enforcePomodoro *bool
	taskLabel       *string
	taskCategory    *string
	taskMinutes     *string
	taskDuration    *string
	taskDescription *string
}

func newSettingsModel(s *store.Store) settingsModel {
	order, pomo := false, false
	label, cat, mins, dur, desc := "", "", "", "", ""
	return settingsModel{
		store:           s,
		enforceOrder:    &order,
		enforcePomodoro: &pomo,
		taskLabel:       &label,
		taskCategory:    &cat,
		taskMinutes:     &mins,
		taskDuration:    &dur,
		taskDescription: &desc,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings store.Settings
	custom   []store.CustomTask
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{settings: s.store.Settings(), custom: s.store.CustomTasks()}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(settingsDataMsg); ok {
		s.settings = msg.settings
		s.custom = msg.custom
		if s.cursor >= len(s.custom) {
			s.cursor = max(0, len(s.custom)-1)
		}
		return s, nil
	}
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.custom)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Enter):
			return s.showEnforcementForm()
		case key.Matches(msg, keys.New):
			return s.showCustomTaskForm()
		case key.Matches(msg, keys.Delete):
			if len(s.custom) == 0 {
				return s, nil
			}
			t := s.custom[s.cursor]
			if !s.store.RemoveCustomTask(t.ID) {
				return s, statusCmd("Could not remove "+t.Label, true)
			}
			return s, tea.Batch(s.refresh(), loadSnapshot(s.store), statusCmd("Removed "+t.Label, false))
		}
	}
	return s, nil
}

func (s settingsModel) showEnforcementForm() (settingsModel, tea.Cmd) {
	*s.enforceOrder = s.settings.EnforceTaskOrder
	*s.enforcePomodoro = s.settings.EnforcePomodoro

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Enforce task order").
				Description("Tasks unlock one at a time in sequence").
				Value(s.enforceOrder),
			huh.NewConfirm().Title("Enforce pomodoro").
				Description("A task can only be completed while its countdown runs").
				Value(s.enforcePomodoro),
		).Title("Enforcement"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formType = formEnforcement
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showCustomTaskForm() (settingsModel, tea.Cmd) {
	*s.taskLabel = ""
	*s.taskCategory = string(store.CategoryCognitive)
	*s.taskMinutes = "25"
	*s.taskDuration = ""
	*s.taskDescription = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Label").
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return fmt.Errorf("label is required")
					}
					return nil
				}).
				Value(s.taskLabel),
			huh.NewSelect[string]().Title("Category").
				Options(
					huh.NewOption("Physical", string(store.CategoryPhysical)),
					huh.NewOption("Cognitive", string(store.CategoryCognitive)),
					huh.NewOption("Intellectual", string(store.CategoryIntellectual)),
				).Value(s.taskCategory),
			huh.NewInput().Title("Pomodoro (min)").
				Validate(func(v string) error {
					if n, err := strconv.Atoi(v); err != nil || n <= 0 {
						return fmt.Errorf("enter a positive whole number")
					}
					return nil
				}).
				Value(s.taskMinutes),
			huh.NewInput().Title("Nominal duration").Placeholder("e.g. 30 min").Value(s.taskDuration),
			huh.NewText().Title("Description").Value(s.taskDescription),
		).Title("New custom task"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formType = formCustomTask
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, tea.Batch(s.save(), s.refresh(), loadSnapshot(s.store))
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	switch s.formType {
	case formEnforcement:
		s.store.SetEnforceTaskOrder(*s.enforceOrder)
		s.store.SetEnforcePomodoro(*s.enforcePomodoro)
		return statusCmd("Settings saved", false)
	case formCustomTask:
		mins, _ := strconv.Atoi(*s.taskMinutes)
		t, err := s.store.AddCustomTask(store.NewCustomTask{
			Label:           *s.taskLabel,
			Category:        store.Category(*s.taskCategory),
			Duration:        *s.taskDuration,
			Description:     *s.taskDescription,
			PomodoroMinutes: mins,
		})
		if err != nil {
			return statusCmd(fmt.Sprintf("Error: %v", err), true)
		}
		return statusCmd("Added "+t.Label, false)
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, fmt.Sprintf("  %s %s",
		lipgloss.NewStyle().Width(24).Render("Enforce task order"), formatFlag(s.settings.EnforceTaskOrder)))
	rows = append(rows, fmt.Sprintf("  %s %s",
		lipgloss.NewStyle().Width(24).Render("Enforce pomodoro"), formatFlag(s.settings.EnforcePomodoro)))
	rows = append(rows, "")
	rows = append(rows, subtitleStyle.Render("  Custom tasks"))

	if len(s.custom) == 0 {
		rows = append(rows, mutedStyle.Render("  none"))
	}
	for i, t := range s.custom {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s", cursor, categoryDot(string(t.Category)),
			style.Render(t.Label), mutedStyle.Render(fmt.Sprintf("%d min", t.PomodoroMinutes))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("enter: edit flags  n: new task  d: delete task"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatFlag(on bool) string {
	if on {
		return successStyle.Render("on")
	}
	return mutedStyle.Render("off")
}
