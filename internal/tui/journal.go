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

type journalModel struct {
	store  *store.Store
	width  int
	height int

	snap store.Snapshot

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	intent *string
	mood   *int
	weight *string
	unit   *string
}

func newJournalModel(s *store.Store) journalModel {
	intent, weight, unit := "", "", string(store.UnitKilograms)
	mood := 0
	return journalModel{
		store:  s,
		intent: &intent,
		mood:   &mood,
		weight: &weight,
		unit:   &unit,
	}
}

func (j *journalModel) setSize(w, h int) {
	j.width = w
	j.height = h
}

func (j *journalModel) setSnapshot(snap store.Snapshot) {
	j.snap = snap
}

func (j journalModel) today() store.DailyEntry {
	e, _ := j.store.DailyEntry(j.store.Day())
	return e
}

func (j journalModel) update(msg tea.Msg) (journalModel, tea.Cmd) {
	if j.formActive && j.form != nil {
		return j.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return j.showForm()
		}
	}
	return j, nil
}

func (j journalModel) showForm() (journalModel, tea.Cmd) {
	entry := j.today()
	*j.intent = entry.Intent
	*j.mood = entry.Mood
	*j.weight = ""

	moods := make([]huh.Option[int], 0, store.MaxMood+1)
	moods = append(moods, huh.NewOption("not set", 0))
	for i := 1; i <= store.MaxMood; i++ {
		moods = append(moods, huh.NewOption(strings.Repeat("★", i), i))
	}

	j.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Intent for today").
				Placeholder("What does a won day look like?").
				Value(j.intent),
			huh.NewSelect[int]().Title("Mood").
				Options(moods...).
				Value(j.mood),
		).Title("Journal"),
		huh.NewGroup(
			huh.NewInput().Title("Weight (leave empty to skip)").
				Validate(validateWeight).
				Value(j.weight),
			huh.NewSelect[string]().Title("Unit").
				Options(
					huh.NewOption("kg", string(store.UnitKilograms)),
					huh.NewOption("lb", string(store.UnitPounds)),
				).Value(j.unit),
		).Title("Weight"),
	).WithShowHelp(true).WithShowErrors(true)

	j.formActive = true
	return j, j.form.Init()
}

func validateWeight(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func (j journalModel) updateForm(msg tea.Msg) (journalModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			j.formActive = false
			j.form = nil
			return j, nil
		}
	}

	form, cmd := j.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		j.form = f
	}

	if j.form.State == huh.StateCompleted {
		j.formActive = false
		j.form = nil
		return j, tea.Batch(j.save(), loadSnapshot(j.store))
	}

	return j, cmd
}

func (j journalModel) save() tea.Cmd {
	if err := j.store.SetIntent(*j.intent); err != nil {
		return statusCmd(fmt.Sprintf("Error: %v", err), true)
	}
	if err := j.store.SetMood(*j.mood); err != nil {
		return statusCmd(fmt.Sprintf("Error: %v", err), true)
	}
	if w := strings.TrimSpace(*j.weight); w != "" {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return statusCmd(fmt.Sprintf("Error: %v", err), true)
		}
		if _, err := j.store.LogWeight(v, store.WeightUnit(*j.unit)); err != nil {
			return statusCmd(fmt.Sprintf("Error: %v", err), true)
		}
	}
	return statusCmd("Journal saved", false)
}

func (j journalModel) view() string {
	w := j.width - 4
	title := titleStyle.Render("Journal")

	if j.formActive && j.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", j.form.View()),
		)
	}

	entry := j.today()
	intent := mutedStyle.Render("not set")
	if entry.Intent != "" {
		intent = highlightStyle.Render(entry.Intent)
	}
	mood := mutedStyle.Render("not set")
	if entry.Mood > 0 {
		mood = warningStyle.Render(strings.Repeat("★", entry.Mood))
	}

	rows := []string{
		fmt.Sprintf("%s  %s", title, mutedStyle.Render(string(j.snap.Day))),
		"",
		fmt.Sprintf("  %-10s %s", "Intent", intent),
		fmt.Sprintf("  %-10s %s", "Mood", mood),
		"",
		subtitleStyle.Render("  Weight"),
	}

	weights := j.snap.Weights
	if len(weights) == 0 {
		rows = append(rows, mutedStyle.Render("  no entries"))
	}
	// newest five
	for i := len(weights) - 1; i >= 0 && i >= len(weights)-5; i-- {
		e := weights[i]
		rows = append(rows, fmt.Sprintf("  %s  %s %s",
			mutedStyle.Render(e.At.Local().Format("Jan 02 15:04")),
			strconv.FormatFloat(e.Value, 'f', -1, 64), e.Unit))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to write today's entry"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
