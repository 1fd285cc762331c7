package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/logutils"
	"github.com/sadopc/protocol/internal/pomodoro"
	"github.com/sadopc/protocol/internal/scheduler"
	"github.com/sadopc/protocol/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *App
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *App) *TuiCmd {
	return &TuiCmd{
		flags: flags,
		app:   app,
	}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive dashboard",
		Action: cmd.run,
	})

	return app
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	s := cmd.app.Store

	sched, err := scheduler.New(s, scheduler.WithLogger(logutils.Component(cmd.app.Logger, "scheduler")))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	// Start delivers the catch-up reset before the first frame is drawn.
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop scheduler")
		}
	}()
	if next, ok := sched.NextRun(); ok {
		cmd.app.Logger.Info().Time("next_reset", next).Str("day", s.Day().String()).Msg("dashboard opened")
	}

	runner := pomodoro.New(s, pomodoro.WithLogger(logutils.Component(cmd.app.Logger, "pomodoro")))
	defer runner.Stop()

	m := tui.NewApp(s, runner, cmd.app.Config.Pomodoro.Tick)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	runner.OnExpire = func(taskID string, completed bool) {
		p.Send(tui.PomodoroDoneMsg{TaskID: taskID, Completed: completed})
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
