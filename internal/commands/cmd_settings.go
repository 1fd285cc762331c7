package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type SettingsCmd struct {
	flags *Flags
	app   *App

	// flags
	order    bool
	pomodoro bool
}

// NewSettingsCmd creates a new settings command
func NewSettingsCmd(flags *Flags, app *App) *SettingsCmd {
	return &SettingsCmd{flags: flags, app: app}
}

// Register adds the settings command to the application
func (cmd *SettingsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "settings",
		Usage:     "Show or change the enforcement flags",
		UsageText: "protocol settings [--enforce-order=BOOL] [--enforce-pomodoro=BOOL]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "enforce-order",
				Usage:       "tasks unlock one at a time in sequence",
				Destination: &cmd.order,
			},
			&cli.BoolFlag{
				Name:        "enforce-pomodoro",
				Usage:       "completing a task requires its pomodoro to be running",
				Destination: &cmd.pomodoro,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SettingsCmd) run(_ context.Context, c *cli.Command) error {
	if c.IsSet("enforce-order") {
		cmd.app.Store.SetEnforceTaskOrder(cmd.order)
	}
	if c.IsSet("enforce-pomodoro") {
		cmd.app.Store.SetEnforcePomodoro(cmd.pomodoro)
	}

	s := cmd.app.Store.Settings()
	fmt.Fprintf(c.Root().Writer, "enforce-order=%t enforce-pomodoro=%t\n", s.EnforceTaskOrder, s.EnforcePomodoro)
	return nil
}
