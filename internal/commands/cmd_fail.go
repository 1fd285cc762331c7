package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type FailCmd struct {
	flags *Flags
	app   *App

	// flags
	yes bool
}

// NewFailCmd creates a new fail command
func NewFailCmd(flags *Flags, app *App) *FailCmd {
	return &FailCmd{flags: flags, app: app}
}

// Register adds the fail command to the application
func (cmd *FailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "fail",
		Usage:     "Log a failure for the current discipline day",
		UsageText: "protocol fail --yes",
		Description: `Appends a failure event. The streak and task completion are not touched.
Failures cannot be undone, so --yes is required.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "confirm the failure",
				Destination: &cmd.yes,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *FailCmd) run(_ context.Context, c *cli.Command) error {
	if !cmd.yes {
		return fmt.Errorf("refusing to log a failure without --yes")
	}

	ev := cmd.app.Store.TriggerFailure()
	fmt.Fprintf(c.Root().Writer, "Failure logged for %s (%d today)\n",
		ev.Day, cmd.app.Store.FailureCount(ev.Day))
	return nil
}
