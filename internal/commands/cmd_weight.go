package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/export"
	"github.com/sadopc/protocol/internal/store"
)

type WeightCmd struct {
	flags *Flags
	app   *App

	// flags
	unit string
}

// NewWeightCmd creates a new weight command
func NewWeightCmd(flags *Flags, app *App) *WeightCmd {
	return &WeightCmd{flags: flags, app: app}
}

// Register adds the weight command to the application
func (cmd *WeightCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "weight",
		Usage: "Log and list body weight",
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.listCmd(),
		},
	})

	return app
}

func (cmd *WeightCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Record a weight measurement taken now",
		UsageText: "protocol weight add VALUE [--unit kg|lb]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "unit",
				Aliases:     []string{"u"},
				Usage:       "kg or lb",
				Value:       string(store.UnitKilograms),
				Destination: &cmd.unit,
			},
		},
		Action: cmd.runAdd,
	}
}

func (cmd *WeightCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:    "ls",
		Aliases: []string{"list"},
		Usage:   "List weight measurements",
		Action:  cmd.runList,
	}
}

func (cmd *WeightCmd) runAdd(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("weight add takes exactly one VALUE")
	}
	v, err := strconv.ParseFloat(c.Args().Get(0), 64)
	if err != nil {
		return fmt.Errorf("parse weight %q: %w", c.Args().Get(0), err)
	}

	e, err := cmd.app.Store.LogWeight(v, store.WeightUnit(cmd.unit))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Root().Writer, "Logged %s %s\n", strconv.FormatFloat(e.Value, 'f', -1, 64), e.Unit)
	return nil
}

func (cmd *WeightCmd) runList(_ context.Context, c *cli.Command) error {
	entries := cmd.app.Store.WeightLog()
	if len(entries) == 0 {
		fmt.Fprintln(c.Root().Writer, "No weight entries")
		return nil
	}
	fmt.Fprintln(c.Root().Writer, export.WeightsTable(entries))
	return nil
}
