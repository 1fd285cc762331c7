package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/clock"
	"github.com/sadopc/protocol/internal/export"
	"github.com/sadopc/protocol/internal/store"
)

type HistoryCmd struct {
	flags *Flags
	app   *App
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags, app *App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "Show archived discipline days",
		UsageText: "protocol history [YYYY-MM-DD|today|yesterday]",
		Description: `Without an argument, prints one row per archived day.

With a day id, prints that day's record. The open day is computed live.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(_ context.Context, c *cli.Command) error {
	w := c.Root().Writer

	if c.Args().Len() == 0 {
		recs := cmd.app.Store.DayRecords()
		if len(recs) == 0 {
			fmt.Fprintln(w, "No archived days yet")
			return nil
		}
		fmt.Fprintln(w, export.RecordsTable(recs))
		return nil
	}

	day := clock.DayID(c.Args().Get(0))
	switch day {
	case "today":
		day = cmd.app.Store.Day()
	case "yesterday":
		day = clock.PreviousDayID(cmd.app.Store.Day())
	}
	if !day.Valid() {
		return fmt.Errorf("invalid day %q, want YYYY-MM-DD", day)
	}
	rec, ok := cmd.app.Store.DayHistory(day)
	if !ok {
		return fmt.Errorf("no record for %s", day)
	}
	fmt.Fprintln(w, export.RecordsTable([]store.DayRecord{rec}))
	return nil
}
