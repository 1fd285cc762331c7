package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/clock"
	"github.com/sadopc/protocol/internal/export"
	"github.com/sadopc/protocol/internal/store"
)

// savedAtReporter is implemented by channels that track write times.
type savedAtReporter interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, error)
}

type StatusCmd struct {
	flags *Flags
	app   *App

	// flags
	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show today's tasks, streak and progress",
		UsageText: "protocol status [--json]",
		Description: `Opens the current discipline day if a 04:00 boundary has passed since the
last run, then prints the task sequence with completion and lock state.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the full snapshot as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	snap := cmd.app.Store.Snapshot()
	w := c.Root().Writer

	if cmd.jsonOutput {
		data, err := export.MarshalJSON(snap)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "Day %s  streak %d  progress %d/%d (%d%%)\n",
		snap.Day, snap.Streak, snap.Today.TasksCompleted, snap.Today.TotalTasks,
		cmd.app.Store.ProgressPercent())
	now := cmd.app.Store.Now()
	if next, ok := clock.Boundary(clock.NextDayID(snap.Day), now.Location()); ok {
		fmt.Fprintf(w, "Next reset %s (in %s)\n", next.Format("2006-01-02 15:04"),
			next.Sub(now).Truncate(time.Minute))
	}
	if r, ok := cmd.app.Channel.(savedAtReporter); ok {
		if at, err := r.UpdatedAt(ctx, store.StateKey); err == nil {
			fmt.Fprintf(w, "Saved %s\n", at.Local().Format("2006-01-02 15:04:05"))
		}
	}
	if _, ok := cmd.app.Store.ProtocolStarted(); !ok {
		fmt.Fprintln(w, "Protocol not initiated for today")
	}
	if snap.ActivePomodoro == nil && snap.Settings.EnforcePomodoro {
		fmt.Fprintln(w, "Pomodoro enforcement is on: completing a task needs its countdown")
	}
	if len(snap.LockedTaskIDs) > 0 {
		fmt.Fprintf(w, "Locked: %s\n", strings.Join(snap.LockedTaskIDs, ", "))
	}
	fmt.Fprintln(w, export.TasksTable(snap.Tasks))
	return nil
}
