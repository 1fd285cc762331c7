package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/store"
)

type TaskCmd struct {
	flags *Flags
	app   *App

	// flags
	category string
	minutes  int
	duration string
	desc     string
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags, app *App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task command to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Complete tasks and manage custom tasks",
		Commands: []*cli.Command{
			cmd.toggleCmd(),
			cmd.addCmd(),
			cmd.removeCmd(),
		},
	})

	return app
}

func (cmd *TaskCmd) toggleCmd() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Aliases:   []string{"done"},
		Usage:     "Flip a task's completion for today",
		UsageText: "protocol task toggle ID",
		Description: "Built-in IDs in unlock order: " + builtinIDs() +
			".\nCustom task IDs are printed by 'task add' and 'status'.",
		Action: cmd.runToggle,
	}
}

func builtinIDs() string {
	defs := store.Builtins()
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return strings.Join(ids, ", ")
}

func (cmd *TaskCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Append a custom task to the sequence",
		UsageText: "protocol task add LABEL [--category C] [--minutes N]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "category",
				Usage:       "physical, cognitive or intellectual",
				Value:       string(store.CategoryCognitive),
				Destination: &cmd.category,
			},
			&cli.IntFlag{
				Name:        "minutes",
				Usage:       "pomodoro length in minutes",
				Destination: &cmd.minutes,
			},
			&cli.StringFlag{
				Name:        "duration",
				Usage:       "nominal duration shown next to the task",
				Destination: &cmd.duration,
			},
			&cli.StringFlag{
				Name:        "description",
				Destination: &cmd.desc,
			},
		},
		Action: cmd.runAdd,
	}
}

func (cmd *TaskCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a custom task",
		UsageText: "protocol task rm ID",
		Action:    cmd.runRemove,
	}
}

func (cmd *TaskCmd) runToggle(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("task toggle takes exactly one ID")
	}
	id := c.Args().Get(0)

	t, ok := cmd.app.Store.Task(id)
	if !ok {
		return fmt.Errorf("unknown task %q", id)
	}
	if !cmd.app.Store.Toggle(id) {
		switch {
		case t.Locked:
			return fmt.Errorf("task %q is locked until the tasks before it are done", id)
		case cmd.app.Store.Settings().EnforcePomodoro:
			return fmt.Errorf("task %q needs its pomodoro running to be completed", id)
		}
		return fmt.Errorf("task %q could not be toggled", id)
	}

	t, _ = cmd.app.Store.Task(id)
	state := "open"
	if t.Completed {
		state = "done"
	}
	fmt.Fprintf(c.Root().Writer, "%s: %s (%d%%)\n", t.Label, state, cmd.app.Store.ProgressPercent())
	return nil
}

func (cmd *TaskCmd) runAdd(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("task add takes exactly one LABEL")
	}

	t, err := cmd.app.Store.AddCustomTask(store.NewCustomTask{
		Label:           c.Args().Get(0),
		Category:        store.Category(cmd.category),
		Duration:        cmd.duration,
		Description:     cmd.desc,
		PomodoroMinutes: cmd.minutes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Root().Writer, "Added %s (%s)\n", t.Label, t.ID)
	return nil
}

func (cmd *TaskCmd) runRemove(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("task rm takes exactly one ID")
	}
	id := c.Args().Get(0)
	if !cmd.app.Store.RemoveCustomTask(id) {
		return fmt.Errorf("no custom task %q", id)
	}
	fmt.Fprintf(c.Root().Writer, "Removed %s\n", id)
	return nil
}
