package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/export"
)

type ExportCmd struct {
	flags *Flags
	app   *App

	// flags
	format string
	out    string
}

// NewExportCmd creates a new export command
func NewExportCmd(flags *Flags, app *App) *ExportCmd {
	return &ExportCmd{flags: flags, app: app}
}

// Register adds the export command to the application
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Export the protocol state",
		UsageText: "protocol export [--format text|csv|json] [--out PATH]",
		Description: `Writes a report of the current state. text is a readable report, csv is
the day archive one row per day, json is the full state without the running
countdown. Without --out the report goes to stdout.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "text, csv or json",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output file",
				Destination: &cmd.out,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExportCmd) run(_ context.Context, c *cli.Command) error {
	snap := cmd.app.Store.Snapshot()
	w := c.Root().Writer

	if cmd.out != "" {
		var err error
		switch cmd.format {
		case "csv":
			err = export.ToCSV(snap.SortedRecords(), cmd.out)
		case "json":
			err = export.ToJSON(snap, cmd.out)
		case "text":
			err = writeTextFile(cmd.out, func(f *os.File) error {
				return export.ToText(f, snap, snap.TakenAt)
			})
		default:
			return fmt.Errorf("unknown format %q", cmd.format)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Exported %s to %s\n", cmd.format, cmd.out)
		return nil
	}

	switch cmd.format {
	case "csv":
		return export.WriteCSV(w, snap.SortedRecords())
	case "json":
		data, err := export.MarshalJSON(snap)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		return export.ToText(w, snap, snap.TakenAt)
	}
	return fmt.Errorf("unknown format %q", cmd.format)
}

func writeTextFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
