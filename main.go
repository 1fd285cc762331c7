package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/sadopc/protocol/internal/commands"
	"github.com/sadopc/protocol/internal/config"
	"github.com/sadopc/protocol/internal/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		protoApp  = &commands.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "protocol",
		Usage:     "Daily discipline protocol with streaks, pomodoros and a failure signal",
		UsageText: "protocol [global options] command [command options]",
		Description: `protocol tracks a fixed sequence of daily tasks. A discipline day runs from
04:00 to 04:00 local time; at each boundary the closing day is archived and the
streak advances only if every task was done.

Run 'protocol' with no arguments to open the interactive dashboard.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("PROTOCOL_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/protocol.log)",
				Sources:     cli.EnvVars("PROTOCOL_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("PROTOCOL_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("PROTOCOL_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := os.MkdirAll(flags.DataDir, 0o755); err != nil {
				return ctx, fmt.Errorf("create data dir: %w", err)
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			// Flags win over the config file
			level := flags.LogLevel
			if !c.IsSet("log-level") {
				level = cfg.Log.Level
			}
			// Always log to a file so the TUI owns the terminal
			logFile := flags.LogFile
			if logFile == "" {
				logFile = cfg.Log.File
			}
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "protocol.log")
			}

			logger, closer, err := logutils.New(level, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			if err := protoApp.Open(ctx, cfg, log.Logger); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := protoApp.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close storage")
				return err
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, protoApp)

	app = tuiCmd.Register(app)
	app = commands.NewStatusCmd(flags, protoApp).Register(app)
	app = commands.NewTaskCmd(flags, protoApp).Register(app)
	app = commands.NewFailCmd(flags, protoApp).Register(app)
	app = commands.NewWeightCmd(flags, protoApp).Register(app)
	app = commands.NewHistoryCmd(flags, protoApp).Register(app)
	app = commands.NewExportCmd(flags, protoApp).Register(app)
	app = commands.NewSettingsCmd(flags, protoApp).Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'protocol --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
