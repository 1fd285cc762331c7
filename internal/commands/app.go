package commands

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sadopc/protocol/internal/clock"
	"github.com/sadopc/protocol/internal/config"
	"github.com/sadopc/protocol/internal/kv"
	"github.com/sadopc/protocol/internal/logutils"
	"github.com/sadopc/protocol/internal/store"
)

// App holds the objects built once in the root command's Before hook and
// shared by every subcommand.
type App struct {
	Config  *config.Config
	Channel kv.Channel
	Store   *store.Store
	Logger  zerolog.Logger

	// Clock overrides the wall clock the store reads; nil means real time.
	Clock clockwork.Clock
}

// Open connects the persistence channel, loads the store and delivers any
// reset a boundary crossed while nothing was running. Every subcommand
// therefore acts on the current discipline day.
func (a *App) Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ch, err := kv.Open(cfg.Storage.Backend, cfg.StoragePath(), cfg.DataDir, logutils.Component(logger, "kv"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	a.Config = cfg
	a.Channel = ch
	a.Logger = logger
	opts := []store.Option{store.WithLogger(logutils.Component(logger, "store"))}
	if a.Clock != nil {
		opts = append(opts, store.WithClock(a.Clock))
	}
	a.Store = store.New(ctx, ch, opts...)
	a.catchUp()
	return nil
}

// Close releases the persistence channel.
func (a *App) Close() error {
	if a.Channel == nil {
		return nil
	}
	return a.Channel.Close()
}

func (a *App) catchUp() {
	a.Store.PerformReset(clock.CurrentDayID(a.Store.Now()))
}
