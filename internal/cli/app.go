package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ordset/internal/config"
	"github.com/roach88/ordset/internal/crud"
	"github.com/roach88/ordset/internal/store"
)

// app is the state shared by item commands: the store and the item
// service built from the configuration.
type app struct {
	cfg   *config.Config
	store *store.Store
	items *crud.Service[*store.Item]
	out   *OutputFormatter
}

// loadConfig reads --config (or the defaults) and applies --db.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	return cfg, nil
}

// openApp loads the configuration and opens the store. Failures are
// reported through the formatter and returned as ExitErrors.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	out := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	out.VerboseLog("opening database %s (strict=%t)", cfg.Store.Path, cfg.Store.StrictOrdering)
	st, err := store.Open(cfg.Store.Path, cfg.StoreOptions())
	if err != nil {
		_ = out.Error(ErrCodeOpenFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	items := crud.NewItems(st.Ordering(),
		crud.WithOrdering[*store.Item](cfg.OrderingOptions()...),
		crud.WithLogger[*store.Item](slog.Default()),
	)
	return &app{cfg: cfg, store: st, items: items, out: out}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// withApp runs fn with an open app and closes it afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// getItem loads an item, reporting a missing ID as E005.
func (a *app) getItem(cmd *cobra.Command, id string) (*store.Item, error) {
	item, err := a.store.GetItem(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = a.out.Error(ErrCodeNotFound, "item not found: "+id, nil)
			return nil, WrapExitError(ExitFailure, "item not found", err)
		}
		return nil, a.out.Fail("failed to read item", err)
	}
	return item, nil
}
