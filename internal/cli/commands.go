package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ordset/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply migrations",
		Long: `Create the SQLite database if it does not exist, apply the schema and
migrations, and install or drop the unique position index to match
store.strict_ordering. Safe to run repeatedly.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				return a.out.Success(InitView{Path: a.cfg.Store.Path, StrictOrdering: a.store.Strict()})
			})
		},
	}
}

// InitView is the result of "ordset init".
type InitView struct {
	Path           string `json:"path"`
	StrictOrdering bool   `json:"strict_ordering"`
}

func (v InitView) String() string {
	return fmt.Sprintf("database ready: %s (strict ordering: %t)", v.Path, v.StrictOrdering)
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every ordering is dense",
		Long: `Verify that the active items of every (list, category) hold exactly
the positions 0..n-1. Exits with status 1 when any ordering is broken.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				reports, err := a.store.CheckOrdering(cmd.Context(), nil)
				if err != nil {
					return a.out.Fail("failed to check orderings", err)
				}
				view := CheckView{Subsets: reports}
				for _, r := range reports {
					if !r.Dense {
						view.Broken++
					}
				}
				if view.Broken > 0 {
					if err := a.out.Error(ErrCodeCheck, fmt.Sprintf("%d ordering(s) broken", view.Broken), view); err != nil {
						return err
					}
					return NewExitError(ExitFailure, "check failed")
				}
				return a.out.Success(view)
			})
		},
	}
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration files",
	}
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	return cmd
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a CUE config file and print the effective settings",
		Long: `Validate a CUE config file against the ordset schema and print the
effective configuration, defaults included. Without an argument the file
given by --config is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return NewExitError(ExitCommandError, "no config file given")
			}

			cfg, err := config.Load(path)
			if err != nil {
				var cfgErr *config.Error
				if errors.As(err, &cfgErr) {
					if werr := out.Error(ErrCodeConfig, cfgErr.Error(), map[string]any{"field": cfgErr.Field}); werr != nil {
						return werr
					}
					return WrapExitError(ExitFailure, "invalid config", err)
				}
				if werr := out.Error(ErrCodeConfig, err.Error(), nil); werr != nil {
					return werr
				}
				return WrapExitError(ExitCommandError, "failed to read config", err)
			}
			out.VerboseLog("config %s is valid", path)
			return out.Success(ConfigView{Config: cfg})
		},
	}
}

// ConfigView prints an effective configuration.
type ConfigView struct {
	*config.Config
}

func (v ConfigView) String() string {
	return fmt.Sprintf("store.path: %s\nstore.busy_timeout_ms: %d\nstore.strict_ordering: %t\nordering.compact_moves: %t",
		v.Store.Path, v.Store.BusyTimeoutMS, v.Store.StrictOrdering, v.Ordering.CompactMoves)
}
