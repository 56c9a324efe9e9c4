package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// configKeys validates values for the auto-apply preferences.
var configKeys = map[string]func(string) error{
	engine.KeyCountdownSeconds:           nonNegativeInt,
	engine.KeyAutoActivate:               parseBool,
	engine.KeyDeactivateIfIncompatible:   parseBool,
	engine.KeyClearSelectionAfterTagging: parseBool,
	engine.KeyArmModifiers: func(s string) error {
		_, err := model.ParseModifiers(s)
		return err
	},
	engine.KeyClickIntervalMs: func(s string) error {
		n, err := strconv.Atoi(s)
		if err == nil && n <= 0 {
			err = fmt.Errorf("must be positive")
		}
		return err
	},
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err == nil && n < 0 {
		err = fmt.Errorf("must not be negative")
	}
	return err
}

func parseBool(s string) error {
	_, err := strconv.ParseBool(s)
	return err
}

// ConfigReport lists the effective policy values by preference key.
type ConfigReport struct {
	Values map[string]string `json:"values"`
}

// Text renders one key=value line per preference, sorted by key.
func (r ConfigReport) Text() string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, r.Values[k])
	}
	return b.String()
}

func newConfigReport(cfg engine.Config) ConfigReport {
	return ConfigReport{Values: map[string]string{
		engine.KeyCountdownSeconds:           strconv.Itoa(cfg.CountdownSeconds),
		engine.KeyAutoActivate:               strconv.FormatBool(cfg.AutoActivate),
		engine.KeyDeactivateIfIncompatible:   strconv.FormatBool(cfg.DeactivateIfIncompatible),
		engine.KeyClearSelectionAfterTagging: strconv.FormatBool(cfg.ClearSelectionAfterTagging),
		engine.KeyArmModifiers:               cfg.ArmModifiers.String(),
		engine.KeyClickIntervalMs:            strconv.FormatInt(cfg.ClickInterval.Milliseconds(), 10),
	}}
}

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change auto-apply preferences",
		Long: `Show or change the auto-apply preferences stored in the database.

Values are validated before they are stored. A running serve or palette
reads them on its next start.

Examples:
  tagstamp config get
  tagstamp config set autoapply.countdown_seconds 5
  tagstamp config unset autoapply.arm_modifiers`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "get",
		Short:         "Print the effective preferences",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, app *App) error {
				cfg := engine.LoadConfig(ctx, app.Store, app.Log)
				return rootOpts.formatter(cmd).Success(newConfigReport(cfg))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "set <key> <value>",
		Short:         "Store a preference",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.TrimSpace(args[1])
			validate, ok := configKeys[key]
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown preference: %s", key))
			}
			if err := validate(value); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid value for %s", key), err)
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, app *App) error {
				if err := app.Store.PutScalar(ctx, key, value); err != nil {
					return WrapExitError(ExitCommandError, "failed to store preference", err)
				}
				cfg := engine.LoadConfig(ctx, app.Store, app.Log)
				return rootOpts.formatter(cmd).Success(newConfigReport(cfg))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "unset <key>",
		Short:         "Restore a preference to its default",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if _, ok := configKeys[key]; !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown preference: %s", key))
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, app *App) error {
				if err := app.Store.Delete(ctx, key); err != nil {
					return WrapExitError(ExitCommandError, "failed to delete preference", err)
				}
				cfg := engine.LoadConfig(ctx, app.Store, app.Log)
				return rootOpts.formatter(cmd).Success(newConfigReport(cfg))
			})
		},
	})

	return cmd
}
