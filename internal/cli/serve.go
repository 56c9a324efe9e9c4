package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/host"
)

// DefaultAddr is the default host listen address.
const DefaultAddr = "127.0.0.1:7878"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Countdown int
	Icons     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine behind the HTTP and websocket host",
		Long: `Start the event loop and the editor host.

The editor connects to /api/ws to receive mutation commands and posts its
selection and modifier state to the HTTP API. The engine runs until
interrupted.

Examples:
  tagstamp serve
  tagstamp serve --addr :7878 --countdown 5 --icons ./icons`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	addServeFlags(cmd, &opts.Countdown, &opts.Icons)
	cmd.Flags().StringVar(&opts.Addr, "addr", DefaultAddr, "listen address")

	return cmd
}

func addServeFlags(cmd *cobra.Command, countdown *int, icons *string) {
	cmd.Flags().IntVar(countdown, "countdown", -1, "auto-off countdown in seconds (-1 = stored preference, 0 = none)")
	cmd.Flags().StringVar(icons, "icons", "", "directory that template icon references resolve against")
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	app, err := openApp(commandContext(cmd), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext(cmd, app.Log)
	defer cancel()

	hub := host.NewHub(app.Log)
	eng, stopWatch := app.NewEngine(ctx, hub, EngineOptions{Countdown: opts.Countdown, IconDir: opts.Icons})
	defer stopWatch()
	srv := host.NewServer(eng, app.Catalog, hub, host.WithServerLogger(app.Log))

	engineErr := runEngine(ctx, eng)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", opts.Addr)
	serveErr := srv.Serve(ctx, opts.Addr)
	cancel()
	app.Persist()

	if err := <-engineErr; err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if serveErr != nil {
		return WrapExitError(ExitCommandError, "host error", serveErr)
	}
	app.Log.Info("engine stopped gracefully")
	return nil
}

// runEngine starts the event loop and reports its exit. Cancellation is a
// clean exit.
func runEngine(ctx context.Context, eng *engine.Engine) <-chan error {
	errc := make(chan error, 1)
	go func() {
		err := eng.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
		errc <- err
	}()
	return errc
}
