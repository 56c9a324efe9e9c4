package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/host"
	"github.com/roach88/tagstamp/internal/tui"
)

// PaletteOptions holds flags for the palette command.
type PaletteOptions struct {
	*RootOptions
	Addr      string
	Countdown int
	Icons     string
	LogFile   string
}

// NewPaletteCommand creates the palette command.
func NewPaletteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaletteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Open the template palette in the terminal",
		Long: `Show the catalog as a column palette.

Keys: enter applies the template under the cursor, c copies it, n creates
a node, a arms auto-apply (A without countdown), t toggles and x turns it
off. K and J reorder, d deletes, s inserts a separator and r renames.

With --addr, the editor host is served alongside the palette so that an
editor can connect and receive the mutations. Logs go to --log because the
terminal belongs to the palette.

Examples:
  tagstamp palette
  tagstamp palette --addr 127.0.0.1:7878`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPalette(opts, cmd)
		},
	}

	addServeFlags(cmd, &opts.Countdown, &opts.Icons)
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "also serve the editor host on this address")
	cmd.Flags().StringVar(&opts.LogFile, "log", filepath.Join(DataDir(appName), "palette.log"), "log file")

	return cmd
}

func runPalette(opts *PaletteOptions, cmd *cobra.Command) error {
	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create log directory", err)
	}
	logFile, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer logFile.Close()

	app, err := openApp(commandContext(cmd), opts.RootOptions, logFile)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext(cmd, app.Log)
	defer cancel()

	hub := host.NewHub(app.Log)
	eng, stopWatch := app.NewEngine(ctx, hub, EngineOptions{Countdown: opts.Countdown, IconDir: opts.Icons})
	defer stopWatch()

	var serveErr <-chan error
	if opts.Addr != "" {
		srv := host.NewServer(eng, app.Catalog, hub, host.WithServerLogger(app.Log))
		errc := make(chan error, 1)
		go func() { errc <- srv.Serve(ctx, opts.Addr) }()
		serveErr = errc
	}
	engineErr := runEngine(ctx, eng)

	uiErr := tui.Run(ctx, app.Catalog, eng)
	cancel()
	app.Persist()

	if serveErr != nil {
		if err := <-serveErr; err != nil {
			return WrapExitError(ExitCommandError, "host error", err)
		}
	}
	if err := <-engineErr; err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if uiErr != nil {
		return WrapExitError(ExitFailure, "palette error", uiErr)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "logs: %s\n", opts.LogFile)
	return nil
}
