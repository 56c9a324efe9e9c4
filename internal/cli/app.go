package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/host"
	"github.com/roach88/tagstamp/internal/store"
)

// App is the per-invocation wiring of the preference store and the catalog.
// Commands that drive the palette add an engine on top with NewEngine.
type App struct {
	Log     *slog.Logger
	Store   store.Backend
	Catalog *catalog.Catalog

	close func() error
}

// newLogger builds the CLI logger. Verbose switches the level to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp opens the database named by --db, creating its directory, and
// loads the catalog from it. Logs go to logw.
func openApp(ctx context.Context, opts *RootOptions, logw io.Writer) (*App, error) {
	logger := newLogger(logw, opts.Verbose)
	slog.SetDefault(logger)

	if dir := filepath.Dir(opts.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return newApp(ctx, st, st.Close, logger), nil
}

func newApp(ctx context.Context, backend store.Backend, closeFn func() error, logger *slog.Logger) *App {
	cat := catalog.New(backend, catalog.WithLogger(logger))
	if cat.Load(ctx) {
		logger.Info("using built-in templates", "event", "catalog_defaults", "entries", cat.Len())
	}
	return &App{
		Log:     logger,
		Store:   backend,
		Catalog: cat,
		close:   closeFn,
	}
}

// Close releases the database.
func (a *App) Close() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		a.Log.Error("error closing database", "error", err)
	}
}

// Persist saves the catalog, as at the end of a palette session.
func (a *App) Persist() {
	if err := a.Catalog.Save(context.Background()); err != nil {
		a.Log.Error("failed to save catalog", "event", "catalog_save", "error", err)
	}
}

// EngineOptions selects the collaborators of an engine built by NewEngine.
type EngineOptions struct {
	// Countdown overrides the stored countdown preference when >= 0.
	Countdown int
	// IconDir is the root for template icon references. Empty disables icons.
	IconDir string
}

// NewEngine builds an engine whose editor side is hub: the hub is the
// selection provider and the feature mutator, and copies are broadcast to
// it with the system clipboard as fallback. The returned function stops
// watching configuration.
func (a *App) NewEngine(ctx context.Context, hub *host.Hub, opts EngineOptions) (*engine.Engine, func()) {
	src := configSource(a.Store, opts.Countdown)
	eng := engine.New(a.Catalog,
		engine.WithConfig(engine.LoadConfig(ctx, src, a.Log)),
		engine.WithLogger(a.Log),
		engine.WithSelectionProvider(hub),
		engine.WithMutator(hub),
		engine.WithClipboard(host.BroadcastClipboard{Hub: hub, Fallback: host.SystemClipboard{}}),
		engine.WithIconSource(host.DirIconSource{Root: opts.IconDir, Log: a.Log}),
	)
	a.Catalog.OnChange(func() { eng.CatalogChanged() })
	return eng, eng.WatchConfig(ctx, src)
}

// countdownOverride pins the countdown preference to a flag value while
// passing every other key through.
type countdownOverride struct {
	engine.ConfigBackend
	seconds string
}

func configSource(backend engine.ConfigBackend, countdown int) engine.ConfigBackend {
	if countdown < 0 {
		return backend
	}
	return countdownOverride{ConfigBackend: backend, seconds: strconv.Itoa(countdown)}
}

func (o countdownOverride) Scalar(ctx context.Context, key string) (string, bool, error) {
	if key == engine.KeyCountdownSeconds {
		return o.seconds, true, nil
	}
	return o.ConfigBackend.Scalar(ctx, key)
}

// signalContext derives a context that is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// commandContext returns the command's context, or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withApp opens the app for the duration of fn.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := commandContext(cmd)
	app, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func errUnknownTemplate(ref string) error {
	return NewExitError(ExitCommandError, fmt.Sprintf("unknown template: %s", ref))
}
