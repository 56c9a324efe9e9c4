package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/tagstamp/internal/model"
)

const (
	// DefaultCountdownSeconds is how long auto-apply stays armed without
	// a successful application.
	DefaultCountdownSeconds = 10

	// DefaultTickInterval is the countdown resolution.
	DefaultTickInterval = 200 * time.Millisecond

	// DefaultClickInterval is the maximum gap between clicks of one gesture.
	DefaultClickInterval = 350 * time.Millisecond

	// DefaultIconTimeout bounds a single background icon load.
	DefaultIconTimeout = 2 * time.Second
)

// Preference keys read by LoadConfig.
const (
	KeyCountdownSeconds           = "autoapply.countdown_seconds"
	KeyAutoActivate               = "autoapply.auto_activate"
	KeyDeactivateIfIncompatible   = "autoapply.deactivate_if_incompatible"
	KeyClearSelectionAfterTagging = "autoapply.clear_selection_after_tagging"
	KeyArmModifiers               = "autoapply.arm_modifiers"
	KeyClickIntervalMs            = "autoapply.click_interval_ms"

	// ConfigPrefix is the common prefix of all auto-apply preference keys.
	ConfigPrefix = "autoapply."
)

// Config is the auto-apply policy.
type Config struct {
	// CountdownSeconds is the auto-off countdown. Zero disables it.
	CountdownSeconds int

	// AutoActivate arms auto-apply on a single click.
	AutoActivate bool

	// DeactivateIfIncompatible turns auto-apply off when a selection the
	// active template cannot apply to arrives.
	DeactivateIfIncompatible bool

	// ClearSelectionAfterTagging deselects features after a successful
	// application, unless the host is drawing.
	ClearSelectionAfterTagging bool

	// ArmModifiers arms auto-apply when the combination becomes held.
	ArmModifiers model.Modifiers

	ClickInterval time.Duration
	TickInterval  time.Duration
	IconTimeout   time.Duration
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() Config {
	return Config{
		CountdownSeconds:         DefaultCountdownSeconds,
		AutoActivate:             true,
		DeactivateIfIncompatible: true,
		ArmModifiers:             model.Modifiers{Alt: true},
		ClickInterval:            DefaultClickInterval,
		TickInterval:             DefaultTickInterval,
		IconTimeout:              DefaultIconTimeout,
	}
}

// ScalarSource reads scalar preferences. store.Backend implements it.
type ScalarSource interface {
	Scalar(ctx context.Context, key string) (string, bool, error)
}

// LoadConfig reads the policy from preferences. Missing keys keep their
// defaults; values that do not parse are logged and ignored.
func LoadConfig(ctx context.Context, src ScalarSource, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()

	read := func(key string) (string, bool) {
		v, ok, err := src.Scalar(ctx, key)
		if err != nil {
			logger.Warn("config read failed", "key", key, "error", err)
			return "", false
		}
		return v, ok
	}
	invalid := func(key, value string, err error) {
		logger.Warn("ignoring invalid config value", "key", key, "value", value, "error", err)
	}

	if v, ok := read(KeyCountdownSeconds); ok {
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			invalid(KeyCountdownSeconds, v, err)
		} else {
			cfg.CountdownSeconds = n
		}
	}
	for key, dst := range map[string]*bool{
		KeyAutoActivate:               &cfg.AutoActivate,
		KeyDeactivateIfIncompatible:   &cfg.DeactivateIfIncompatible,
		KeyClearSelectionAfterTagging: &cfg.ClearSelectionAfterTagging,
	} {
		if v, ok := read(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				invalid(key, v, err)
				continue
			}
			*dst = b
		}
	}
	if v, ok := read(KeyArmModifiers); ok {
		if m, err := model.ParseModifiers(v); err != nil {
			invalid(KeyArmModifiers, v, err)
		} else {
			cfg.ArmModifiers = m
		}
	}
	if v, ok := read(KeyClickIntervalMs); ok {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			invalid(KeyClickIntervalMs, v, err)
		} else {
			cfg.ClickInterval = time.Duration(n) * time.Millisecond
		}
	}
	return cfg
}

// ConfigBackend is a ScalarSource that reports key changes.
// store.Backend implements it.
type ConfigBackend interface {
	ScalarSource
	Subscribe(prefix string, fn func(key string)) (cancel func())
}

// WatchConfig reloads the policy from src whenever a key under ConfigPrefix
// changes, and posts it to the event loop. The returned function stops
// watching.
func (e *Engine) WatchConfig(ctx context.Context, src ConfigBackend) (cancel func()) {
	return src.Subscribe(ConfigPrefix, func(key string) {
		e.log.Debug("config key changed", "event", "config", "key", key)
		e.ConfigChanged(LoadConfig(ctx, src, e.log))
	})
}
