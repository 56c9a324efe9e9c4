package cli

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "tagstamp"

// DataDir is the per-user data directory for app: $XDG_DATA_HOME/app, or
// ~/.local/share/app when the variable is unset.
func DataDir(app string) string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, app)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", app)
	}
	return filepath.Join(home, ".local", "share", app)
}

// DefaultDatabasePath is the --db default.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(appName), appName+".db")
}
