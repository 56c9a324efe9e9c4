package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tagstamp", cmd.Use)
	assert.Contains(t, cmd.Long, "countdown")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"list", "columns", "check", "import", "export", "config", "serve", "palette", "scenario"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, filepath.Join("/data", "tagstamp", "tagstamp.db"), dbFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addr := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, DefaultAddr, addr.DefValue)

	countdown := serveCmd.Flags().Lookup("countdown")
	require.NotNil(t, countdown)
	assert.Equal(t, "-1", countdown.DefValue)

	require.NotNil(t, serveCmd.Flags().Lookup("icons"))
}

func TestPaletteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	paletteCmd, _, err := cmd.Find([]string{"palette"})
	require.NoError(t, err)

	addr := paletteCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "", addr.DefValue)
	require.NotNil(t, paletteCmd.Flags().Lookup("log"))
	require.NotNil(t, paletteCmd.Flags().Lookup("countdown"))
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	geometry := checkCmd.Flags().Lookup("geometry")
	require.NotNil(t, geometry)
	assert.Equal(t, "point", geometry.DefValue)
	for _, name := range []string{"tag", "ctrl", "shift", "editing", "snippet"} {
		assert.NotNil(t, checkCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "--db", filepath.Join(t.TempDir(), "t.db"), "list"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDataDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "tagstamp"), DataDir("tagstamp"))
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "  ")
		t.Setenv("HOME", "/home/mapper")
		assert.Equal(t, filepath.Join("/home/mapper", ".local", "share", "tagstamp"), DataDir("tagstamp"))
	})
}
