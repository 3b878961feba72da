package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/config"
)

func parseScenario(t *testing.T, vis bool, args ...string) (*Options, bool, string, error) {
	t.Helper()
	var out bytes.Buffer
	opts, exit, err := Parse("controlfranka", "test scenario", vis, args, &out)
	return opts, exit, out.String(), err
}

func TestParseDefaults(t *testing.T) {
	opts, exit, _, err := parseScenario(t, true)
	require.NoError(t, err)
	assert.False(t, exit)
	assert.True(t, opts.Visualize)
	assert.Equal(t, config.Default(), opts.Config)

	opts, _, _, err = parseScenario(t, false)
	require.NoError(t, err)
	assert.False(t, opts.Visualize)
}

func TestParseVisFlag(t *testing.T) {
	opts, _, _, err := parseScenario(t, true, "-vis=false")
	require.NoError(t, err)
	assert.False(t, opts.Visualize)

	opts, _, _, err = parseScenario(t, false, "-vis")
	require.NoError(t, err)
	assert.True(t, opts.Visualize)
}

func TestParseOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	doc := "engine:\n  url: ws://bridge:8765/engine\nlog:\n  format: json\nscenario:\n  max_steps: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	opts, _, _, err := parseScenario(t, true, "-config", path)
	require.NoError(t, err)
	assert.Equal(t, "ws://bridge:8765/engine", opts.Config.Engine.URL)
	assert.Equal(t, config.FormatJSON, opts.Config.Log.Format)
	assert.Equal(t, int64(7), opts.Config.Scenario.MaxSteps)

	opts, _, _, err = parseScenario(t, true, "-config", path,
		"-engine", "dryrun", "-log-format", "CONSOLE", "-log-level", "warn",
		"-max-steps", "3", "-video", "clip.mp4", "-viewer", "terminal")
	require.NoError(t, err)
	cfg := opts.Config
	assert.True(t, cfg.IsDryRun())
	assert.Equal(t, config.FormatConsole, cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Init.Debug)
	assert.Equal(t, int64(3), cfg.Scenario.MaxSteps)
	assert.Equal(t, "clip.mp4", cfg.Scenario.VideoFile)
	assert.Equal(t, config.ViewerTerminal, cfg.Viewer.Kind)
}

func TestParseHelp(t *testing.T) {
	opts, exit, out, err := parseScenario(t, true, "-h")
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, opts)
	assert.Contains(t, out, "Usage:\n  controlfranka [options]")
	assert.Contains(t, out, "-vis")
}

func TestParseErrors(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":  {"-speed", "2"},
		"stray arg":     {"extra"},
		"bad engine":    {"-engine", "tcp://x:1"},
		"bad level":     {"-log-level", "loud"},
		"bad format":    {"-log-format", "xml"},
		"missing file":  {"-config", "/nonexistent/sim.yaml"},
		"negative cap":  {"-max-steps", "-5"},
		"bad viewer":    {"-viewer", "vr"},
		"bool as value": {"-vis=maybe"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, exit, _, err := parseScenario(t, true, args...)
			assert.False(t, exit)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.NotEmpty(t, exitErr.Error())
		})
	}
}

func TestParseBridge(t *testing.T) {
	var out bytes.Buffer
	opts, exit, err := ParseBridge("simbridge", []string{"-listen", ":9000", "-quic", ":9001", "-viewer", "terminal"}, &out)
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, ":9000", opts.Config.Bridge.Listen)
	assert.Equal(t, ":9001", opts.Config.Bridge.QUICListen)
	assert.Equal(t, config.ViewerTerminal, opts.Config.Viewer.Kind)

	_, _, err = ParseBridge("simbridge", []string{"-listen", ""}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "nothing to serve")

	_, _, err = ParseBridge("simbridge", []string{"-cert", "a.pem"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
