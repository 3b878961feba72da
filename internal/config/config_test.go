package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDryRun())
	assert.Equal(t, sim.BackendMetal, cfg.Init.Backend)
	assert.Equal(t, sim.ThemeLight, cfg.Init.Theme)
	assert.True(t, cfg.Init.Debug)
	assert.Equal(t, log.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 30*time.Second, cfg.Engine.CallTimeout)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
engine:
  url: ws://localhost:8765/engine
  call_timeout: 5s
init:
  backend: cpu
  theme: dark
  debug: false
log:
  level: warn
  format: json
viewer:
  kind: terminal
scenario:
  max_steps: 1000
`))
	require.NoError(t, err)

	assert.False(t, cfg.IsDryRun())
	assert.Equal(t, 5*time.Second, cfg.Engine.CallTimeout)
	assert.Equal(t, sim.BackendCPU, cfg.Init.Backend)
	assert.Equal(t, sim.ThemeDark, cfg.Init.Theme)
	assert.Equal(t, log.LevelWarn, cfg.LogLevel())
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.Equal(t, ViewerTerminal, cfg.Viewer.Kind)
	assert.Equal(t, int64(1000), cfg.Scenario.MaxSteps)
	// untouched sections keep their defaults
	assert.Equal(t, 200, cfg.DryRun.Waypoints)
	assert.Equal(t, ":8765", cfg.Bridge.Listen)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "engine:\n  adress: x\n",
		"bad backend":    "init:\n  backend: abacus\n",
		"bad scheme":     "engine:\n  url: http://localhost\n",
		"no host":        "engine:\n  url: quic://\n",
		"bad level":      "log:\n  level: loud\n",
		"bad format":     "log:\n  format: xml\n",
		"bad viewer":     "viewer:\n  kind: vr\n",
		"bad theme":      "init:\n  theme: sepia\n",
		"negative steps": "scenario:\n  max_steps: -1\n",
		"cert alone":     "bridge:\n  cert_file: a.pem\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, err := Decode(strings.NewReader("engine:\n  url: tcp://x:1\n"))
	assert.ErrorIs(t, err, ErrEngineURL)
	_, err = Decode(strings.NewReader("viewer:\n  kind: vr\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  url: quic://127.0.0.1:9000\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quic://127.0.0.1:9000", cfg.Engine.URL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
