package log

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelDebug, Output: &buf, DisableSampling: true})

	l.Named("runner").Info("control force",
		Float64s("force", []float64{1.5, -2}),
		Ints("dofs", []int{0, 1}),
		Error(errors.New("boom")),
	)
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.Contains(t, out, `"msg":"control force"`)
	assert.Contains(t, out, `"logger":"runner"`)
	assert.Contains(t, out, `"force":[1.5,-2]`)
	assert.Contains(t, out, `"dofs":[0,1]`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelWarn, Output: &buf, DisableSampling: true})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
	l.Log(LevelDebug, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerConsoleTheme(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Encoding: "console", Theme: "light", Output: &buf, DisableSampling: true})
	l.Info("plain")
	assert.Contains(t, buf.String(), "INFO")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.log")
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Output: &buf, File: path, DisableSampling: true})
	l.Info("to file")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestWithContextScenario(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Output: &buf, DisableSampling: true})
	ctx := ContextWithScenario(context.Background(), "grasp-bottle")
	l.WithContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), `"scenario":"grasp-bottle"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
