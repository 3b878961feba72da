package injector

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/config"
	"github.com/zeusync/simrunner/internal/core/events/bus"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
	"github.com/zeusync/simrunner/internal/runner"
	"github.com/zeusync/simrunner/internal/scenarios"
)

func quietConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Init.Debug = false
	cfg.Log.Level = "error"
	return cfg
}

func TestInitializeRunnerDryRun(t *testing.T) {
	ctx := context.Background()
	r, cleanup, err := InitializeRunner(ctx, quietConfig(t), runner.Options{Scenario: "test"})
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	_, err = r.NewScene(ctx, sim.SceneOptions{})
	require.NoError(t, err)
	_, err = r.AddEntity(ctx, sim.MJCF(sim.PandaMJCF))
	require.NoError(t, err)
	require.NoError(t, r.Build(ctx))
	require.NoError(t, r.Run(ctx, func(ctx context.Context, s *runner.Session) error {
		return s.Step(ctx)
	}))
	assert.Equal(t, int64(1), r.Report().Steps)
	assert.Positive(t, r.Report().Events)
}

func TestInitializeRunnerBadCatalog(t *testing.T) {
	cfg := quietConfig(t)
	cfg.DryRun.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := InitializeRunner(context.Background(), cfg, runner.Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitializeRunnerUnreachableBridge(t *testing.T) {
	cfg := quietConfig(t)
	cfg.Engine.URL = "ws://127.0.0.1:1/engine"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := InitializeRunner(ctx, cfg, runner.Options{})
	assert.Error(t, err)
}

func TestBridgeServesRemoteRunner(t *testing.T) {
	ctx := context.Background()
	srv, cleanup, err := InitializeBridge(quietConfig(t))
	require.NoError(t, err)
	defer cleanup()

	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	cfg := quietConfig(t)
	cfg.Engine.URL = "ws" + strings.TrimPrefix(hs.URL, "http")
	r, done, err := InitializeRunner(ctx, cfg, runner.Options{Scenario: "remote"})
	require.NoError(t, err)
	defer done()

	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	_, err = r.NewScene(ctx, sim.SceneOptions{})
	require.NoError(t, err)
	_, err = r.AddEntity(ctx, sim.Plane())
	require.NoError(t, err)
	require.NoError(t, r.Build(ctx))
	require.NoError(t, r.Run(ctx, func(ctx context.Context, s *runner.Session) error {
		for i := 0; i < 3; i++ {
			if err := s.Step(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	assert.Equal(t, int64(3), r.Report().Steps)
	assert.Equal(t, int64(1), srv.Active())
}

func TestFactoryEnginesAreIndependent(t *testing.T) {
	opts, err := ProvideDryRunOptions(quietConfig(t), nil)
	require.NoError(t, err)
	factory := ProvideEngineFactory(opts)

	a, err := factory()
	require.NoError(t, err)
	b, err := factory()
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background(), sim.InitOptions{}))

	assert.Equal(t, 1, a.(*dryrun.Engine).Journal().Count(sim.OpInit))
	assert.Zero(t, b.(*dryrun.Engine).Journal().Count(sim.OpInit))
}

func TestLoggerOptions(t *testing.T) {
	cfg := config.Default()
	opts := LoggerOptions(cfg)
	assert.True(t, opts.DisableSampling)
	assert.Equal(t, os.Stderr, opts.Output)

	cfg.Viewer.Kind = config.ViewerTerminal
	cfg.Log.File = filepath.Join(t.TempDir(), "run.log")
	opts = LoggerOptions(cfg)
	assert.NotEqual(t, os.Stderr, opts.Output)
	assert.Equal(t, cfg.Log.File, opts.File)
}

func TestLoggerKeepsEveryControlForce(t *testing.T) {
	cfg := config.Default()
	cfg.Init.Debug = false
	opts := LoggerOptions(cfg)
	var buf bytes.Buffer
	opts.Output = &buf
	opts.Encoding = config.FormatJSON
	logger := log.New(opts)

	eng := dryrun.New(dryrun.Options{Logger: log.Nop()})
	r := runner.New(eng, bus.New(), log.Nop(), runner.Options{Scenario: scenarios.ControlFranka.Name})
	defer func() { _ = r.Close() }()

	require.NoError(t, scenarios.ControlFranka.Run(context.Background(), r, scenarios.Options{Logger: logger}))
	require.NoError(t, logger.Sync())

	assert.Equal(t, scenarios.PDSteps, strings.Count(buf.String(), `"msg":"Control force"`))
}
