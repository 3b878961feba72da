// Package injector assembles the logger, event bus, engine and runner of a
// command from its configuration.
package injector

import (
	"context"
	"io"
	"os"

	"github.com/google/wire"

	"github.com/zeusync/simrunner/internal/config"
	"github.com/zeusync/simrunner/internal/core/events/bus"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
	"github.com/zeusync/simrunner/internal/core/sim/remote"
	"github.com/zeusync/simrunner/internal/core/sim/termview"
	"github.com/zeusync/simrunner/internal/runner"
)

var CommonSet = wire.NewSet(ProvideLogger, ProvideDryRunOptions)

var RunnerSet = wire.NewSet(CommonSet, ProvideBus, ProvideEngine, ProvideRunner)

var BridgeSet = wire.NewSet(CommonSet, ProvideEngineFactory, remote.NewServer)

// LoggerOptions maps the log section onto logger options. The terminal
// viewer owns the screen, so its runs log to the file sink only. Every
// entry is kept: scenarios log per-iteration readings that sampling would
// thin out.
func LoggerOptions(cfg *config.Config) log.Options {
	var out io.Writer = os.Stderr
	if cfg.Viewer.Kind == config.ViewerTerminal {
		out = io.Discard
	}
	return log.Options{
		Level:           cfg.LogLevel(),
		Encoding:        cfg.Log.Format,
		Theme:           string(cfg.Init.Theme),
		File:            cfg.Log.File,
		MaxSizeMB:       cfg.Log.MaxSizeMB,
		MaxBackups:      cfg.Log.MaxBackups,
		Output:          out,
		DisableSampling: true,
	}
}

// ProvideLogger builds the process logger.
func ProvideLogger(cfg *config.Config) (log.Log, func()) {
	logger := log.New(LoggerOptions(cfg))
	return logger, func() { _ = logger.Sync() }
}

func ProvideBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(runner.LogObserver{Logger: logger.Named("bus")})
	return b
}

// ProvideDryRunOptions reads the dry-run section, the model catalog and
// the viewer choice.
func ProvideDryRunOptions(cfg *config.Config, logger log.Log) (dryrun.Options, error) {
	opts := dryrun.Options{
		Logger:    logger,
		Waypoints: cfg.DryRun.Waypoints,
	}
	if cfg.DryRun.Catalog != "" {
		catalog, err := dryrun.LoadCatalogFile(cfg.DryRun.Catalog)
		if err != nil {
			return dryrun.Options{}, err
		}
		opts.Catalog = catalog
	}
	if cfg.Viewer.Kind == config.ViewerTerminal {
		opts.ViewerFactory = termview.Factory(termview.Options{
			Input:     os.Stdin,
			Output:    os.Stdout,
			Theme:     cfg.Init.Theme,
			AltScreen: cfg.Viewer.AltScreen,
		})
	}
	return opts, nil
}

// ProvideEngine returns the in-process engine or dials the configured
// bridge.
func ProvideEngine(ctx context.Context, cfg *config.Config, logger log.Log, opts dryrun.Options) (sim.Engine, error) {
	if cfg.IsDryRun() {
		return dryrun.New(opts), nil
	}
	client, err := remote.DialEngine(ctx, cfg.Engine.URL, remote.ClientOptions{
		Logger:      logger,
		CallTimeout: cfg.Engine.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ProvideRunner builds the runner; the cleanup closes its engine.
func ProvideRunner(engine sim.Engine, eventBus bus.EventBus, logger log.Log, opts runner.Options) (*runner.Runner, func()) {
	r := runner.New(engine, eventBus, logger, opts)
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("Engine close failed", log.Error(err))
		}
	}
}

// ProvideEngineFactory gives each bridge connection its own dry-run engine.
func ProvideEngineFactory(opts dryrun.Options) remote.EngineFactory {
	return func() (sim.Engine, error) {
		engineOpts := opts
		// every engine keeps its own journal
		engineOpts.Journal = nil
		return dryrun.New(engineOpts), nil
	}
}
