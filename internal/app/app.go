// Package app is the body of the commands: it parses arguments, assembles
// the dependencies and runs a scenario or the engine bridge until done.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/zeusync/simrunner/internal/cli"
	"github.com/zeusync/simrunner/internal/config"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/injector"
	"github.com/zeusync/simrunner/internal/runner"
	"github.com/zeusync/simrunner/internal/scenarios"
)

// RunScenario parses args for sc, runs it and writes the run summary to
// outW. A run stopped by ctx is not an error.
func RunScenario(ctx context.Context, outW io.Writer, sc scenarios.Scenario, args []string) error {
	opts, shouldExit, err := cli.Parse(sc.Command, sc.Summary, sc.Visualize, args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg := opts.Config
	if !opts.Visualize {
		// nothing draws on the terminal, keep logging there
		cfg.Viewer.Kind = config.ViewerHeadless
	}

	r, cleanup, err := injector.InitializeRunner(ctx, cfg, runner.Options{
		Scenario:  sc.Name,
		Visualize: opts.Visualize,
	})
	if err != nil {
		return fmt.Errorf("setup %s: %w", sc.Name, err)
	}
	defer cleanup()

	ctx = log.ContextWithScenario(ctx, sc.Name)
	runErr := sc.Run(ctx, r, scenarios.Options{
		Init:      cfg.Init,
		Logger:    log.Provide().WithContext(ctx),
		MaxSteps:  cfg.Scenario.MaxSteps,
		VideoFile: cfg.Scenario.VideoFile,
	})

	if r.Stage() >= runner.StageControl {
		fmt.Fprintln(outW, r.Report().Summary())
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", sc.Name, runErr)
	}
	return nil
}
