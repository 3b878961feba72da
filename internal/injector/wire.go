//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/simrunner/internal/config"
	"github.com/zeusync/simrunner/internal/core/sim/remote"
	"github.com/zeusync/simrunner/internal/runner"
)

func InitializeRunner(ctx context.Context, cfg *config.Config, opts runner.Options) (*runner.Runner, func(), error) {
	wire.Build(RunnerSet)
	return nil, nil, nil
}

func InitializeBridge(cfg *config.Config) (*remote.Server, func(), error) {
	wire.Build(BridgeSet)
	return nil, nil, nil
}
