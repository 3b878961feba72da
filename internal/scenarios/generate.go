package scenarios

import (
	"context"

	"github.com/zeusync/simrunner/internal/runner"
)

// Generate asks the engine to build a world from a prompt and steps it
// until stopped.
var Generate = Scenario{
	Name:      "generate",
	Command:   "generate",
	Summary:   "generate - populates a scene from a text prompt and steps it until interrupted.",
	Visualize: true,
	Run:       generate,
}

const (
	GeneratePrompt = "A fox jumps over the creek."
	// DefaultMaxSteps caps the free-running loop.
	DefaultMaxSteps int64 = 2e10
)

func generate(ctx context.Context, r *runner.Runner, opts Options) error {
	if err := r.Init(ctx, opts.Init); err != nil {
		return err
	}
	if _, err := r.NewScene(ctx, showcaseScene()); err != nil {
		return err
	}
	if err := r.Generate(ctx, GeneratePrompt); err != nil {
		return err
	}
	if _, err := r.AddCamera(ctx, recordingCamera()); err != nil {
		return err
	}
	if err := r.Build(ctx); err != nil {
		return err
	}

	limit := opts.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}
	return r.Run(ctx, func(ctx context.Context, s *runner.Session) error {
		for s.Steps() < limit {
			if err := s.Step(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
