package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

// Session is handed to a control loop. It steps the scene and measures the
// step rate.
type Session struct {
	scene    sim.Scene
	logger   log.Log
	clock    func() time.Time
	logEvery int64

	steps   int64
	started time.Time
	last    time.Time
	fps     float64
}

func newSession(scene sim.Scene, logger log.Log, clock func() time.Time, logEvery int64) *Session {
	return &Session{
		scene:    scene,
		logger:   logger,
		clock:    clock,
		logEvery: logEvery,
	}
}

// Scene returns the built scene.
func (s *Session) Scene() sim.Scene { return s.scene }

// Steps returns the number of completed steps.
func (s *Session) Steps() int64 { return s.steps }

// FPS is the instantaneous rate of the last step, 1/(t_now - t_prev).
func (s *Session) FPS() float64 { return s.fps }

// Step advances the scene by one timestep. It returns ErrStopped once ctx
// is done and never steps in that case.
func (s *Session) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	if err := s.scene.Step(ctx); err != nil {
		return err
	}
	now := s.clock()
	if s.steps == 0 {
		s.started = now
	} else if dt := now.Sub(s.last); dt > 0 {
		s.fps = 1 / dt.Seconds()
	}
	s.last = now
	s.steps++
	if s.logEvery > 0 && s.steps%s.logEvery == 0 {
		s.logger.Info("Stepping",
			log.Int64("step", s.steps),
			log.Float64("fps", s.fps))
	}
	return nil
}

// elapsed is the wall time between the first and the last step.
func (s *Session) elapsed() time.Duration {
	if s.steps < 2 {
		return 0
	}
	return s.last.Sub(s.started)
}

// meanFPS is the average step rate over the session.
func (s *Session) meanFPS() float64 {
	el := s.elapsed()
	if el <= 0 {
		return 0
	}
	return float64(s.steps-1) / el.Seconds()
}
