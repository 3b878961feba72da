// Package runner drives a scenario through the engine pipeline:
// init, scene construction, entity registration, build, control loop and
// shutdown. Each stage may only be entered from the ones before it.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/simrunner/internal/core/events/bus"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

// DefaultLogEvery is how many steps pass between FPS log lines.
const DefaultLogEvery = 100

// LoopFunc is a scenario control loop. It must step through the session
// and return the error of Session.Step as is.
type LoopFunc func(ctx context.Context, s *Session) error

// Options configures a Runner.
type Options struct {
	Scenario string
	// Visualize shows the engine viewer and runs the loop beside it.
	Visualize bool
	LogEvery  int64
	Clock     func() time.Time
}

// Runner owns one engine for the duration of a scenario.
type Runner struct {
	engine sim.Engine
	bus    bus.EventBus
	logger log.Log
	opts   Options

	mu     sync.Mutex
	stage  Stage
	scene  sim.Scene
	report Report
	closed bool
}

func New(engine sim.Engine, eventBus bus.EventBus, logger log.Log, opts Options) *Runner {
	if opts.LogEvery == 0 {
		opts.LogEvery = DefaultLogEvery
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = log.Provide()
	}
	if eventBus == nil {
		eventBus = bus.New()
	}
	return &Runner{
		engine: engine,
		bus:    eventBus,
		logger: logger.Named("runner").With(log.String("scenario", opts.Scenario)),
		opts:   opts,
		report: Report{Scenario: opts.Scenario},
	}
}

// Stage returns the current stage.
func (r *Runner) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Scene returns the scene once NewScene succeeded.
func (r *Runner) Scene() sim.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}

// Report returns a copy of the run report.
func (r *Runner) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.report
	rep.Stage = r.stage
	rep.Recordings = append([]sim.Recording(nil), r.report.Recordings...)
	rep.Events = r.bus.Metrics().Published
	return rep
}

// enter moves to stage to if the runner is at one of from, running fn first.
// The stage does not change when fn fails.
func (r *Runner) enter(op string, to Stage, from []Stage, fn func() error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	at := r.stage
	if !allowed(at, from) {
		r.mu.Unlock()
		return transitionError(op, at, from)
	}
	r.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}

	r.mu.Lock()
	r.stage = to
	r.mu.Unlock()
	if at != to {
		r.publish(EventStage, StageChange{From: at, To: to})
		r.logger.Debug("Stage entered", log.Stringer("stage", to))
	}
	return nil
}

func (r *Runner) publish(typ string, data any) {
	if err := r.bus.Publish(bus.NewEvent(typ, r.opts.Scenario, data)); err != nil {
		r.logger.Warn("Event handler failed", log.String("event", typ), log.Error(err))
	}
}

// Init initializes the engine.
func (r *Runner) Init(ctx context.Context, opts sim.InitOptions) error {
	return r.enter("init", StageInit, []Stage{StageIdle}, func() error {
		return r.engine.Init(ctx, opts)
	})
}

// NewScene creates the scene. ShowViewer follows Options.Visualize.
func (r *Runner) NewScene(ctx context.Context, opts sim.SceneOptions) (sim.Scene, error) {
	opts.ShowViewer = r.opts.Visualize
	var scene sim.Scene
	err := r.enter("new scene", StageScene, []Stage{StageInit}, func() error {
		s, err := r.engine.NewScene(ctx, opts)
		if err != nil {
			return err
		}
		scene = s
		r.mu.Lock()
		r.scene = s
		r.mu.Unlock()
		return nil
	})
	return scene, err
}

var populating = []Stage{StageScene, StagePopulate}

// AddEntity registers an entity with the scene.
func (r *Runner) AddEntity(ctx context.Context, morph sim.Morph, opts ...sim.EntityOption) (sim.Entity, error) {
	var ent sim.Entity
	err := r.enter("add entity", StagePopulate, populating, func() error {
		e, err := r.scene.AddEntity(ctx, morph, opts...)
		ent = e
		return err
	})
	return ent, err
}

// AddCamera attaches a camera to the scene.
func (r *Runner) AddCamera(ctx context.Context, opts sim.CameraOptions) (sim.Camera, error) {
	var cam sim.Camera
	err := r.enter("add camera", StagePopulate, populating, func() error {
		c, err := r.scene.AddCamera(ctx, opts)
		cam = c
		return err
	})
	return cam, err
}

// Generate populates the scene from a text prompt.
func (r *Runner) Generate(ctx context.Context, prompt string) error {
	return r.enter("generate", StagePopulate, populating, func() error {
		return r.engine.Generate(ctx, prompt)
	})
}

// Build builds the scene.
func (r *Runner) Build(ctx context.Context) error {
	return r.enter("build", StageBuild, populating, func() error {
		return r.scene.Build(ctx)
	})
}

// Run executes loop once. With visualization the loop runs on its own
// goroutine while the viewer blocks the caller; the loop stops the viewer
// when it returns and the viewer exiting stops the loop. Without
// visualization the loop runs inline. A loop ending with ErrStopped is a
// clean stop. Any other loop error aborts the loop: it is logged, published
// and recorded in the report, and Run still returns nil so the caller moves
// on to cleanup.
func (r *Runner) Run(ctx context.Context, loop LoopFunc) error {
	if err := r.enter("run", StageControl, []Stage{StageBuild}, func() error { return nil }); err != nil {
		return err
	}
	sess := newSession(r.scene, r.logger, r.opts.Clock, r.opts.LogEvery)
	r.publish(EventLoopStarted, LoopResult{})
	r.logger.Info("Control loop started", log.Bool("visualize", r.opts.Visualize))

	var err error
	viewer := r.scene.Viewer()
	if r.opts.Visualize && viewer != nil {
		err = r.runVisual(ctx, viewer, sess, loop)
	} else {
		err = r.runLoop(ctx, sess, loop)
	}

	r.mu.Lock()
	r.stage = StageFinish
	r.mu.Unlock()
	r.publish(EventStage, StageChange{From: StageControl, To: StageFinish})
	return err
}

func (r *Runner) runVisual(ctx context.Context, viewer sim.Viewer, sess *Session, loop LoopFunc) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer func() {
			if err := viewer.Stop(); err != nil {
				r.logger.Warn("Viewer stop failed", log.Error(err))
			}
		}()
		return r.runLoop(loopCtx, sess, loop)
	})

	viewErr := viewer.Start(loopCtx)
	if err := viewer.Stop(); err != nil {
		r.logger.Warn("Viewer stop failed", log.Error(err))
	}
	cancel()
	loopErr := g.Wait()

	if viewErr != nil {
		r.logger.Error("Viewer failed", log.Error(viewErr))
		return errors.Join(viewErr, loopErr)
	}
	return loopErr
}

func (r *Runner) runLoop(ctx context.Context, sess *Session, loop LoopFunc) error {
	err := loop(ctx, sess)
	res := LoopResult{Steps: sess.Steps(), Elapsed: sess.elapsed(), Err: err}

	r.mu.Lock()
	r.report.Steps = sess.Steps()
	r.report.Elapsed = sess.elapsed()
	r.report.MeanFPS = sess.meanFPS()
	r.mu.Unlock()

	switch {
	case err == nil:
		r.logger.Info("Control loop finished", log.Int64("steps", res.Steps))
		r.publish(EventLoopFinished, res)
		return nil
	case errors.Is(err, ErrStopped):
		r.mu.Lock()
		r.report.Stopped = true
		r.mu.Unlock()
		r.logger.Info("Control loop stopped", log.Int64("steps", res.Steps))
		r.publish(EventLoopStopped, res)
		return nil
	default:
		r.mu.Lock()
		r.report.Err = err
		r.mu.Unlock()
		r.logger.Error("Control loop aborted", log.Int64("steps", res.Steps), log.Error(err))
		r.publish(EventLoopAborted, res)
		return nil
	}
}

// SaveRecording stops cam and finalizes its video. It is valid once the
// control loop has started.
func (r *Runner) SaveRecording(ctx context.Context, cam sim.Camera, filename string, fps int) (sim.Recording, error) {
	var rec sim.Recording
	err := r.enter("save recording", r.Stage(), []Stage{StageControl, StageFinish}, func() error {
		var err error
		rec, err = cam.StopRecording(ctx, filename, fps)
		return err
	})
	if err != nil {
		return rec, err
	}
	r.mu.Lock()
	r.report.Recordings = append(r.report.Recordings, rec)
	r.mu.Unlock()
	r.publish(EventRecordingSaved, RecordingSaved{Camera: cam.ID(), Recording: rec})
	r.logger.Info("Recording saved",
		log.String("file", rec.Filename),
		log.Int("fps", rec.FPS),
		log.Int("frames", rec.Frames))
	return rec, nil
}

// Close releases the engine. It is safe to call at any stage and more than
// once.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	return r.engine.Close()
}
