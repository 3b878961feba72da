package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simrunner/internal/core/events/bus"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handle(e bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type())
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func stepClock() func() time.Time {
	t := time.Unix(0, 0)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(10 * time.Millisecond)
		return t
	}
}

func newRunner(t *testing.T, visualize bool) (*Runner, *dryrun.Engine, *recorder) {
	t.Helper()
	eng := dryrun.New(dryrun.Options{Logger: log.Nop()})
	b := bus.New()
	b.AddObserver(LogObserver{Logger: log.Nop()})
	rec := &recorder{}
	for _, typ := range []string{EventStage, EventLoopStarted, EventLoopFinished, EventLoopStopped, EventLoopAborted, EventRecordingSaved} {
		_, err := b.Subscribe(typ, rec.handle)
		require.NoError(t, err)
	}
	r := New(eng, b, log.Nop(), Options{Scenario: "test", Visualize: visualize, Clock: stepClock()})
	return r, eng, rec
}

func buildPanda(t *testing.T, r *Runner) sim.Entity {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	_, err := r.NewScene(ctx, sim.SceneOptions{Viewer: sim.DefaultViewerOptions()})
	require.NoError(t, err)
	ent, err := r.AddEntity(ctx, sim.MJCF(sim.PandaMJCF))
	require.NoError(t, err)
	require.NoError(t, r.Build(ctx))
	return ent
}

func stepN(n int) LoopFunc {
	return func(ctx context.Context, s *Session) error {
		for i := 0; i < n; i++ {
			if err := s.Step(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestStageOrder(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRunner(t, false)

	assert.ErrorIs(t, r.Build(ctx), ErrStageOrder)
	_, err := r.NewScene(ctx, sim.SceneOptions{})
	assert.ErrorIs(t, err, ErrStageOrder)
	assert.ErrorIs(t, r.Run(ctx, stepN(1)), ErrStageOrder)

	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	assert.ErrorIs(t, r.Init(ctx, sim.InitOptions{}), ErrStageOrder)
	_, err = r.AddEntity(ctx, sim.Plane())
	assert.ErrorIs(t, err, ErrStageOrder)

	_, err = r.NewScene(ctx, sim.SceneOptions{})
	require.NoError(t, err)
	_, err = r.AddEntity(ctx, sim.Plane())
	require.NoError(t, err)
	require.NoError(t, r.Build(ctx))
	assert.Equal(t, StageBuild, r.Stage())

	_, err = r.AddEntity(ctx, sim.Plane())
	assert.ErrorIs(t, err, ErrStageOrder)
	assert.ErrorIs(t, r.Build(ctx), ErrStageOrder)

	require.NoError(t, r.Run(ctx, stepN(1)))
	assert.Equal(t, StageFinish, r.Stage())
	assert.ErrorIs(t, r.Run(ctx, stepN(1)), ErrStageOrder)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Init(ctx, sim.InitOptions{}), ErrClosed)
}

func TestFailedStageDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRunner(t, false)
	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	_, err := r.NewScene(ctx, sim.SceneOptions{})
	require.NoError(t, err)

	_, err = r.AddEntity(ctx, sim.URDF("urdf/unknown.urdf"))
	assert.ErrorIs(t, err, sim.ErrUnknownModel)
	assert.Equal(t, StageScene, r.Stage())
}

func TestInlineRunHasNoViewer(t *testing.T) {
	ctx := context.Background()
	r, eng, rec := newRunner(t, false)
	buildPanda(t, r)
	assert.Nil(t, r.Scene().Viewer())

	require.NoError(t, r.Run(ctx, stepN(25)))

	assert.Zero(t, eng.Journal().Count(sim.OpViewerStart))
	assert.Zero(t, eng.Journal().Count(sim.OpViewerStop))
	assert.Equal(t, 25, eng.Journal().Count(sim.OpStep))

	rep := r.Report()
	assert.Equal(t, int64(25), rep.Steps)
	assert.Equal(t, 240*time.Millisecond, rep.Elapsed)
	assert.InDelta(t, 100.0, rep.MeanFPS, 1e-9)
	assert.False(t, rep.Stopped)
	assert.NoError(t, rep.Err)
	assert.Contains(t, rec.types(), EventLoopFinished)
	assert.Positive(t, rep.Events)
}

func TestVisualRunStopsViewer(t *testing.T) {
	ctx := context.Background()
	r, eng, rec := newRunner(t, true)
	buildPanda(t, r)
	require.NotNil(t, r.Scene().Viewer())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, stepN(50)) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("visual run deadlocked")
	}

	assert.Equal(t, 1, eng.Journal().Count(sim.OpViewerStart))
	assert.Equal(t, 1, eng.Journal().Count(sim.OpViewerStop))
	assert.Equal(t, 50, eng.Journal().Count(sim.OpStep))
	assert.Contains(t, rec.types(), EventLoopFinished)
}

func TestVisualRunCancelled(t *testing.T) {
	r, eng, rec := newRunner(t, true)
	buildPanda(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	forever := func(ctx context.Context, s *Session) error {
		for {
			if err := s.Step(ctx); err != nil {
				return err
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, forever) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run did not return")
	}

	rep := r.Report()
	assert.True(t, rep.Stopped)
	assert.Positive(t, rep.Steps)
	assert.Equal(t, 1, eng.Journal().Count(sim.OpViewerStop))
	assert.Contains(t, rec.types(), EventLoopStopped)
}

func TestLoopErrorIsReported(t *testing.T) {
	for _, visualize := range []bool{false, true} {
		ctx := context.Background()
		r, eng, rec := newRunner(t, visualize)
		ent := buildPanda(t, r)

		err := r.Run(ctx, func(ctx context.Context, s *Session) error {
			if err := s.Step(ctx); err != nil {
				return err
			}
			return ent.ControlDofsPosition(ctx, []float64{1}, []int{42})
		})
		require.NoError(t, err)

		rep := r.Report()
		assert.ErrorIs(t, rep.Err, sim.ErrDofIndex)
		assert.Equal(t, int64(1), rep.Steps)
		assert.Contains(t, rec.types(), EventLoopAborted)
		assert.Contains(t, rep.Summary(), "aborted")
		if visualize {
			assert.Equal(t, 1, eng.Journal().Count(sim.OpViewerStop))
		}
	}
}

func TestSessionStepAfterCancel(t *testing.T) {
	r, eng, _ := newRunner(t, false)
	buildPanda(t, r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := newSession(r.Scene(), log.Nop(), stepClock(), 0)
	err := sess.Step(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, eng.Journal().Count(sim.OpStep))
}

func TestSessionFPS(t *testing.T) {
	r, _, _ := newRunner(t, false)
	buildPanda(t, r)
	sess := newSession(r.Scene(), log.Nop(), stepClock(), 2)
	ctx := context.Background()

	require.NoError(t, sess.Step(ctx))
	assert.Zero(t, sess.FPS())
	require.NoError(t, sess.Step(ctx))
	assert.InDelta(t, 100.0, sess.FPS(), 1e-9)
	assert.Equal(t, int64(2), sess.Steps())
}

func TestSaveRecording(t *testing.T) {
	ctx := context.Background()
	r, _, rec := newRunner(t, false)
	require.NoError(t, r.Init(ctx, sim.InitOptions{}))
	_, err := r.NewScene(ctx, sim.SceneOptions{})
	require.NoError(t, err)
	cam, err := r.AddCamera(ctx, sim.CameraOptions{Res: [2]int{640, 480}, FOV: 30})
	require.NoError(t, err)
	require.NoError(t, r.Build(ctx))
	require.NoError(t, cam.StartRecording(ctx))

	_, err = r.SaveRecording(ctx, cam, "video.mp4", 60)
	assert.ErrorIs(t, err, ErrStageOrder)

	require.NoError(t, r.Run(ctx, func(ctx context.Context, s *Session) error {
		for i := 0; i < 3; i++ {
			if err := s.Step(ctx); err != nil {
				return err
			}
			if _, err := cam.Render(ctx); err != nil {
				return err
			}
		}
		return nil
	}))

	out, err := r.SaveRecording(ctx, cam, "video.mp4", 60)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Frames)
	assert.Equal(t, []sim.Recording{out}, r.Report().Recordings)
	assert.Contains(t, rec.types(), EventRecordingSaved)
	assert.Contains(t, r.Report().Summary(), "recorded 3 frames at 60 fps to video.mp4")
}

func TestReportSummary(t *testing.T) {
	rep := Report{Scenario: "generate", Steps: 12345, Elapsed: 2 * time.Second, MeanFPS: 6172.5, Stopped: true}
	assert.Equal(t, "generate: 12,345 steps in 2s (6,172.5 fps), stopped", rep.Summary())

	rep = Report{Scenario: "x", Steps: 1, Err: errors.New("boom")}
	assert.Equal(t, "x: 1 steps, aborted: boom", rep.Summary())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "populate", StagePopulate.String())
	assert.Equal(t, "stage(99)", Stage(99).String())
}
