package dryrun

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// HeadlessViewer paces a render loop at the viewer's max FPS without
// drawing anything. It is the default viewer of dry-run scenes.
type HeadlessViewer struct {
	scene    *Scene
	limiter  *rate.Limiter
	done     chan struct{}
	stopOnce sync.Once
}

// NewHeadlessViewer builds a viewer for scene. A zero MaxFPS means 60.
func NewHeadlessViewer(scene *Scene, opts sim.ViewerOptions) *HeadlessViewer {
	limit := rate.Limit(60)
	if opts.MaxFPS > 0 {
		limit = rate.Limit(opts.MaxFPS)
	}
	return &HeadlessViewer{
		scene:   scene,
		limiter: rate.NewLimiter(limit, 1),
		done:    make(chan struct{}),
	}
}

// Start renders snapshots until Stop or ctx cancellation.
func (v *HeadlessViewer) Start(ctx context.Context) error {
	for {
		select {
		case <-v.done:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		if err := v.limiter.Wait(ctx); err != nil {
			return nil
		}
		_ = v.scene.Snapshot()
	}
}

func (v *HeadlessViewer) Stop() error {
	v.stopOnce.Do(func() { close(v.done) })
	return nil
}

// journaledViewer records viewer lifecycle calls around any viewer.
type journaledViewer struct {
	scene    *Scene
	inner    sim.Viewer
	stopOnce sync.Once
}

func (v *journaledViewer) Start(ctx context.Context) error {
	v.scene.engine.journal.record(Call{Op: sim.OpViewerStart, Target: v.scene.id})
	return v.inner.Start(ctx)
}

func (v *journaledViewer) Stop() error {
	var err error
	v.stopOnce.Do(func() {
		v.scene.engine.journal.record(Call{Op: sim.OpViewerStop, Target: v.scene.id})
		err = v.inner.Stop()
	})
	return err
}
