// Package dryrun is a deterministic in-process stand-in for the simulation
// engine. It journals every call, integrates joint state with an implicit
// per-DOF PD model and answers IK and planning queries with closed-form
// approximations. It does not simulate contacts or render pixels.
package dryrun

import (
	"context"
	"fmt"
	"sync"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

var _ sim.Engine = (*Engine)(nil)

// DefaultWaypoints is the number of waypoints PlanPath returns.
const DefaultWaypoints = 200

// ViewerFactory builds the viewer of a scene created with ShowViewer.
type ViewerFactory func(scene *Scene, opts sim.ViewerOptions) sim.Viewer

// Options configures New.
type Options struct {
	Catalog       Catalog
	Journal       *Journal
	Logger        log.Log
	Waypoints     int
	ViewerFactory ViewerFactory
}

// Engine implements sim.Engine in process.
type Engine struct {
	// mu guards all engine, scene and entity state.
	mu          sync.Mutex
	opts        Options
	journal     *Journal
	logger      log.Log
	initOpts    sim.InitOptions
	initialized bool
	closed      bool
	scenes      []*Scene
	prompts     []string
}

func New(opts Options) *Engine {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Journal == nil {
		opts.Journal = NewJournal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Provide()
	}
	if opts.Waypoints <= 0 {
		opts.Waypoints = DefaultWaypoints
	}
	if opts.ViewerFactory == nil {
		opts.ViewerFactory = func(s *Scene, vo sim.ViewerOptions) sim.Viewer {
			return NewHeadlessViewer(s, vo)
		}
	}
	return &Engine{
		opts:    opts,
		journal: opts.Journal,
		logger:  opts.Logger.Named("dryrun"),
	}
}

// Journal returns the call journal.
func (e *Engine) Journal() *Journal {
	return e.journal
}

// Prompts returns the prompts passed to Generate.
func (e *Engine) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

func (e *Engine) Init(_ context.Context, opts sim.InitOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return sim.ErrEngineClosed
	}
	if e.initialized {
		return sim.ErrAlreadyInitialized
	}
	e.initOpts = opts
	e.initialized = true
	if opts.Debug {
		e.logger.SetLevel(log.LevelDebug)
	}
	e.journal.record(Call{Op: sim.OpInit, Text: opts.Backend.String()})
	e.logger.Info("Engine initialized",
		log.Stringer("backend", opts.Backend),
		log.String("theme", string(opts.Theme)),
		log.Bool("debug", opts.Debug))
	return nil
}

func (e *Engine) NewScene(_ context.Context, opts sim.SceneOptions) (sim.Scene, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Scene{
		engine:   e,
		id:       fmt.Sprintf("scene%d", len(e.scenes)),
		opts:     opts,
		dt:       opts.Rigid.TimeStep(),
		entities: make([]*Entity, 0, 4),
	}
	if opts.ShowViewer {
		s.viewer = &journaledViewer{scene: s, inner: e.opts.ViewerFactory(s, opts.Viewer)}
	}
	e.scenes = append(e.scenes, s)
	e.journal.record(Call{Op: sim.OpScene, Target: s.id})
	e.logger.Debug("Scene created", log.String("scene", s.id), log.Float64("dt", s.dt))
	return s, nil
}

func (e *Engine) Generate(_ context.Context, prompt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return err
	}
	e.prompts = append(e.prompts, prompt)
	e.journal.record(Call{Op: sim.OpGenerate, Text: prompt})
	e.logger.Info("Scene generation requested", log.String("prompt", prompt))
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *Engine) checkLocked() error {
	if e.closed {
		return sim.ErrEngineClosed
	}
	if !e.initialized {
		return sim.ErrNotInitialized
	}
	return nil
}
