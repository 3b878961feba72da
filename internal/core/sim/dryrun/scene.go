package dryrun

import (
	"context"
	"fmt"
	"slices"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

var _ sim.Scene = (*Scene)(nil)

// Scene implements sim.Scene.
type Scene struct {
	engine   *Engine
	id       string
	opts     sim.SceneOptions
	dt       float64
	built    bool
	steps    int64
	entities []*Entity
	cameras  []*Camera
	viewer   sim.Viewer
}

// Snapshot is a copy of the observable scene state.
type Snapshot struct {
	SceneID  string
	Steps    int64
	Time     float64
	Entities []EntitySnapshot
}

// EntitySnapshot is the joint state of one entity.
type EntitySnapshot struct {
	ID     string
	File   string
	Joints []string
	Qpos   []float64
	Force  []float64
}

func (s *Scene) ID() string { return s.id }

func (s *Scene) AddEntity(_ context.Context, morph sim.Morph, opts ...sim.EntityOption) (sim.Entity, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return nil, err
	}
	if s.built {
		return nil, sim.ErrSceneBuilt
	}
	spec, err := e.opts.Catalog.Lookup(morph)
	if err != nil {
		return nil, err
	}
	ent := newEntity(s, fmt.Sprintf("%s/entity%d", s.id, len(s.entities)), morph, sim.ApplyEntityOptions(opts...), spec)
	s.entities = append(s.entities, ent)
	e.journal.record(Call{
		Op:       sim.OpAddEntity,
		Target:   ent.id,
		Text:     string(morph.Kind) + ":" + morph.File,
		Morph:    &morph,
		Material: ent.Material(),
	})
	e.logger.Debug("Entity added",
		log.String("entity", ent.id),
		log.String("kind", string(morph.Kind)),
		log.String("file", morph.File),
		log.Int("dofs", ent.NumDofs()))
	return ent, nil
}

func (s *Scene) AddCamera(_ context.Context, opts sim.CameraOptions) (sim.Camera, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return nil, err
	}
	if s.built {
		return nil, sim.ErrSceneBuilt
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cam := &Camera{scene: s, id: fmt.Sprintf("%s/camera%d", s.id, len(s.cameras)), opts: opts}
	s.cameras = append(s.cameras, cam)
	e.journal.record(Call{Op: sim.OpAddCamera, Target: cam.id})
	return cam, nil
}

func (s *Scene) Build(_ context.Context) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return err
	}
	if s.built {
		return sim.ErrSceneBuilt
	}
	s.built = true
	e.journal.record(Call{Op: sim.OpBuild, Target: s.id})
	e.logger.Info("Scene built",
		log.String("scene", s.id),
		log.Int("entities", len(s.entities)),
		log.Int("cameras", len(s.cameras)))
	return nil
}

func (s *Scene) IsBuilt() bool {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.built
}

func (s *Scene) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(); err != nil {
		return err
	}
	if !s.built {
		return sim.ErrSceneNotBuilt
	}
	for _, ent := range s.entities {
		ent.integrate(s.dt)
	}
	s.steps++
	e.journal.record(Call{Op: sim.OpStep, Target: s.id})
	return nil
}

func (s *Scene) Viewer() sim.Viewer {
	return s.viewer
}

// Steps returns how many times the scene has been stepped.
func (s *Scene) Steps() int64 {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.steps
}

// Snapshot copies the current joint state of every articulated entity.
func (s *Scene) Snapshot() Snapshot {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() Snapshot {
	snap := Snapshot{SceneID: s.id, Steps: s.steps, Time: float64(s.steps) * s.dt}
	for _, ent := range s.entities {
		if ent.NumDofs() == 0 {
			continue
		}
		names := make([]string, len(ent.spec.Joints))
		for i, j := range ent.spec.Joints {
			names[i] = j.Name
		}
		snap.Entities = append(snap.Entities, EntitySnapshot{
			ID:     ent.id,
			File:   ent.morph.File,
			Joints: names,
			Qpos:   slices.Clone(ent.q),
			Force:  slices.Clone(ent.force),
		})
	}
	return snap
}
