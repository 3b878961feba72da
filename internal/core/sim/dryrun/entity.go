package dryrun

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/zeusync/simrunner/internal/core/sim"
)

var _ sim.Entity = (*Entity)(nil)

type controlMode uint8

const (
	modeNone controlMode = iota
	modePosition
	modeVelocity
	modeForce
)

// Default gains applied until SetDofsKp/SetDofsKv are called.
const (
	DefaultKp = 100.0
	DefaultKv = 10.0
)

// Entity implements sim.Entity. All state is guarded by the engine mutex.
type Entity struct {
	scene *Scene
	id    string
	morph sim.Morph
	opts  sim.EntityOptions
	spec  ModelSpec

	q, qd        []float64
	kp, kv       []float64
	lower, upper []float64
	mode         []controlMode
	target       []float64
	force        []float64
}

func newEntity(s *Scene, id string, morph sim.Morph, opts sim.EntityOptions, spec ModelSpec) *Entity {
	n := len(spec.Joints)
	ent := &Entity{
		scene:  s,
		id:     id,
		morph:  morph,
		opts:   opts,
		spec:   spec,
		q:      make([]float64, n),
		qd:     make([]float64, n),
		kp:     make([]float64, n),
		kv:     make([]float64, n),
		lower:  make([]float64, n),
		upper:  make([]float64, n),
		mode:   make([]controlMode, n),
		target: make([]float64, n),
		force:  make([]float64, n),
	}
	for i, j := range spec.Joints {
		ent.q[i] = j.Home
		ent.kp[i] = DefaultKp
		ent.kv[i] = DefaultKv
		ent.lower[i] = math.Inf(-1)
		ent.upper[i] = math.Inf(1)
	}
	return ent
}

func (e *Entity) ID() string      { return e.id }
func (e *Entity) Morph() sim.Morph { return e.morph }
func (e *Entity) NumDofs() int    { return len(e.spec.Joints) }

// Material returns the material the entity was registered with, if any.
func (e *Entity) Material() *sim.Material { return e.opts.Material }

func (e *Entity) Joint(_ context.Context, name string) (sim.Joint, error) {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	for i, j := range e.spec.Joints {
		if j.Name == name {
			eng.journal.record(Call{Op: sim.OpJoint, Target: e.id, Text: name, Dofs: []int{i}})
			return sim.Joint{Name: name, DofIdx: i}, nil
		}
	}
	return sim.Joint{}, fmt.Errorf("%w: %q on %s", sim.ErrUnknownJoint, name, e.id)
}

func (e *Entity) Link(_ context.Context, name string) (sim.Link, error) {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	idx := slices.Index(e.spec.Links, name)
	if idx < 0 {
		return sim.Link{}, fmt.Errorf("%w: %q on %s", sim.ErrUnknownLink, name, e.id)
	}
	eng.journal.record(Call{Op: sim.OpLink, Target: e.id, Text: name})
	return sim.Link{Name: name, Index: idx}, nil
}

func (e *Entity) SetDofsKp(_ context.Context, kp []float64, dofs []int) error {
	return e.apply(sim.OpSetKp, kp, dofs, func(i int, v float64) { e.kp[i] = v })
}

func (e *Entity) SetDofsKv(_ context.Context, kv []float64, dofs []int) error {
	return e.apply(sim.OpSetKv, kv, dofs, func(i int, v float64) { e.kv[i] = v })
}

func (e *Entity) SetDofsForceRange(_ context.Context, lower, upper []float64, dofs []int) error {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	idx, err := e.resolveLocked(lower, dofs)
	if err != nil {
		return err
	}
	if err := sim.CheckValues(upper, idx); err != nil {
		return err
	}
	for k, i := range idx {
		if lower[k] > upper[k] {
			return fmt.Errorf("%w: force range dof %d lower > upper", sim.ErrInvalidOption, i)
		}
	}
	for k, i := range idx {
		e.lower[i] = lower[k]
		e.upper[i] = upper[k]
	}
	eng.journal.record(Call{Op: sim.OpSetForceRange, Target: e.id, Dofs: idx, Values: lower, Upper: upper})
	return nil
}

func (e *Entity) SetDofsPosition(_ context.Context, qpos []float64, dofs []int) error {
	return e.apply(sim.OpSetPosition, qpos, dofs, func(i int, v float64) {
		e.q[i] = v
		e.qd[i] = 0
		e.force[i] = 0
	})
}

func (e *Entity) ControlDofsPosition(_ context.Context, target []float64, dofs []int) error {
	return e.apply(sim.OpControlPosition, target, dofs, func(i int, v float64) {
		e.mode[i] = modePosition
		e.target[i] = v
	})
}

func (e *Entity) ControlDofsVelocity(_ context.Context, target []float64, dofs []int) error {
	return e.apply(sim.OpControlVelocity, target, dofs, func(i int, v float64) {
		e.mode[i] = modeVelocity
		e.target[i] = v
	})
}

func (e *Entity) ControlDofsForce(_ context.Context, force []float64, dofs []int) error {
	return e.apply(sim.OpControlForce, force, dofs, func(i int, v float64) {
		e.mode[i] = modeForce
		e.target[i] = v
	})
}

func (e *Entity) DofsControlForce(_ context.Context, dofs []int) ([]float64, error) {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	idx, err := sim.ResolveDofs(e.NumDofs(), dofs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k], _ = e.controlTau(i, e.scene.dt)
	}
	eng.journal.record(Call{Op: sim.OpGetControlForce, Target: e.id, Dofs: idx, Values: out})
	return out, nil
}

func (e *Entity) InverseKinematics(_ context.Context, link sim.Link, pos sim.Vec3, quat sim.Quat) ([]float64, error) {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	if link.Index < 0 || link.Index >= len(e.spec.Links) || e.spec.Links[link.Index] != link.Name {
		return nil, fmt.Errorf("%w: %q on %s", sim.ErrUnknownLink, link.Name, e.id)
	}
	qpos := solveIK(e.spec, e.q, pos)
	eng.journal.record(Call{
		Op:     sim.OpIK,
		Target: e.id,
		Text:   link.Name,
		Values: []float64{pos[0], pos[1], pos[2], quat[0], quat[1], quat[2], quat[3]},
	})
	return qpos, nil
}

func (e *Entity) PlanPath(_ context.Context, goal []float64) ([][]float64, error) {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	if len(goal) != e.NumDofs() {
		return nil, fmt.Errorf("%w: goal has %d entries, entity has %d dofs", sim.ErrDofMismatch, len(goal), e.NumDofs())
	}
	path := interpolate(e.q, goal, eng.opts.Waypoints)
	eng.journal.record(Call{Op: sim.OpPlanPath, Target: e.id, Values: goal})
	return path, nil
}

func (e *Entity) apply(op string, values []float64, dofs []int, set func(i int, v float64)) error {
	eng := e.scene.engine
	eng.mu.Lock()
	defer eng.mu.Unlock()
	idx, err := e.resolveLocked(values, dofs)
	if err != nil {
		return err
	}
	for k, i := range idx {
		set(i, values[k])
	}
	eng.journal.record(Call{Op: op, Target: e.id, Dofs: idx, Values: values})
	return nil
}

func (e *Entity) resolveLocked(values []float64, dofs []int) ([]int, error) {
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	idx, err := sim.ResolveDofs(e.NumDofs(), dofs)
	if err != nil {
		return nil, err
	}
	if err := sim.CheckValues(values, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *Entity) readyLocked() error {
	if err := e.scene.engine.checkLocked(); err != nil {
		return err
	}
	if !e.scene.built {
		return sim.ErrSceneNotBuilt
	}
	if e.NumDofs() == 0 {
		return fmt.Errorf("%w: %s", sim.ErrNoDofs, e.id)
	}
	return nil
}

func (e *Entity) inertia(i int) float64 {
	if m := e.spec.Joints[i].Inertia; m > 0 {
		return m
	}
	return defaultMass
}

// controlTau returns the clamped actuator force for dof i over the next step
// and the resulting velocity. Position and velocity servos are integrated
// implicitly so that stiff gains stay stable at coarse timesteps.
func (e *Entity) controlTau(i int, dt float64) (tau, qdNext float64) {
	m := e.inertia(i)
	q, qd := e.q[i], e.qd[i]
	switch e.mode[i] {
	case modePosition:
		kp, kv := e.kp[i], e.kv[i]
		qdNext = (m*qd + dt*kp*(e.target[i]-q)) / (m + dt*kv + dt*dt*kp)
		tau = m * (qdNext - qd) / dt
	case modeVelocity:
		kv := e.kv[i]
		qdNext = (m*qd + dt*kv*e.target[i]) / (m + dt*kv)
		tau = m * (qdNext - qd) / dt
	case modeForce:
		tau = e.target[i]
	default:
		return 0, qd
	}
	tau = math.Max(e.lower[i], math.Min(e.upper[i], tau))
	return tau, qd + dt*tau/m
}

func (e *Entity) integrate(dt float64) {
	for i := range e.q {
		tau, qdNext := e.controlTau(i, dt)
		e.force[i] = tau
		e.qd[i] = qdNext
		e.q[i] += dt * qdNext
	}
}
