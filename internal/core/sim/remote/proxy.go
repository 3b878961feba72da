package remote

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zeusync/simrunner/internal/core/sim"
)

var (
	_ sim.Scene  = (*scene)(nil)
	_ sim.Entity = (*entity)(nil)
	_ sim.Camera = (*camera)(nil)
	_ sim.Viewer = (*viewer)(nil)
)

type scene struct {
	client *Client
	handle string
	id     string
	viewer string
	built  atomic.Bool

	viewerOnce sync.Once
	view       *viewer
}

func (s *scene) ID() string { return s.id }

func (s *scene) AddEntity(ctx context.Context, morph sim.Morph, opts ...sim.EntityOption) (sim.Entity, error) {
	eo := sim.ApplyEntityOptions(opts...)
	var res entityResult
	err := s.client.call(ctx, sim.OpAddEntity, s.handle, addEntityParams{Morph: morph, Material: eo.Material}, &res)
	if err != nil {
		return nil, err
	}
	return &entity{client: s.client, handle: res.Handle, id: res.ID, morph: morph, numDofs: res.NumDofs}, nil
}

func (s *scene) AddCamera(ctx context.Context, opts sim.CameraOptions) (sim.Camera, error) {
	var res cameraResult
	if err := s.client.call(ctx, sim.OpAddCamera, s.handle, addCameraParams{Options: opts}, &res); err != nil {
		return nil, err
	}
	return &camera{client: s.client, handle: res.Handle, id: res.ID}, nil
}

func (s *scene) Build(ctx context.Context) error {
	var res builtResult
	if err := s.client.call(ctx, sim.OpBuild, s.handle, nil, &res); err != nil {
		return err
	}
	s.built.Store(res.Built)
	return nil
}

// IsBuilt reports the state seen by the last successful Build.
func (s *scene) IsBuilt() bool { return s.built.Load() }

func (s *scene) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.call(ctx, sim.OpStep, s.handle, nil, nil)
}

func (s *scene) Viewer() sim.Viewer {
	if s.viewer == "" {
		return nil
	}
	s.viewerOnce.Do(func() {
		s.view = &viewer{client: s.client, handle: s.viewer}
	})
	return s.view
}

type viewer struct {
	client *Client
	handle string
}

// Start blocks until the remote viewer returns. It is not subject to the
// call timeout. A done ctx ends the wait without error; the remote viewer
// keeps running until Stop.
func (v *viewer) Start(ctx context.Context) error {
	err := v.client.invoke(ctx, 0, sim.OpViewerStart, v.handle, nil, nil)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (v *viewer) Stop() error {
	return v.client.call(context.Background(), sim.OpViewerStop, v.handle, nil, nil)
}

type entity struct {
	client  *Client
	handle  string
	id      string
	morph   sim.Morph
	numDofs int
}

func (e *entity) ID() string       { return e.id }
func (e *entity) Morph() sim.Morph { return e.morph }
func (e *entity) NumDofs() int     { return e.numDofs }

func (e *entity) Joint(ctx context.Context, name string) (sim.Joint, error) {
	var j sim.Joint
	err := e.client.call(ctx, sim.OpJoint, e.handle, nameParams{Name: name}, &j)
	return j, err
}

func (e *entity) Link(ctx context.Context, name string) (sim.Link, error) {
	var l sim.Link
	err := e.client.call(ctx, sim.OpLink, e.handle, nameParams{Name: name}, &l)
	return l, err
}

func (e *entity) dofs(ctx context.Context, op string, values []float64, dofs []int) error {
	return e.client.call(ctx, op, e.handle, dofsParams{Values: values, Dofs: dofs}, nil)
}

func (e *entity) SetDofsKp(ctx context.Context, kp []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpSetKp, kp, dofs)
}

func (e *entity) SetDofsKv(ctx context.Context, kv []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpSetKv, kv, dofs)
}

func (e *entity) SetDofsForceRange(ctx context.Context, lower, upper []float64, dofs []int) error {
	return e.client.call(ctx, sim.OpSetForceRange, e.handle, dofsParams{Values: lower, Upper: upper, Dofs: dofs}, nil)
}

func (e *entity) SetDofsPosition(ctx context.Context, qpos []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpSetPosition, qpos, dofs)
}

func (e *entity) ControlDofsPosition(ctx context.Context, target []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpControlPosition, target, dofs)
}

func (e *entity) ControlDofsVelocity(ctx context.Context, target []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpControlVelocity, target, dofs)
}

func (e *entity) ControlDofsForce(ctx context.Context, force []float64, dofs []int) error {
	return e.dofs(ctx, sim.OpControlForce, force, dofs)
}

func (e *entity) DofsControlForce(ctx context.Context, dofs []int) ([]float64, error) {
	var out []float64
	err := e.client.call(ctx, sim.OpGetControlForce, e.handle, dofsParams{Dofs: dofs}, &out)
	return out, err
}

func (e *entity) InverseKinematics(ctx context.Context, link sim.Link, pos sim.Vec3, quat sim.Quat) ([]float64, error) {
	var out []float64
	err := e.client.call(ctx, sim.OpIK, e.handle, ikParams{Link: link, Pos: pos, Quat: quat}, &out)
	return out, err
}

func (e *entity) PlanPath(ctx context.Context, goal []float64) ([][]float64, error) {
	var out [][]float64
	err := e.client.call(ctx, sim.OpPlanPath, e.handle, planParams{Goal: goal}, &out)
	return out, err
}

type camera struct {
	client *Client
	handle string
	id     string
}

func (c *camera) ID() string { return c.id }

func (c *camera) StartRecording(ctx context.Context) error {
	return c.client.call(ctx, sim.OpStartRecording, c.handle, nil, nil)
}

func (c *camera) Render(ctx context.Context) (sim.Frame, error) {
	var f sim.Frame
	err := c.client.call(ctx, sim.OpRender, c.handle, nil, &f)
	return f, err
}

func (c *camera) StopRecording(ctx context.Context, filename string, fps int) (sim.Recording, error) {
	var r sim.Recording
	err := c.client.call(ctx, sim.OpStopRecording, c.handle, stopRecordingParams{Filename: filename, FPS: fps}, &r)
	return r, err
}
