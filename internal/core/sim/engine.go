// Package sim defines the contract between scenario code and a robotics
// simulation engine. The engine itself (rigid-body stepping, rendering,
// inverse kinematics, motion planning, camera capture, model parsing) lives
// behind these interfaces.
package sim

import "context"

// Engine is the entry point of a simulation backend.
type Engine interface {
	// Init selects the compute backend and global options. It must be called
	// once before NewScene.
	Init(ctx context.Context, opts InitOptions) error

	// NewScene creates an empty, unbuilt scene.
	NewScene(ctx context.Context, opts SceneOptions) (Scene, error)

	// Generate asks the engine to populate the world from a text prompt.
	Generate(ctx context.Context, prompt string) error

	Close() error
}

// Scene is a simulated world container.
//
// Lifecycle: created by Engine.NewScene, populated with AddEntity and
// AddCamera, built exactly once with Build, then advanced with Step.
type Scene interface {
	ID() string

	AddEntity(ctx context.Context, morph Morph, opts ...EntityOption) (Entity, error)
	AddCamera(ctx context.Context, opts CameraOptions) (Camera, error)

	// Build allocates simulation buffers. Entities and cameras cannot be
	// added afterwards.
	Build(ctx context.Context) error
	IsBuilt() bool

	// Step advances simulated time by one fixed timestep.
	Step(ctx context.Context) error

	// Viewer returns the interactive viewer bound to the scene, or nil when
	// the scene was created with ShowViewer false.
	Viewer() Viewer
}

// Entity is a registered simulated object. For every DOF-indexed call a nil
// dofs slice addresses all DOFs of the entity in order.
type Entity interface {
	ID() string
	Morph() Morph
	NumDofs() int

	Joint(ctx context.Context, name string) (Joint, error)
	Link(ctx context.Context, name string) (Link, error)

	SetDofsKp(ctx context.Context, kp []float64, dofs []int) error
	SetDofsKv(ctx context.Context, kv []float64, dofs []int) error
	SetDofsForceRange(ctx context.Context, lower, upper []float64, dofs []int) error

	// SetDofsPosition teleports the DOFs to the given positions and zeroes
	// their velocities.
	SetDofsPosition(ctx context.Context, qpos []float64, dofs []int) error

	ControlDofsPosition(ctx context.Context, target []float64, dofs []int) error
	ControlDofsVelocity(ctx context.Context, target []float64, dofs []int) error
	ControlDofsForce(ctx context.Context, force []float64, dofs []int) error

	// DofsControlForce returns the internal control force computed from the
	// active command. Under force control it equals the command.
	DofsControlForce(ctx context.Context, dofs []int) ([]float64, error)

	// InverseKinematics returns a full configuration (NumDofs entries)
	// placing link at the given pose.
	InverseKinematics(ctx context.Context, link Link, pos Vec3, quat Quat) ([]float64, error)

	// PlanPath returns joint-space waypoints from the current configuration
	// to goal. The last waypoint equals goal.
	PlanPath(ctx context.Context, goal []float64) ([][]float64, error)
}

// Camera is a sensor attached to a scene.
type Camera interface {
	ID() string
	StartRecording(ctx context.Context) error
	Render(ctx context.Context) (Frame, error)
	// StopRecording finalizes the recorded frames into filename.
	StopRecording(ctx context.Context, filename string, fps int) (Recording, error)
}

// Viewer is the interactive visualization loop of a scene.
type Viewer interface {
	// Start blocks until Stop is called or ctx is done.
	Start(ctx context.Context) error
	// Stop ends the viewer loop. Calling it more than once is safe.
	Stop() error
}
