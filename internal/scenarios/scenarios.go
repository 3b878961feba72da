// Package scenarios holds the scripted simulation runs. Each scenario
// drives a runner.Runner through the whole pipeline; the caller owns the
// runner and closes it.
package scenarios

import (
	"context"
	"fmt"
	"sort"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/runner"
)

// Options tunes a scenario run.
type Options struct {
	Init   sim.InitOptions
	Logger log.Log
	// MaxSteps caps free-running loops. Zero means DefaultMaxSteps.
	MaxSteps int64
	// VideoFile overrides the recording filename of scenarios that record.
	VideoFile string
}

func (o Options) logger() log.Log {
	if o.Logger == nil {
		return log.Provide()
	}
	return o.Logger
}

// Scenario is a named scripted run.
type Scenario struct {
	Name    string
	Command string
	Summary string
	// Visualize is the default of the -vis flag.
	Visualize bool
	Run       func(ctx context.Context, r *runner.Runner, opts Options) error
}

var registry = map[string]Scenario{
	ControlFranka.Name: ControlFranka,
	Generate.Name:      Generate,
	GraspBottle.Name:   GraspBottle,
}

// Lookup returns the scenario registered under name.
func Lookup(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// Names lists the registered scenarios in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Panda gains and limits, in dof order joint1..joint7, finger_joint1..2.
var (
	pandaKp     = []float64{4500, 4500, 3500, 3500, 2000, 2000, 2000, 100, 100}
	pandaKv     = []float64{450, 450, 350, 350, 200, 200, 200, 10, 10}
	pandaForceL = []float64{-87, -87, -87, -87, -12, -12, -12, -100, -100}
	pandaForceU = []float64{87, 87, 87, 87, 12, 12, 12, 100, 100}
)

// showcaseScene is the scene layout shared by control-franka and generate.
func showcaseScene() sim.SceneOptions {
	return sim.SceneOptions{
		Viewer: sim.ViewerOptions{
			Res:          [2]int{1280, 960},
			CameraPos:    sim.Vec3{3.5, 0, 2.5},
			CameraLookat: sim.Vec3{3.5, 0, 2.5},
			CameraFOV:    30,
			MaxFPS:       60,
		},
		Vis: sim.VisOptions{
			ShowWorldFrame:  true,
			WorldFrameSize:  1,
			ShowLinkFrame:   false,
			ShowCameras:     true,
			PlaneReflection: true,
			AmbientLight:    [3]float64{0.1, 0.1, 0.1},
		},
		Renderer: sim.RendererRasterizer,
	}
}

// recordingCamera is the 640x480 camera of generate and grasp-bottle.
func recordingCamera() sim.CameraOptions {
	return sim.CameraOptions{
		Res:    [2]int{640, 480},
		Pos:    sim.Vec3{3.5, 0, 2.5},
		Lookat: sim.Vec3{0, 0, 0.5},
		FOV:    30,
		GUI:    true,
	}
}

// stepRender advances one step and renders cam.
func stepRender(ctx context.Context, s *runner.Session, cam sim.Camera) error {
	if err := s.Step(ctx); err != nil {
		return err
	}
	_, err := cam.Render(ctx)
	return err
}
