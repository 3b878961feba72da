package scenarios

import (
	"context"
	"fmt"
	"slices"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/runner"
)

// GraspBottle picks up a water bottle with a Panda arm while recording.
var GraspBottle = Scenario{
	Name:      "grasp-bottle",
	Command:   "graspbottle",
	Summary:   "graspbottle - plans, reaches, grasps and lifts a water bottle while recording video.",
	Visualize: false,
	Run:       graspBottle,
}

const (
	DefaultVideoFile = "grasp_waterbottle_video.mp4"
	VideoFPS         = 60
	PhaseSteps       = 100
	fingerOpen       = 0.04
)

var (
	motorDofs  = sim.Span(0, 7)
	fingerDofs = sim.Span(7, 9)

	topDown    = sim.Quat{0, 1, 0, 0}
	preGrasp   = sim.Vec3{0.65, 0, 0.25}
	reachPos   = sim.Vec3{0.65, 0, 0.142}
	liftPos    = sim.Vec3{0.65, 0, 0.3}
	fingerGrip = []float64{0, 0}
	fingerLift = []float64{-20, -20}
)

func graspScene() sim.SceneOptions {
	viewer := sim.DefaultViewerOptions()
	viewer.CameraPos = sim.Vec3{3, -1, 1.5}
	viewer.CameraLookat = sim.Vec3{0, 0, 0}
	viewer.CameraFOV = 30
	viewer.MaxFPS = 60
	return sim.SceneOptions{
		Viewer: viewer,
		Rigid:  sim.RigidOptions{Dt: 0.01},
	}
}

func graspBottle(ctx context.Context, r *runner.Runner, opts Options) error {
	logger := opts.logger()
	video := opts.VideoFile
	if video == "" {
		video = DefaultVideoFile
	}

	if err := r.Init(ctx, opts.Init); err != nil {
		return err
	}
	if _, err := r.NewScene(ctx, graspScene()); err != nil {
		return err
	}
	if _, err := r.AddEntity(ctx, sim.URDF(sim.PlaneURDF).WithFixed(true)); err != nil {
		return err
	}
	bottle := sim.URDF(sim.BottleURDF).
		WithScale(0.09).
		WithPos(sim.Vec3{0.65, 0, 0.036}).
		WithEuler(sim.Vec3{0, 90, 0})
	if _, err := r.AddEntity(ctx, bottle, sim.WithMaterial(sim.Rigid(300))); err != nil {
		return err
	}
	franka, err := r.AddEntity(ctx, sim.MJCF(sim.PandaMJCF))
	if err != nil {
		return err
	}
	cam, err := r.AddCamera(ctx, recordingCamera())
	if err != nil {
		return err
	}
	if err = r.Build(ctx); err != nil {
		return err
	}

	if err = cam.StartRecording(ctx); err != nil {
		return err
	}
	if _, err = cam.Render(ctx); err != nil {
		return err
	}
	if err = franka.SetDofsKp(ctx, pandaKp, nil); err != nil {
		return err
	}
	if err = franka.SetDofsKv(ctx, pandaKv, nil); err != nil {
		return err
	}
	if err = franka.SetDofsForceRange(ctx, pandaForceL, pandaForceU, nil); err != nil {
		return err
	}
	hand, err := franka.Link(ctx, "hand")
	if err != nil {
		return err
	}

	err = r.Run(ctx, func(ctx context.Context, s *runner.Session) error {
		steps := func(n int) error {
			for i := 0; i < n; i++ {
				if err := stepRender(ctx, s, cam); err != nil {
					return err
				}
			}
			return nil
		}

		// pre-grasp
		qpos, err := franka.InverseKinematics(ctx, hand, preGrasp, topDown)
		if err != nil {
			return err
		}
		if qpos, err = openFingers(qpos); err != nil {
			return err
		}
		path, err := franka.PlanPath(ctx, qpos)
		if err != nil {
			return err
		}
		for _, waypoint := range path {
			if err := franka.ControlDofsPosition(ctx, waypoint, nil); err != nil {
				return err
			}
			if err := stepRender(ctx, s, cam); err != nil {
				return err
			}
		}
		logger.Info("Pre-grasp pose reached", log.Int("waypoints", len(path)))

		// reach
		qpos, err = franka.InverseKinematics(ctx, hand, reachPos, topDown)
		if err != nil {
			return err
		}
		motors, err := arm(qpos)
		if err != nil {
			return err
		}
		if err := franka.ControlDofsPosition(ctx, motors, motorDofs); err != nil {
			return err
		}
		if err := steps(PhaseSteps); err != nil {
			return err
		}

		// grasp
		if err := franka.ControlDofsPosition(ctx, motors, motorDofs); err != nil {
			return err
		}
		if err := franka.ControlDofsPosition(ctx, fingerGrip, fingerDofs); err != nil {
			return err
		}
		if err := steps(PhaseSteps); err != nil {
			return err
		}

		// lift
		qpos, err = franka.InverseKinematics(ctx, hand, liftPos, topDown)
		if err != nil {
			return err
		}
		if motors, err = arm(qpos); err != nil {
			return err
		}
		if err := franka.ControlDofsPosition(ctx, motors, motorDofs); err != nil {
			return err
		}
		if err := franka.ControlDofsForce(ctx, fingerLift, fingerDofs); err != nil {
			return err
		}
		if err := steps(PhaseSteps); err != nil {
			return err
		}
		logger.Info("Lift complete, stopping recording")
		return nil
	})
	if err != nil {
		return err
	}
	if rep := r.Report(); rep.Stopped || rep.Err != nil {
		return nil
	}

	_, err = r.SaveRecording(ctx, cam, video, VideoFPS)
	return err
}

// openFingers sets the two finger entries of a configuration to open.
func openFingers(qpos []float64) ([]float64, error) {
	if err := checkFingers(qpos); err != nil {
		return nil, err
	}
	q := slices.Clone(qpos)
	q[len(q)-2] = fingerOpen
	q[len(q)-1] = fingerOpen
	return q, nil
}

// arm drops the two finger entries of a configuration.
func arm(qpos []float64) ([]float64, error) {
	if err := checkFingers(qpos); err != nil {
		return nil, err
	}
	return qpos[:len(qpos)-2], nil
}

func checkFingers(qpos []float64) error {
	if len(qpos) < len(fingerDofs) {
		return fmt.Errorf("%w: configuration has %d values, need at least %d", sim.ErrDofMismatch, len(qpos), len(fingerDofs))
	}
	return nil
}
