package scenarios

import (
	"context"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/runner"
)

// ControlFranka hard-resets a Panda arm through three poses and then
// exercises position, velocity and force control.
var ControlFranka = Scenario{
	Name:      "control-franka",
	Command:   "controlfranka",
	Summary:   "controlfranka - resets a Panda arm through three poses, then runs position, velocity and force control.",
	Visualize: true,
	Run:       controlFranka,
}

// Control schedule
const (
	ResetSteps = 150
	PDSteps    = 1250
)

var (
	pandaJoints = []string{
		"joint1", "joint2", "joint3", "joint4", "joint5", "joint6", "joint7",
		"finger_joint1", "finger_joint2",
	}

	poseA    = []float64{1, 1, 0, 0, 0, 0, 0, 0.04, 0.04}
	poseB    = []float64{-1, 0.8, 1, -2, 1, 0.5, -0.5, 0.04, 0.04}
	poseZero = []float64{0, 0, 0, 0, 0, 0, 0, 0, 0}
)

func controlFranka(ctx context.Context, r *runner.Runner, opts Options) error {
	logger := opts.logger()

	if err := r.Init(ctx, opts.Init); err != nil {
		return err
	}
	if _, err := r.NewScene(ctx, showcaseScene()); err != nil {
		return err
	}
	if _, err := r.AddEntity(ctx, sim.Plane()); err != nil {
		return err
	}
	franka, err := r.AddEntity(ctx, sim.MJCF(sim.PandaMJCF))
	if err != nil {
		return err
	}
	if err = r.Build(ctx); err != nil {
		return err
	}

	dofs, err := sim.JointDofs(ctx, franka, pandaJoints...)
	if err != nil {
		return err
	}
	if err = franka.SetDofsKp(ctx, pandaKp, dofs); err != nil {
		return err
	}
	if err = franka.SetDofsKv(ctx, pandaKv, dofs); err != nil {
		return err
	}
	if err = franka.SetDofsForceRange(ctx, pandaForceL, pandaForceU, dofs); err != nil {
		return err
	}

	return r.Run(ctx, func(ctx context.Context, s *runner.Session) error {
		for i := 0; i < ResetSteps; i++ {
			pose := poseZero
			switch {
			case i < 50:
				pose = poseA
			case i < 100:
				pose = poseB
			}
			if err := franka.SetDofsPosition(ctx, pose, dofs); err != nil {
				return err
			}
			if err := s.Step(ctx); err != nil {
				return err
			}
		}

		for i := 0; i < PDSteps; i++ {
			if err := pdCommand(ctx, franka, dofs, i); err != nil {
				return err
			}
			force, err := franka.DofsControlForce(ctx, dofs)
			if err != nil {
				return err
			}
			logger.Info("Control force", log.Int("iteration", i), log.Float64s("force", force))
			if err := s.Step(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// pdCommand issues the control command scheduled for iteration i, if any.
func pdCommand(ctx context.Context, franka sim.Entity, dofs []int, i int) error {
	switch i {
	case 0:
		return franka.ControlDofsPosition(ctx, poseA, dofs)
	case 250:
		return franka.ControlDofsPosition(ctx, poseB, dofs)
	case 500:
		return franka.ControlDofsPosition(ctx, poseZero, dofs)
	case 750:
		// dof 0 under velocity control, the rest under position control
		if err := franka.ControlDofsPosition(ctx, poseZero[1:], dofs[1:]); err != nil {
			return err
		}
		return franka.ControlDofsVelocity(ctx, []float64{1.0}, dofs[:1])
	case 1000:
		return franka.ControlDofsForce(ctx, poseZero, dofs)
	}
	return nil
}
