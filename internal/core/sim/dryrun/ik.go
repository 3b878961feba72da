package dryrun

import (
	"math"
	"slices"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// solveIK places the tool tip of a planar shoulder/elbow arm above pos with
// the tool pointing straight down. Joints outside the planar chain take
// their home value, fingers keep their current one. Models without a
// PlanarIK section answer with their home pose.
func solveIK(spec ModelSpec, current []float64, pos sim.Vec3) []float64 {
	q := make([]float64, len(spec.Joints))
	for i, j := range spec.Joints {
		q[i] = j.Home
	}
	ik := spec.IK
	if ik == nil {
		return q
	}
	for _, f := range ik.Fingers {
		q[f] = current[f]
	}

	r := math.Hypot(pos.X(), pos.Y())
	z := pos.Z() + ik.Tool - ik.BaseHeight
	l1, l2 := ik.Upper, ik.Fore

	cosBend := (r*r + z*z - l1*l1 - l2*l2) / (2 * l1 * l2)
	bend := math.Acos(math.Max(-1, math.Min(1, cosBend)))
	elevation := math.Atan2(z, r) + math.Atan2(l2*math.Sin(bend), l1+l2*math.Cos(bend))

	q[ik.Yaw] = math.Atan2(pos.Y(), pos.X())
	q[ik.Shoulder] = math.Pi/2 - elevation
	q[ik.Elbow] = -bend
	q[ik.Wrist] = q[ik.Shoulder] - q[ik.Elbow]

	for i, j := range spec.Joints {
		q[i] = math.Max(j.Lower, math.Min(j.Upper, q[i]))
	}
	return q
}

// interpolate returns n waypoints easing from start to goal. The final
// waypoint is goal itself.
func interpolate(start, goal []float64, n int) [][]float64 {
	path := make([][]float64, n)
	for k := 1; k <= n; k++ {
		s := 0.5 - 0.5*math.Cos(math.Pi*float64(k)/float64(n))
		wp := make([]float64, len(goal))
		for i := range goal {
			wp[i] = start[i] + (goal[i]-start[i])*s
		}
		path[k-1] = wp
	}
	path[n-1] = slices.Clone(goal)
	return path
}
