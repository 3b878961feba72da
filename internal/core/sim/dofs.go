package sim

import (
	"context"
	"fmt"
)

// ResolveDofs expands a nil index list to all n DOFs and bounds-checks an
// explicit one.
func ResolveDofs(n int, dofs []int) ([]int, error) {
	if dofs == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	for _, d := range dofs {
		if d < 0 || d >= n {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrDofIndex, d, n)
		}
	}
	return dofs, nil
}

// CheckValues verifies that one value is given per addressed DOF.
func CheckValues(values []float64, dofs []int) error {
	if len(values) != len(dofs) {
		return fmt.Errorf("%w: %d values for %d dofs", ErrDofMismatch, len(values), len(dofs))
	}
	return nil
}

// JointDofs resolves joint names to their local DOF indices, in order.
func JointDofs(ctx context.Context, e Entity, names ...string) ([]int, error) {
	dofs := make([]int, 0, len(names))
	for _, name := range names {
		j, err := e.Joint(ctx, name)
		if err != nil {
			return nil, err
		}
		dofs = append(dofs, j.DofIdx)
	}
	return dofs, nil
}

// Span returns the contiguous index list [from, to).
func Span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
