package dryrun

import (
	"slices"
	"sync"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// Call is one recorded engine operation.
type Call struct {
	Seq    int
	Op     string
	Target string
	Dofs   []int
	Values []float64
	// Upper carries the second vector of force-range calls.
	Upper []float64
	Text  string
	// Morph and Material are set on add_entity calls.
	Morph    *sim.Morph
	Material *sim.Material
}

// Journal records every operation an Engine performs, in order.
type Journal struct {
	mu    sync.Mutex
	calls []Call
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) record(c Call) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c.Seq = len(j.calls)
	c.Dofs = slices.Clone(c.Dofs)
	c.Values = slices.Clone(c.Values)
	c.Upper = slices.Clone(c.Upper)
	if c.Material != nil {
		m := *c.Material
		c.Material = &m
	}
	j.calls = append(j.calls, c)
}

// Calls returns a snapshot of all recorded calls.
func (j *Journal) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.calls)
}

// Ops returns the operation names in order.
func (j *Journal) Ops() []string {
	calls := j.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

// Filter returns the calls whose operation is one of ops.
func (j *Journal) Filter(ops ...string) []Call {
	var out []Call
	for _, c := range j.Calls() {
		if slices.Contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls of op were recorded.
func (j *Journal) Count(op string) int {
	return len(j.Filter(op))
}

// First returns the sequence number of the first op call, or -1.
func (j *Journal) First(op string) int {
	for _, c := range j.Calls() {
		if c.Op == op {
			return c.Seq
		}
	}
	return -1
}

// Last returns the sequence number of the last op call, or -1.
func (j *Journal) Last(op string) int {
	last := -1
	for _, c := range j.Calls() {
		if c.Op == op {
			last = c.Seq
		}
	}
	return last
}

// Reset drops all recorded calls.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.calls = nil
	j.mu.Unlock()
}
