package benders

import (
	"fmt"
	"strings"
	"time"
)

// State tracks a decomposition run through its lifecycle. StateConverged,
// StateFailed and StateTimedOut are terminal.
type State int

const (
	StateInitializing State = iota
	StateIterating
	StateConverged
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of a decomposition run: the final open decisions,
// the per-scenario cost estimates, the verified expected objective and the
// work counters. CutsMIP counts cuts separated at integer candidates, the
// warm-start opening included, CutsRel cuts separated at node relaxations,
// both indexed by scenario.
// Proven is false when the run stopped on a budget rather than at
// convergence; Y is nil when the budget expired before any incumbent.
type Result struct {
	Y          []float64
	Open       []int
	Eta        []float64
	Objective  float64
	Iterations int
	CutsMIP    []int
	CutsRel    []int
	Nodes      int
	Runtime    time.Duration
	State      State
	Proven     bool
}

func sum(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func (r *Result) String() string {
	s := new(strings.Builder)
	if r.Y == nil {
		fmt.Fprintf(s, "State: %v, no incumbent found after %v", r.State, r.Runtime)
		return s.String()
	}

	fmt.Fprintf(s, "Objective value: %g\n", r.Objective)
	s.WriteString("Open facilities: [ ")
	for _, j := range r.Open {
		fmt.Fprintf(s, "%d ", j)
	}
	s.WriteString("]\n")
	fmt.Fprintf(s, "Solution time: %v\n", r.Runtime)
	fmt.Fprintf(s, "N. of iterations: %d\n", r.Iterations)
	fmt.Fprintf(s, "N. of optimality cuts: %d\n", sum(r.CutsMIP))
	fmt.Fprintf(s, "N. of optimality cuts (at node relaxations): %d\n", sum(r.CutsRel))
	fmt.Fprintf(s, "N. of explored branch-and-bound nodes: %d", r.Nodes)
	if !r.Proven {
		fmt.Fprintf(s, "\nStopped %v, not proven optimal", r.State)
	}
	return s.String()
}
