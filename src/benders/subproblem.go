package benders

import (
	"math"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/solver"
	"github.com/pkg/errors"
)

// ErrSubproblemInfeasible reports a transportation subproblem with no
// feasible shipment plan for the given open decisions. A master that
// carries the aggregate capacity constraint should never produce such a
// candidate, so this signals inconsistent data or model state and is fatal:
// retrying with the same decisions cannot change feasibility.
var ErrSubproblemInfeasible = errors.New("benders: subproblem infeasible")

// SubproblemResult holds one scenario's optimal transportation cost and the
// dual multipliers a cut is built from: Mu per customer demand constraint
// and Nu per facility capacity constraint, both nonnegative. Results are
// consumed by NewCut and not retained across iterations.
type SubproblemResult struct {
	Scenario  int
	Objective float64
	Mu        []float64
	Nu        []float64
}

// SolveSubproblem solves the transportation LP of one scenario for fixed
// open decisions:
//
//	min  sum_ij c_ij*x_ij
//	s.t. sum_j x_ij >= d_i          for every customer i
//	     sum_i x_ij <= u_j*open_j   for every facility j
//	     x_ij >= 0
//
// open holds one value per facility and may be fractional: separation at a
// node relaxation passes the relaxed decisions straight through. A solve
// with every facility closed and positive demand reports
// ErrSubproblemInfeasible, distinct from a feasible zero-cost plan.
func SolveSubproblem(inst *cflp.Instance, open []float64, scenario int) (*SubproblemResult, error) {
	n, m := inst.NumCustomers, inst.NumFacilities

	model := solver.NewModel(n * m)
	for i := range n {
		for j := range m {
			model.Costs[i*m+j] = inst.Cost(i, j)
		}
	}
	for i := range n {
		coefs := make([]solver.Nonzero, m)
		for j := range m {
			coefs[j] = solver.Nonzero{Col: i*m + j, Val: 1}
		}
		model.AddRow(inst.Demand(scenario, i), coefs, math.Inf(1))
	}
	for j := range m {
		coefs := make([]solver.Nonzero, n)
		for i := range n {
			coefs[i] = solver.Nonzero{Col: i*m + j, Val: 1}
		}
		// Relaxed y can carry simplex dust below zero; a negative capacity
		// would make the row unsatisfiable for x >= 0.
		model.AddRow(math.Inf(-1), coefs, max(0, inst.Capacities.AtVec(j)*open[j]))
	}

	sol, err := solver.SolveLP(model)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %d", scenario)
	}
	switch sol.Status {
	case solver.Optimal:
	case solver.Infeasible:
		return nil, errors.Wrapf(ErrSubproblemInfeasible, "scenario %d", scenario)
	default:
		return nil, errors.Errorf("benders: scenario %d subproblem reported %v", scenario, sol.Status)
	}

	mu := make([]float64, n)
	copy(mu, sol.RowDuals[:n])
	nu := make([]float64, m)
	for j := range m {
		// Capacity rows are <=, reported with nonpositive duals.
		nu[j] = -sol.RowDuals[n+j]
	}
	return &SubproblemResult{Scenario: scenario, Objective: sol.Objective, Mu: mu, Nu: nu}, nil
}
