package benders

import (
	"math"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/solver"
	"github.com/pkg/errors"
)

// ExtensiveForm builds the deterministic equivalent of the stochastic
// program as one monolithic MIP: the binary open decisions followed by a
// shipment variable per scenario, customer and facility, with every
// scenario's transportation constraints stated explicitly. It grows with
// the scenario count and serves as a cross-check for the decomposition on
// instances small enough to enumerate.
func ExtensiveForm(inst *cflp.Instance) *solver.Model {
	n, m := inst.NumCustomers, inst.NumFacilities
	numScenarios := inst.NumScenarios()
	col := func(s, i, j int) int { return m + s*n*m + i*m + j }

	model := solver.NewModel(m + numScenarios*n*m)
	for j := range m {
		model.Costs[j] = inst.FixedCosts.AtVec(j)
		model.Upper[j] = 1
		model.Integer[j] = true
	}
	weight := 1 / float64(numScenarios)
	for s := range numScenarios {
		for i := range n {
			for j := range m {
				model.Costs[col(s, i, j)] = weight * inst.Cost(i, j)
			}
		}
	}

	for s := range numScenarios {
		for i := range n {
			coefs := make([]solver.Nonzero, m)
			for j := range m {
				coefs[j] = solver.Nonzero{Col: col(s, i, j), Val: 1}
			}
			model.AddRow(inst.Demand(s, i), coefs, math.Inf(1))
		}
		for j := range m {
			coefs := make([]solver.Nonzero, 0, n+1)
			for i := range n {
				coefs = append(coefs, solver.Nonzero{Col: col(s, i, j), Val: 1})
			}
			coefs = append(coefs, solver.Nonzero{Col: j, Val: -inst.Capacities.AtVec(j)})
			model.AddRow(math.Inf(-1), coefs, 0)
		}
	}

	capacity := make([]solver.Nonzero, m)
	for j := range m {
		capacity[j] = solver.Nonzero{Col: j, Val: inst.Capacities.AtVec(j)}
	}
	model.AddRow(inst.MaxScenarioDemand(), capacity, math.Inf(1))

	return model
}

// SolveExtensive solves the deterministic equivalent on the in-repo engine
// and reports the open decisions and objective in master-solution form.
func SolveExtensive(inst *cflp.Instance, opts Options) (*MasterSolution, error) {
	opts.normalize()
	sol, err := solver.SolveMIP(ExtensiveForm(inst), solver.Options{
		GapAbs:    opts.GapAbs,
		GapRel:    opts.GapRel,
		TimeLimit: opts.TimeLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "extensive form")
	}
	if sol.Status == solver.Infeasible {
		return nil, errors.Wrap(ErrMasterInfeasible, "extensive form infeasible")
	}
	if sol.X == nil {
		return nil, errors.Errorf("benders: extensive form stopped with %v before an incumbent", sol.Status)
	}

	return &MasterSolution{
		Y:         sol.X[:inst.NumFacilities],
		Objective: sol.Objective,
		Nodes:     sol.Nodes,
		Proven:    sol.Proven(),
	}, nil
}
