package main

import (
	"fmt"
	"slices"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/benders"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/solver"
	"github.com/lanl/highs"
)

// toHighs translates the in-repo model layout into the HiGHS one. Column
// lower bounds are zero in both, and infinite bounds pass through.
func toHighs(m *solver.Model) *highs.Model {
	cols := len(m.Costs)
	lp := new(highs.Model)
	lp.ColCosts = slices.Clone(m.Costs)
	lp.ColLower = make([]float64, cols)
	lp.ColUpper = slices.Clone(m.Upper)
	lp.VarTypes = make([]highs.VariableType, cols)
	for j, integer := range m.Integer {
		if integer {
			lp.VarTypes[j] = highs.IntegerType
		}
	}

	for i, r := range m.Rows {
		for _, nz := range r.Coefs {
			lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: i, Col: nz.Col, Val: nz.Val})
		}
		lp.RowLower = append(lp.RowLower, r.Lo)
		lp.RowUpper = append(lp.RowUpper, r.Hi)
	}
	return lp
}

// checkExtensive solves the deterministic equivalent with HiGHS, as an
// independent reference for the decomposition objective.
func checkExtensive(inst *cflp.Instance) (float64, error) {
	sol, err := toHighs(benders.ExtensiveForm(inst)).Solve()
	if err != nil {
		return 0, err
	}
	if sol.Status != highs.Optimal {
		return 0, fmt.Errorf("status: %v", sol.Status.String())
	}
	return sol.Objective, nil
}
