package benders

import (
	"math"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/solver"
	"gonum.org/v1/gonum/floats"
)

const dedupTol = 1e-9

// Cut is the optimality cut
//
//	eta_s >= Const - sum_j Coeffs[j]*y_j
//
// derived from one subproblem's dual solution. By weak LP duality it is
// valid for every y, not only the open decisions it was generated at, and
// by strong duality it supports the true scenario cost at that point.
type Cut struct {
	Scenario int
	Coeffs   []float64
	Const    float64
}

// NewCut turns a subproblem result into its optimality cut:
// Coeffs[j] = Nu[j]*u_j and Const = sum_i Mu[i]*d_i.
func NewCut(inst *cflp.Instance, res *SubproblemResult) Cut {
	coeffs := make([]float64, inst.NumFacilities)
	for j := range coeffs {
		coeffs[j] = res.Nu[j] * inst.Capacities.AtVec(j)
	}
	constant := 0.0
	for i, mu := range res.Mu {
		constant += mu * inst.Demand(res.Scenario, i)
	}
	return Cut{Scenario: res.Scenario, Coeffs: coeffs, Const: constant}
}

// RHS evaluates the cut's lower bound on eta at the given open decisions.
func (c Cut) RHS(y []float64) float64 {
	return c.Const - floats.Dot(c.Coeffs, y)
}

// row states the cut as the master model row
// eta_s + sum_j Coeffs[j]*y_j >= Const.
func (c Cut) row(etaCol int) solver.Row {
	coefs := make([]solver.Nonzero, 0, len(c.Coeffs)+1)
	coefs = append(coefs, solver.Nonzero{Col: etaCol, Val: 1})
	for j, v := range c.Coeffs {
		if v != 0 {
			coefs = append(coefs, solver.Nonzero{Col: j, Val: v})
		}
	}
	return solver.Row{Lo: c.Const, Coefs: coefs, Hi: math.Inf(1)}
}

func duplicate(a, b Cut) bool {
	if math.Abs(a.Const-b.Const) > dedupTol {
		return false
	}
	return floats.EqualApprox(a.Coeffs, b.Coeffs, dedupTol)
}

// pool holds the accepted cuts per scenario. Cuts are never removed; add
// only rejects near-duplicates of a pooled cut for the same scenario, which
// is safe because a row already in the model cannot be violated by a master
// solution.
type pool struct {
	cuts [][]Cut
}

func newPool(scenarios int) *pool {
	return &pool{cuts: make([][]Cut, scenarios)}
}

func (p *pool) add(c Cut) bool {
	for _, have := range p.cuts[c.Scenario] {
		if duplicate(have, c) {
			return false
		}
	}
	p.cuts[c.Scenario] = append(p.cuts[c.Scenario], c)
	return true
}

func (p *pool) size() int {
	total := 0
	for _, cuts := range p.cuts {
		total += len(cuts)
	}
	return total
}
