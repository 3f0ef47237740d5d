package solver

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	relaxedSimplexTol = 1e-7
	dualityTol        = 1e-6
	feasTol           = 1e-9
)

// ineq is one constraint of the >=-normalized form, coefs*x >= rhs. row is
// the originating model row (-1 for column-bound rows) and sign maps the
// piece's multiplier back to that row's dual: +1 for a Lo piece, -1 for a
// negated Hi piece.
type ineq struct {
	coefs []Nonzero
	rhs   float64
	row   int
	sign  float64
}

type normalForm struct {
	ineqs      []ineq
	kept       []int // original columns appearing in some inequality
	colPos     []int // original column -> compact position, or -1
	infeasible bool
	unbounded  bool
}

func negated(coefs []Nonzero) []Nonzero {
	neg := make([]Nonzero, len(coefs))
	for i, nz := range coefs {
		neg[i] = Nonzero{Col: nz.Col, Val: -nz.Val}
	}
	return neg
}

func (nf *normalForm) addIneq(coefs []Nonzero, rhs float64, row int, sign float64) {
	kept := coefs[:0:0]
	for _, nz := range coefs {
		if nz.Val != 0 {
			kept = append(kept, nz)
		}
	}
	if len(kept) == 0 {
		// Constant row: 0 >= rhs.
		if rhs > feasTol {
			nf.infeasible = true
		}
		return
	}
	for _, nz := range kept {
		if nf.colPos[nz.Col] < 0 {
			nf.colPos[nz.Col] = len(nf.kept)
			nf.kept = append(nf.kept, nz.Col)
		}
	}
	nf.ineqs = append(nf.ineqs, ineq{coefs: kept, rhs: rhs, row: row, sign: sign})
}

// normalize rewrites the model rows, the extra rows and the finite column
// upper bounds as a single system of >=-inequalities over x >= 0. Columns
// that appear in no inequality are fixed at zero; if such a column has a
// negative cost the problem is unbounded.
func normalize(m *Model, extra []Row) *normalForm {
	nf := &normalForm{colPos: make([]int, m.cols())}
	for j := range nf.colPos {
		nf.colPos[j] = -1
	}

	for i, r := range m.Rows {
		if !math.IsInf(r.Lo, -1) {
			nf.addIneq(r.Coefs, r.Lo, i, 1)
		}
		if !math.IsInf(r.Hi, 1) {
			nf.addIneq(negated(r.Coefs), -r.Hi, i, -1)
		}
	}
	for _, r := range extra {
		if !math.IsInf(r.Lo, -1) {
			nf.addIneq(r.Coefs, r.Lo, -1, 0)
		}
		if !math.IsInf(r.Hi, 1) {
			nf.addIneq(negated(r.Coefs), -r.Hi, -1, 0)
		}
	}
	for j, u := range m.Upper {
		if !math.IsInf(u, 1) {
			nf.addIneq([]Nonzero{{Col: j, Val: -1}}, -u, -1, 0)
		}
	}

	for j := range m.cols() {
		if nf.colPos[j] < 0 && m.Costs[j] < 0 {
			nf.unbounded = true
		}
	}
	return nf
}

// simplexWithRetry maps a first numerical failure to a second attempt with
// a relaxed pivot tolerance; a second failure surfaces as ErrNumeric.
// Infeasible and unbounded outcomes pass through untouched.
func simplexWithRetry(c []float64, A mat.Matrix, b []float64) (float64, []float64, error) {
	z, x, err := lp.Simplex(c, A, b, 0, nil)
	switch err {
	case nil, lp.ErrInfeasible, lp.ErrUnbounded:
		return z, x, err
	}
	z, x, err = lp.Simplex(c, A, b, relaxedSimplexTol, nil)
	switch err {
	case nil, lp.ErrInfeasible, lp.ErrUnbounded:
		return z, x, err
	}
	return 0, nil, errors.Wrapf(ErrNumeric, "simplex failed twice: %v", err)
}

// solvePrimal converts the normalized system to gonum standard form, one
// surplus column per inequality, and solves it.
func (nf *normalForm) solvePrimal(costs []float64) (float64, []float64, Status, error) {
	if nf.infeasible {
		return 0, nil, Infeasible, nil
	}
	if nf.unbounded {
		return 0, nil, Unbounded, nil
	}

	x := make([]float64, len(costs))
	numIneqs := len(nf.ineqs)
	if numIneqs == 0 {
		return 0, x, Optimal, nil
	}
	numKept := len(nf.kept)

	c := make([]float64, numKept+numIneqs)
	for p, j := range nf.kept {
		c[p] = costs[j]
	}
	A := mat.NewDense(numIneqs, numKept+numIneqs, nil)
	b := make([]float64, numIneqs)
	for k, iq := range nf.ineqs {
		for _, nz := range iq.coefs {
			p := nf.colPos[nz.Col]
			A.Set(k, p, A.At(k, p)+nz.Val)
		}
		A.Set(k, numKept+k, -1)
		b[k] = iq.rhs
	}

	z, xs, err := simplexWithRetry(c, A, b)
	switch err {
	case lp.ErrInfeasible:
		return 0, nil, Infeasible, nil
	case lp.ErrUnbounded:
		return 0, nil, Unbounded, nil
	}
	if err != nil {
		return 0, nil, Optimal, err
	}
	for p, j := range nf.kept {
		x[j] = xs[p]
	}
	return z, x, Optimal, nil
}

// solveDuals solves the explicit dual of the normalized system,
//
//	max rhs*lambda  s.t.  A~^T lambda <= costs, lambda >= 0,
//
// and folds the multipliers back onto the model rows. The dual optimum must
// match the primal one (strong duality); a mismatch is a numerical failure.
func (nf *normalForm) solveDuals(costs []float64, numRows int, zPrimal float64) ([]float64, error) {
	duals := make([]float64, numRows)
	numIneqs := len(nf.ineqs)
	if numIneqs == 0 {
		return duals, nil
	}
	numKept := len(nf.kept)

	c := make([]float64, numIneqs+numKept)
	for k, iq := range nf.ineqs {
		c[k] = -iq.rhs
	}
	A := mat.NewDense(numKept, numIneqs+numKept, nil)
	b := make([]float64, numKept)
	for p, j := range nf.kept {
		b[p] = costs[j]
	}
	for k, iq := range nf.ineqs {
		for _, nz := range iq.coefs {
			p := nf.colPos[nz.Col]
			A.Set(p, k, A.At(p, k)+nz.Val)
		}
	}
	for p := range numKept {
		A.Set(p, numIneqs+p, 1)
	}

	zNeg, lambda, err := simplexWithRetry(c, A, b)
	if err == lp.ErrInfeasible || err == lp.ErrUnbounded {
		return nil, errors.Wrapf(ErrNumeric, "dual solve reported %v for an optimal primal", err)
	}
	if err != nil {
		return nil, err
	}
	zDual := -zNeg
	if math.Abs(zDual-zPrimal) > dualityTol*(1+math.Abs(zPrimal)) {
		return nil, errors.Wrapf(ErrNumeric,
			"strong duality violated: primal %g, dual %g", zPrimal, zDual)
	}

	for k, iq := range nf.ineqs {
		if iq.row >= 0 {
			duals[iq.row] += iq.sign * lambda[k]
		}
	}
	return duals, nil
}

// SolveLP solves the model as a pure LP, ignoring integrality marks, and
// reports primal values, objective and per-row duals. Infeasible and
// unbounded models are reported through Status, not as errors.
func SolveLP(m *Model) (Solution, error) {
	nf := normalize(m, nil)
	z, x, status, err := nf.solvePrimal(m.Costs)
	if err != nil {
		return Solution{}, err
	}
	if status != Optimal {
		return Solution{Status: status}, nil
	}
	duals, err := nf.solveDuals(m.Costs, len(m.Rows), z)
	if err != nil {
		return Solution{}, err
	}
	return Solution{Status: Optimal, X: x, Objective: z, RowDuals: duals, BestBound: z}, nil
}

// solveRelaxation is the primal-only path branch-and-bound nodes use; extra
// holds the node's private branching rows.
func solveRelaxation(m *Model, extra []Row) (float64, []float64, Status, error) {
	nf := normalize(m, extra)
	return nf.solvePrimal(m.Costs)
}
