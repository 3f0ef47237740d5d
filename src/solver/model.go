// Package solver implements the LP/MIP engine the decomposition runs on:
// a row-oriented model container, a simplex-based LP solve that reports row
// duals, and a branch-and-bound MIP solve with incumbent and node callbacks
// for global lazy constraints. Every model is its own solver session; no
// state is shared between models.
package solver

import (
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
)

// ErrNumeric reports a numerical failure of the underlying simplex that
// persisted through the single relaxed-tolerance retry.
var ErrNumeric = errors.New("solver: numerical failure")

type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	TimeLimit
	NodeLimit
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case TimeLimit:
		return "time limit"
	case NodeLimit:
		return "node limit"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Nonzero struct {
	Col int
	Val float64
}

// Row is the ranged constraint Lo <= coefs*x <= Hi, one-sided via +-Inf.
type Row struct {
	Lo    float64
	Coefs []Nonzero
	Hi    float64
}

func (r Row) value(x []float64) float64 {
	v := 0.0
	for _, nz := range r.Coefs {
		v += nz.Val * x[nz.Col]
	}
	return v
}

func (r Row) violatedBy(x []float64, tol float64) bool {
	v := r.value(x)
	return v < r.Lo-tol || v > r.Hi+tol
}

// Model is a minimization over variables x >= 0: min Costs*x subject to the
// Rows and the column upper bounds. Integer marks columns the MIP search
// drives to integrality. Rows are append-only; appending while a search
// over the model is running is how lazy constraints are injected.
type Model struct {
	Costs   []float64
	Upper   []float64
	Integer []bool
	Rows    []Row
}

func NewModel(cols int) *Model {
	m := &Model{
		Costs:   make([]float64, cols),
		Upper:   make([]float64, cols),
		Integer: make([]bool, cols),
	}
	for j := range m.Upper {
		m.Upper[j] = math.Inf(1)
	}
	return m
}

func (m *Model) cols() int {
	return len(m.Costs)
}

// AddRow appends the ranged row lo <= coefs*x <= hi and returns its index.
func (m *Model) AddRow(lo float64, coefs []Nonzero, hi float64) int {
	for _, nz := range coefs {
		if nz.Col < 0 || nz.Col >= m.cols() {
			panic(fmt.Sprintf("solver: row references column %d of %d", nz.Col, m.cols()))
		}
	}
	m.Rows = append(m.Rows, Row{Lo: lo, Coefs: slices.Clone(coefs), Hi: hi})
	return len(m.Rows) - 1
}

// AddDenseRow appends lo <= row*x <= hi, keeping only the nonzero entries.
func (m *Model) AddDenseRow(lo float64, row []float64, hi float64) int {
	if len(row) != m.cols() {
		panic(fmt.Sprintf("solver: dense row has %d entries for %d columns", len(row), m.cols()))
	}
	coefs := make([]Nonzero, 0, len(row))
	for j, v := range row {
		if v != 0 {
			coefs = append(coefs, Nonzero{Col: j, Val: v})
		}
	}
	m.Rows = append(m.Rows, Row{Lo: lo, Coefs: coefs, Hi: hi})
	return len(m.Rows) - 1
}

// Solution carries the outcome of an LP or MIP solve. RowDuals is populated
// by SolveLP only, indexed by model row, with the minimization convention:
// duals of >=-rows are nonnegative, duals of <=-rows nonpositive, ranged
// rows get the signed combination. For a MIP, Nodes counts explored
// branch-and-bound nodes and BestBound is a valid lower bound on the
// optimum at the moment the search stopped.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	RowDuals  []float64
	Nodes     int
	BestBound float64
}

func (s Solution) Proven() bool {
	return s.Status == Optimal
}
