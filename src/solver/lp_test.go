package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func inf() float64 { return math.Inf(1) }

func TestSolveLPTransportation(t *testing.T) {
	// min x00 + 2*x01 + 2*x10 + x11 over a 2x2 shipment with demands 3,3
	// and capacities 5,5. Optimum ships on the diagonal for 6.
	m := NewModel(4)
	copy(m.Costs, []float64{1, 2, 2, 1})
	m.AddDenseRow(3, []float64{1, 1, 0, 0}, inf())
	m.AddDenseRow(3, []float64{0, 0, 1, 1}, inf())
	m.AddDenseRow(math.Inf(-1), []float64{1, 0, 1, 0}, 5)
	m.AddDenseRow(math.Inf(-1), []float64{0, 1, 0, 1}, 5)

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, 6.0, sol.Objective, 1e-8)
	require.InDelta(t, 3.0, sol.X[0], 1e-8)
	require.InDelta(t, 3.0, sol.X[3], 1e-8)

	// Demand rows are tight with unit shadow price, capacity rows slack.
	require.Len(t, sol.RowDuals, 4)
	require.InDelta(t, 1.0, sol.RowDuals[0], 1e-6)
	require.InDelta(t, 1.0, sol.RowDuals[1], 1e-6)
	require.InDelta(t, 0.0, sol.RowDuals[2], 1e-6)
	require.InDelta(t, 0.0, sol.RowDuals[3], 1e-6)
}

func TestSolveLPDualSigns(t *testing.T) {
	// min x0 subject to 1 <= x0 <= 3: the binding >=-side has a positive
	// dual. Maximizing instead (cost -1) binds the <=-side negatively.
	m := NewModel(1)
	m.Costs[0] = 1
	m.AddRow(1, []Nonzero{{Col: 0, Val: 1}}, 3)

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, 1.0, sol.Objective, 1e-8)
	require.InDelta(t, 1.0, sol.RowDuals[0], 1e-6)

	m.Costs[0] = -1
	sol, err = SolveLP(m)
	require.NoError(t, err)
	require.InDelta(t, -3.0, sol.Objective, 1e-8)
	require.InDelta(t, -1.0, sol.RowDuals[0], 1e-6)
}

func TestSolveLPEquality(t *testing.T) {
	m := NewModel(2)
	copy(m.Costs, []float64{1, 1})
	m.AddDenseRow(2, []float64{1, 1}, 2)
	m.Upper[0] = 0.5

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, 2.0, sol.Objective, 1e-8)
	require.InDelta(t, 2.0, sol.X[0]+sol.X[1], 1e-8)
	require.LessOrEqual(t, sol.X[0], 0.5+1e-8)
	require.InDelta(t, 1.0, sol.RowDuals[0], 1e-6)
}

func TestSolveLPInfeasible(t *testing.T) {
	m := NewModel(1)
	m.Costs[0] = 1
	m.Upper[0] = 1
	m.AddRow(3, []Nonzero{{Col: 0, Val: 1}}, inf())

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Infeasible, sol.Status)
	require.Nil(t, sol.X)
}

func TestSolveLPConstantRowInfeasible(t *testing.T) {
	m := NewModel(1)
	m.Costs[0] = 1
	m.AddRow(5, nil, inf())

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Infeasible, sol.Status)
}

func TestSolveLPUnbounded(t *testing.T) {
	t.Run("free column", func(t *testing.T) {
		m := NewModel(1)
		m.Costs[0] = -1

		sol, err := SolveLP(m)
		require.NoError(t, err)
		require.Equal(t, Unbounded, sol.Status)
	})

	t.Run("unbounded direction", func(t *testing.T) {
		m := NewModel(1)
		m.Costs[0] = -1
		m.AddRow(0, []Nonzero{{Col: 0, Val: 1}}, inf())

		sol, err := SolveLP(m)
		require.NoError(t, err)
		require.Equal(t, Unbounded, sol.Status)
	})
}

func TestSolveLPNoConstraints(t *testing.T) {
	m := NewModel(3)
	copy(m.Costs, []float64{1, 0, 2})

	sol, err := SolveLP(m)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.Equal(t, 0.0, sol.Objective)
	require.Equal(t, []float64{0, 0, 0}, sol.X)
}

func TestAddDenseRowSkipsZeros(t *testing.T) {
	m := NewModel(3)
	idx := m.AddDenseRow(1, []float64{0, 2, 0}, 4)
	require.Equal(t, 0, idx)
	require.Equal(t, []Nonzero{{Col: 1, Val: 2}}, m.Rows[0].Coefs)
}
