package solver

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func knapsackModel() *Model {
	// max 8y0 + 11y1 + 6y2 + 4y3 s.t. 5y0 + 7y1 + 4y2 + 3y3 <= 14, y binary,
	// stated as a minimization. Optimum picks y1, y2, y3 for value 21.
	m := NewModel(4)
	copy(m.Costs, []float64{-8, -11, -6, -4})
	for j := range 4 {
		m.Upper[j] = 1
		m.Integer[j] = true
	}
	m.AddDenseRow(math.Inf(-1), []float64{5, 7, 4, 3}, 14)
	return m
}

func TestSolveMIPKnapsack(t *testing.T) {
	sol, err := SolveMIP(knapsackModel(), Options{})
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.True(t, sol.Proven())
	require.InDelta(t, -21.0, sol.Objective, 1e-6)
	require.Equal(t, []float64{0, 1, 1, 1}, sol.X)
	require.Greater(t, sol.Nodes, 0)
	require.InDelta(t, -21.0, sol.BestBound, 1e-6)
}

func TestSolveMIPRepeatedSolveIdempotent(t *testing.T) {
	m := knapsackModel()
	first, err := SolveMIP(m, Options{})
	require.NoError(t, err)
	second, err := SolveMIP(m, Options{})
	require.NoError(t, err)

	require.Equal(t, first.Objective, second.Objective)
	require.Equal(t, first.X, second.X)
	require.Equal(t, first.Nodes, second.Nodes)
	require.Len(t, m.Rows, 1)
}

func TestSolveMIPForcesIntegrality(t *testing.T) {
	m := NewModel(2)
	copy(m.Costs, []float64{-1, -1})
	for j := range 2 {
		m.Upper[j] = 1
		m.Integer[j] = true
	}
	m.AddDenseRow(math.Inf(-1), []float64{1, 1}, 1.5)

	sol, err := SolveMIP(m, Options{})
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, -1.0, sol.Objective, 1e-6)
	for j := range 2 {
		require.Contains(t, []float64{0, 1}, sol.X[j])
	}
}

func TestSolveMIPInfeasible(t *testing.T) {
	m := NewModel(1)
	m.Costs[0] = 1
	m.Upper[0] = 1
	m.Integer[0] = true
	m.AddRow(1, []Nonzero{{Col: 0, Val: 1}}, inf())
	m.AddRow(math.Inf(-1), []Nonzero{{Col: 0, Val: 1}}, 0)

	sol, err := SolveMIP(m, Options{})
	require.NoError(t, err)
	require.Equal(t, Infeasible, sol.Status)
	require.Nil(t, sol.X)
}

func TestSolveMIPLazyRowsCutIncumbents(t *testing.T) {
	m := NewModel(2)
	copy(m.Costs, []float64{-1, -1})
	for j := range 2 {
		m.Upper[j] = 1
		m.Integer[j] = true
	}
	m.AddDenseRow(math.Inf(-1), []float64{1, 1}, 2)

	var candidates [][]float64
	opts := Options{
		OnIncumbent: func(x []float64) ([]Row, error) {
			candidates = append(candidates, x)
			if x[0]+x[1] > 1.5 {
				return []Row{{Lo: math.Inf(-1), Coefs: []Nonzero{{Col: 0, Val: 1}, {Col: 1, Val: 1}}, Hi: 1}}, nil
			}
			return nil, nil
		},
	}

	sol, err := SolveMIP(m, opts)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, -1.0, sol.Objective, 1e-6)
	require.InDelta(t, 1.0, sol.X[0]+sol.X[1], 1e-6)

	// The relaxation optimum (1,1) must have been offered, cut off by the
	// returned lazy row, and never accepted.
	require.GreaterOrEqual(t, len(candidates), 2)
	require.Equal(t, []float64{1, 1}, candidates[0])
	require.Len(t, m.Rows, 2)
}

func TestSolveMIPNodeCuts(t *testing.T) {
	m := NewModel(2)
	copy(m.Costs, []float64{-1, -1})
	for j := range 2 {
		m.Upper[j] = 1
		m.Integer[j] = true
	}
	m.AddDenseRow(math.Inf(-1), []float64{2, 2}, 3)

	nodeCalls := 0
	opts := Options{
		OnNode: func(x []float64) ([]Row, error) {
			nodeCalls++
			// Tighten the fractional relaxation to the integer hull.
			if x[0]+x[1] > 1+intTol {
				return []Row{{Lo: math.Inf(-1), Coefs: []Nonzero{{Col: 0, Val: 1}, {Col: 1, Val: 1}}, Hi: 1}}, nil
			}
			return nil, nil
		},
	}

	sol, err := SolveMIP(m, opts)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.InDelta(t, -1.0, sol.Objective, 1e-6)
	require.Greater(t, nodeCalls, 0)
}

func TestSolveMIPCallbackError(t *testing.T) {
	boom := errors.New("separation failed")
	opts := Options{
		OnIncumbent: func(x []float64) ([]Row, error) {
			return nil, boom
		},
	}

	sol, err := SolveMIP(knapsackModel(), opts)
	require.ErrorIs(t, err, boom)
	require.Nil(t, sol.X)
}

func TestSolveMIPNodeLimit(t *testing.T) {
	sol, err := SolveMIP(knapsackModel(), Options{MaxNodes: 1})
	require.NoError(t, err)
	require.Equal(t, NodeLimit, sol.Status)
	require.False(t, sol.Proven())
	require.Equal(t, 1, sol.Nodes)
}

func TestSolveMIPTimeLimit(t *testing.T) {
	sol, err := SolveMIP(knapsackModel(), Options{TimeLimit: time.Nanosecond})
	require.NoError(t, err)
	require.Equal(t, TimeLimit, sol.Status)
	require.False(t, sol.Proven())
}

func TestSolveMIPWideGapStopsEarly(t *testing.T) {
	sol, err := SolveMIP(knapsackModel(), Options{GapAbs: 100})
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	require.NotNil(t, sol.X)
	for j, v := range sol.X {
		require.Contains(t, []float64{0, 1}, v, "column %d", j)
	}
}

func TestMostFractional(t *testing.T) {
	integer := []bool{true, false, true, true}
	require.Equal(t, 2, mostFractional([]float64{1, 0.5, 0.4, 0.9}, integer))
	require.Equal(t, -1, mostFractional([]float64{1, 0.5, 0, 1}, integer))
	require.Equal(t, -1, mostFractional([]float64{1 - 1e-9, 0.5, 0, 1}, integer))
}
