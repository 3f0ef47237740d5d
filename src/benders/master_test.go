package benders

import (
	"testing"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/stretchr/testify/require"
)

func TestNewMasterPreCheck(t *testing.T) {
	inst, err := cflp.NewInstance(
		[]float64{10, 10},
		[]float64{5, 5},
		[][]float64{{1, 2}, {2, 1}},
		[][]float64{{6, 6}},
	)
	require.NoError(t, err)

	ma, err := NewMaster(inst, Options{})
	require.Nil(t, ma)
	require.ErrorIs(t, err, ErrMasterInfeasible)
}

func TestMasterInitialSolve(t *testing.T) {
	ma, err := NewMaster(literalInstance(t), Options{})
	require.NoError(t, err)

	// Without cuts the surrogates sit at zero and the aggregate capacity
	// row alone forces both facilities open.
	sol, err := ma.Solve()
	require.NoError(t, err)
	require.True(t, sol.Proven)
	require.Equal(t, []float64{1, 1}, sol.Y)
	require.InDelta(t, 0.0, sol.Eta[0], 1e-9)
	require.InDelta(t, 20.0, sol.Objective, 1e-6)
}

func TestMasterCutsTightenMonotonically(t *testing.T) {
	ma, err := NewMaster(literalInstance(t), Options{})
	require.NoError(t, err)

	last := 0.0
	for _, cut := range []Cut{
		{Scenario: 0, Coeffs: []float64{0, 0}, Const: 4},
		{Scenario: 0, Coeffs: []float64{0, 0}, Const: 6},
		{Scenario: 0, Coeffs: []float64{1, 0}, Const: 6},
	} {
		require.True(t, ma.AddCut(cut))
		sol, err := ma.Solve()
		require.NoError(t, err)
		require.GreaterOrEqual(t, sol.Objective+1e-9, last,
			"adding a cut must never improve the master objective")
		last = sol.Objective
	}

	sol, err := ma.Solve()
	require.NoError(t, err)
	require.InDelta(t, 26.0, sol.Objective, 1e-6)
	require.InDelta(t, 6.0, sol.Eta[0], 1e-6)
}

func TestMasterRepeatedSolveIdempotent(t *testing.T) {
	ma, err := NewMaster(literalInstance(t), Options{})
	require.NoError(t, err)
	require.True(t, ma.AddCut(Cut{Scenario: 0, Coeffs: []float64{0, 0}, Const: 6}))

	first, err := ma.Solve()
	require.NoError(t, err)
	second, err := ma.Solve()
	require.NoError(t, err)

	require.Equal(t, first.Y, second.Y)
	require.Equal(t, first.Eta, second.Eta)
	require.Equal(t, first.Objective, second.Objective)
	require.Equal(t, first.Nodes, second.Nodes)
}

func TestMasterAddCutDedups(t *testing.T) {
	ma, err := NewMaster(literalInstance(t), Options{})
	require.NoError(t, err)
	rows := len(ma.model.Rows)

	cut := Cut{Scenario: 0, Coeffs: []float64{1, 2}, Const: 5}
	require.True(t, ma.AddCut(cut))
	require.False(t, ma.AddCut(cut))
	require.Len(t, ma.model.Rows, rows+1)
	require.Equal(t, 1, ma.Cuts())
}

func TestMasterSolveWithCallback(t *testing.T) {
	ma, err := NewMaster(literalInstance(t), Options{})
	require.NoError(t, err)

	calls := 0
	sol, err := ma.SolveWithCallback(func(y, eta []float64) ([]Cut, error) {
		calls++
		require.Equal(t, []float64{1, 1}, y)
		if eta[0] < 6-1e-6 {
			return []Cut{{Scenario: 0, Coeffs: []float64{0, 0}, Const: 6}}, nil
		}
		return nil, nil
	}, nil)
	require.NoError(t, err)

	// The first candidate carries eta 0, gets cut off by the injected lazy
	// row, and the re-solved node must come back with eta lifted to 6.
	require.GreaterOrEqual(t, calls, 2)
	require.True(t, sol.Proven)
	require.Equal(t, []float64{1, 1}, sol.Y)
	require.InDelta(t, 6.0, sol.Eta[0], 1e-6)
	require.InDelta(t, 26.0, sol.Objective, 1e-6)
	require.Equal(t, 1, ma.Cuts())
}
