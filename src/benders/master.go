package benders

import (
	"math"
	"time"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/solver"
	"github.com/pkg/errors"
)

// ErrMasterInfeasible reports an instance whose total facility capacity
// cannot cover the worst-case scenario demand. The constructor pre-check
// raises it before any model is built or any subproblem solved.
var ErrMasterInfeasible = errors.New("benders: master infeasible")

// Master maintains the facility-opening MIP
//
//	min  sum_j f_j*y_j + (1/|S|)*sum_s eta_s
//	s.t. sum_j u_j*y_j >= max_s sum_i d_is
//	     eta_s >= 0, y_j binary
//
// plus the optimality cuts accumulated so far. The model only ever grows:
// cuts are appended, never removed.
type Master struct {
	inst  *cflp.Instance
	model *solver.Model
	pool  *pool
	opts  Options
}

// MasterSolution is one incumbent of the master problem: rounded open
// decisions, the per-scenario cost estimates, and the surrogate objective.
// Proven is false when the solve stopped on a budget instead of proving
// optimality within the configured gap.
type MasterSolution struct {
	Y         []float64
	Eta       []float64
	Objective float64
	Nodes     int
	Proven    bool
}

// Separator is handed a candidate master solution and returns the
// optimality cuts it violates. In callback mode it runs while the
// branch-and-bound search is live and its cuts are injected as global lazy
// rows. An error aborts the search.
type Separator func(y, eta []float64) ([]Cut, error)

// NewMaster checks aggregate feasibility and builds the initial model with
// no optimality cuts.
func NewMaster(inst *cflp.Instance, opts Options) (*Master, error) {
	opts.normalize()
	maxDemand := inst.MaxScenarioDemand()
	if inst.TotalCapacity() < maxDemand {
		return nil, errors.Wrapf(ErrMasterInfeasible,
			"total capacity %g below worst-case scenario demand %g",
			inst.TotalCapacity(), maxDemand)
	}

	numFacilities, numScenarios := inst.NumFacilities, inst.NumScenarios()
	model := solver.NewModel(numFacilities + numScenarios)
	for j := range numFacilities {
		model.Costs[j] = inst.FixedCosts.AtVec(j)
		model.Upper[j] = 1
		model.Integer[j] = true
	}
	for s := range numScenarios {
		model.Costs[numFacilities+s] = 1 / float64(numScenarios)
	}

	capacity := make([]solver.Nonzero, numFacilities)
	for j := range numFacilities {
		capacity[j] = solver.Nonzero{Col: j, Val: inst.Capacities.AtVec(j)}
	}
	model.AddRow(maxDemand, capacity, math.Inf(1))

	return &Master{inst: inst, model: model, pool: newPool(numScenarios), opts: opts}, nil
}

func (ma *Master) etaCol(s int) int {
	return ma.inst.NumFacilities + s
}

// AddCut pools the cut and appends it to the live model, reporting whether
// it was new. Near-duplicates of a pooled cut for the same scenario are
// dropped.
func (ma *Master) AddCut(c Cut) bool {
	if !ma.pool.add(c) {
		return false
	}
	ma.model.Rows = append(ma.model.Rows, c.row(ma.etaCol(c.Scenario)))
	return true
}

// Cuts reports how many cuts the pool holds.
func (ma *Master) Cuts() int {
	return ma.pool.size()
}

// Solve runs the MIP engine on the current model to optimality or the
// configured gap. With no cuts added in between, repeated calls return
// identical solutions.
func (ma *Master) Solve() (*MasterSolution, error) {
	return ma.solve(ma.solverOptions(ma.opts.TimeLimit))
}

// SolveWithCallback runs a single search over the master. onIncumbent fires
// at every new integer-feasible candidate; pool-new cuts it returns become
// lazy rows of the running search, so the candidate is rejected now and cut
// off again if ever re-encountered. onNode, when non-nil, separates the
// same way at fractional node relaxations.
func (ma *Master) SolveWithCallback(onIncumbent, onNode Separator) (*MasterSolution, error) {
	opts := ma.solverOptions(ma.opts.TimeLimit)
	opts.OnIncumbent = ma.lazyRows(onIncumbent)
	if onNode != nil {
		opts.OnNode = ma.lazyRows(onNode)
	}
	return ma.solve(opts)
}

func (ma *Master) solverOptions(limit time.Duration) solver.Options {
	return solver.Options{
		GapAbs:    ma.opts.GapAbs,
		GapRel:    ma.opts.GapRel,
		TimeLimit: limit,
	}
}

// lazyRows adapts a Separator to the engine callback: returned cuts are
// pooled here, while the engine itself appends the rows to the shared
// model.
func (ma *Master) lazyRows(sep Separator) func(x []float64) ([]solver.Row, error) {
	return func(x []float64) ([]solver.Row, error) {
		numFacilities := ma.inst.NumFacilities
		cuts, err := sep(x[:numFacilities], x[numFacilities:])
		if err != nil {
			return nil, err
		}
		rows := make([]solver.Row, 0, len(cuts))
		for _, c := range cuts {
			if ma.pool.add(c) {
				rows = append(rows, c.row(ma.etaCol(c.Scenario)))
			}
		}
		return rows, nil
	}
}

func (ma *Master) solve(opts solver.Options) (*MasterSolution, error) {
	sol, err := solver.SolveMIP(ma.model, opts)
	if err != nil {
		return nil, errors.Wrap(err, "master solve")
	}
	switch sol.Status {
	case solver.Optimal, solver.TimeLimit, solver.NodeLimit:
	case solver.Infeasible:
		// The pre-check held and cuts only bound eta from below, so an
		// infeasible master means the model state went numerically wrong.
		return nil, errors.Wrap(ErrMasterInfeasible, "master model became infeasible")
	default:
		return nil, errors.Errorf("benders: master reported %v", sol.Status)
	}
	if sol.X == nil {
		// Budget ran out before the first incumbent.
		return &MasterSolution{Nodes: sol.Nodes}, nil
	}

	numFacilities := ma.inst.NumFacilities
	return &MasterSolution{
		Y:         sol.X[:numFacilities],
		Eta:       sol.X[numFacilities:],
		Objective: sol.Objective,
		Nodes:     sol.Nodes,
		Proven:    sol.Proven(),
	}, nil
}
