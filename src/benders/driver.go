// Package benders implements Benders decomposition for the two-stage
// stochastic capacitated facility location problem: a facility-opening
// master MIP with one cost surrogate per demand scenario, per-scenario
// transportation subproblems solved for their duals, and dual-derived
// optimality cuts tying the two together, applied either between full
// master re-solves or injected lazily into a single running search.
package benders

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"time"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Mode selects how cuts reach the master problem.
type Mode int

const (
	// ModeIterative alternates full master re-solves with scenario
	// separation until no violated cut remains.
	ModeIterative Mode = iota
	// ModeCallback runs one master search and separates at every new
	// integer incumbent, injecting violated cuts as global lazy rows.
	ModeCallback
)

func (m Mode) String() string {
	switch m {
	case ModeIterative:
		return "iterative"
	case ModeCallback:
		return "callback"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

const (
	defaultEpsAbs        = 1e-6
	defaultEpsRel        = 1e-6
	defaultMaxIterations = 200
)

// Options configures a decomposition run. The zero value solves in
// iterative mode with the library defaults and no logging.
type Options struct {
	Mode Mode
	// EpsAbs and EpsRel define violation: scenario s is violated by a
	// candidate when its true cost exceeds eta_s by more than
	// EpsAbs + EpsRel*|cost|.
	EpsAbs float64
	EpsRel float64
	// MaxIterations caps the iterative-mode loop.
	MaxIterations int
	// TimeLimit bounds the whole run; zero means no limit. On expiry the
	// best incumbent so far is returned with Proven false.
	TimeLimit time.Duration
	// Workers bounds the parallel scenario solves of one separation round.
	Workers int
	// RelaxationCuts also separates at fractional node relaxations in
	// callback mode.
	RelaxationCuts bool
	// WarmStart separates every scenario at a greedy opening before the
	// first master solve, seeding the cut pool.
	WarmStart bool
	// GapAbs and GapRel configure the master MIP solves.
	GapAbs float64
	GapRel float64
	Logger *zap.Logger
}

func (o *Options) normalize() {
	if o.EpsAbs <= 0 {
		o.EpsAbs = defaultEpsAbs
	}
	if o.EpsRel <= 0 {
		o.EpsRel = defaultEpsRel
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Driver owns one decomposition run: the master problem, its cut pool and
// the control flow around them. The master model is only ever touched from
// the driver's own goroutine; scenario subproblems within one separation
// round are the only parallel work.
type Driver struct {
	inst   *cflp.Instance
	master *Master
	opts   Options
	log    *zap.Logger

	state      State
	iterations int
	nodes      int
	cutsMIP    []int
	cutsRel    []int
}

// NewDriver prepares the master for the given instance. The aggregate
// capacity pre-check runs here, so ErrMasterInfeasible surfaces before a
// single subproblem could be attempted.
func NewDriver(inst *cflp.Instance, opts Options) (*Driver, error) {
	opts.normalize()
	master, err := NewMaster(inst, opts)
	if err != nil {
		return nil, err
	}
	return &Driver{
		inst:    inst,
		master:  master,
		opts:    opts,
		log:     opts.Logger,
		state:   StateInitializing,
		cutsMIP: make([]int, inst.NumScenarios()),
		cutsRel: make([]int, inst.NumScenarios()),
	}, nil
}

// State reports where the run stands; terminal states stay put after Solve
// returns.
func (d *Driver) State() State {
	return d.state
}

// Solve runs the decomposition to convergence or budget exhaustion. A spent
// budget is not an error: the result carries the best incumbent with Proven
// false. Fatal conditions surface as errors and leave the driver in
// StateFailed.
func (d *Driver) Solve() (*Result, error) {
	start := time.Now()
	d.state = StateIterating
	d.log.Info("starting decomposition",
		zap.Stringer("mode", d.opts.Mode),
		zap.Int("facilities", d.inst.NumFacilities),
		zap.Int("customers", d.inst.NumCustomers),
		zap.Int("scenarios", d.inst.NumScenarios()),
	)

	if d.opts.WarmStart {
		if err := d.warmStart(); err != nil {
			d.state = StateFailed
			return nil, err
		}
	}

	var (
		res *Result
		err error
	)
	if d.opts.Mode == ModeCallback {
		res, err = d.solveCallback(start)
	} else {
		res, err = d.solveIterative(start)
	}
	if err != nil {
		d.state = StateFailed
		return nil, err
	}

	d.state = res.State
	d.log.Info("decomposition finished",
		zap.Stringer("state", res.State),
		zap.Float64("objective", res.Objective),
		zap.Int("iterations", res.Iterations),
		zap.Int("cuts", sum(res.CutsMIP)+sum(res.CutsRel)),
		zap.Int("nodes", res.Nodes),
		zap.Duration("runtime", res.Runtime),
	)
	return res, nil
}

// warmStart separates every scenario at a greedy opening and pools the
// resulting cuts, so the first master solve already sees a lower envelope
// for its surrogates.
func (d *Driver) warmStart() error {
	y := greedyOpening(d.inst)
	results, err := d.solveScenarios(y)
	if err != nil {
		return err
	}
	added := 0
	for _, c := range d.separate(y, make([]float64, d.inst.NumScenarios()), results, d.cutsMIP) {
		if d.master.AddCut(c) {
			added++
		}
	}
	d.log.Info("warm start finished", zap.Int("new_cuts", added))
	return nil
}

// solveIterative is the cut-and-resolve loop: solve the master, separate
// every scenario at the incumbent, add the violated cuts, repeat until no
// scenario is violated.
func (d *Driver) solveIterative(start time.Time) (*Result, error) {
	var incumbent *MasterSolution
	var verified []*SubproblemResult

	for iter := 1; iter <= d.opts.MaxIterations; iter++ {
		d.iterations = iter
		limit, expired := d.remaining(start)
		if expired {
			return d.timedOut(incumbent, verified, start)
		}

		sol, err := d.master.solve(d.master.solverOptions(limit))
		if err != nil {
			return nil, err
		}
		d.nodes += sol.Nodes
		if sol.Y == nil {
			// The master ran out of budget before its first incumbent; fall
			// back to the best one from an earlier iteration.
			return d.timedOut(incumbent, verified, start)
		}
		if !sol.Proven {
			return d.timedOut(sol, nil, start)
		}

		results, err := d.solveScenarios(sol.Y)
		if err != nil {
			return nil, err
		}
		incumbent, verified = sol, results

		cuts := d.separate(sol.Y, sol.Eta, results, d.cutsMIP)
		added := 0
		for _, c := range cuts {
			if d.master.AddCut(c) {
				added++
			}
		}
		d.log.Info("iteration finished",
			zap.Int("iteration", iter),
			zap.Float64("master_objective", sol.Objective),
			zap.Int("violated", len(cuts)),
			zap.Int("new_cuts", added),
			zap.Int("nodes", sol.Nodes),
		)

		if len(cuts) == 0 {
			return d.result(sol, results, StateConverged, start), nil
		}
		if added == 0 {
			return nil, errors.New("benders: every violated cut duplicates a pooled one, separation cannot progress")
		}
	}
	return d.timedOut(incumbent, verified, start)
}

// solveCallback runs a single master search. Every new integer incumbent is
// separated over all scenarios and the violated cuts enter the live search
// as lazy rows; the engine re-cuts a re-encountered candidate because the
// rows stay in the model. With RelaxationCuts the same separation also runs
// at fractional node relaxations.
func (d *Driver) solveCallback(start time.Time) (*Result, error) {
	onIncumbent := func(y, eta []float64) ([]Cut, error) {
		d.iterations++
		results, err := d.solveScenarios(y)
		if err != nil {
			return nil, err
		}
		cuts := d.separate(y, eta, results, d.cutsMIP)
		d.log.Debug("incumbent separated",
			zap.Int("round", d.iterations),
			zap.Int("new_cuts", len(cuts)),
		)
		return cuts, nil
	}

	var onNode Separator
	if d.opts.RelaxationCuts {
		onNode = func(y, eta []float64) ([]Cut, error) {
			results, err := d.solveScenarios(y)
			if err != nil {
				return nil, err
			}
			return d.separate(y, eta, results, d.cutsRel), nil
		}
	}

	sol, err := d.master.SolveWithCallback(onIncumbent, onNode)
	if err != nil {
		return nil, err
	}
	d.nodes += sol.Nodes
	if sol.Y == nil {
		return d.result(nil, nil, StateTimedOut, start), nil
	}

	// The accepted incumbent produced no violated cut when it was last
	// separated; re-evaluate its scenarios so the reported objective is the
	// verified one, not the surrogate.
	results, err := d.solveScenarios(sol.Y)
	if err != nil {
		return nil, err
	}
	if !sol.Proven {
		return d.result(sol, results, StateTimedOut, start), nil
	}
	return d.result(sol, results, StateConverged, start), nil
}

// solveScenarios fans the per-scenario subproblems out over the worker
// limit and collects the results indexed by scenario. Each solve reads only
// the immutable instance and writes its own slot; the barrier at Wait makes
// the round's results complete before any cut is applied. The first error
// cancels the round.
func (d *Driver) solveScenarios(open []float64) ([]*SubproblemResult, error) {
	results := make([]*SubproblemResult, d.inst.NumScenarios())
	g := new(errgroup.Group)
	g.SetLimit(d.opts.Workers)
	for s := range results {
		g.Go(func() error {
			res, err := SolveSubproblem(d.inst, open, s)
			if err != nil {
				return err
			}
			results[s] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// separate builds cuts for every violated scenario of one candidate, in
// scenario order, and advances the matching counter.
func (d *Driver) separate(y, eta []float64, results []*SubproblemResult, counts []int) []Cut {
	var cuts []Cut
	for s, r := range results {
		violated := d.violated(r.Objective, eta[s])
		d.log.Debug("scenario evaluated",
			zap.Int("scenario", s),
			zap.Float64("cost", r.Objective),
			zap.Float64("eta", eta[s]),
			zap.Bool("violated", violated),
		)
		if violated {
			cuts = append(cuts, NewCut(d.inst, r))
			counts[s]++
		}
	}
	return cuts
}

func (d *Driver) violated(trueCost, eta float64) bool {
	return trueCost-eta > d.opts.EpsAbs+d.opts.EpsRel*math.Abs(trueCost)
}

// remaining reports the budget left for the next master solve, zero meaning
// unlimited, and whether the overall budget is already spent.
func (d *Driver) remaining(start time.Time) (time.Duration, bool) {
	if d.opts.TimeLimit <= 0 {
		return 0, false
	}
	left := d.opts.TimeLimit - time.Since(start)
	if left <= 0 {
		return 0, true
	}
	return left, false
}

// timedOut wraps the best incumbent into a budget-exhausted result. When
// the incumbent's scenarios were not evaluated this round they are solved
// once more, so the reported objective is always the verified one.
func (d *Driver) timedOut(sol *MasterSolution, results []*SubproblemResult, start time.Time) (*Result, error) {
	d.log.Warn("budget exhausted before convergence",
		zap.Int("iterations", d.iterations),
		zap.Duration("elapsed", time.Since(start)),
	)
	if sol == nil || sol.Y == nil {
		return d.result(nil, nil, StateTimedOut, start), nil
	}
	if results == nil {
		var err error
		results, err = d.solveScenarios(sol.Y)
		if err != nil {
			return nil, err
		}
	}
	return d.result(sol, results, StateTimedOut, start), nil
}

func (d *Driver) result(sol *MasterSolution, results []*SubproblemResult, state State, start time.Time) *Result {
	res := &Result{
		Iterations: d.iterations,
		CutsMIP:    slices.Clone(d.cutsMIP),
		CutsRel:    slices.Clone(d.cutsRel),
		Nodes:      d.nodes,
		Runtime:    time.Since(start),
		State:      state,
		Proven:     state == StateConverged,
	}
	if sol == nil {
		return res
	}

	res.Y = sol.Y
	res.Eta = sol.Eta
	for j, v := range sol.Y {
		if v > 0.5 {
			res.Open = append(res.Open, j)
		}
	}
	res.Objective = d.objective(sol.Y, results)
	return res
}

// objective is the verified total cost: fixed opening costs plus the mean
// of the true scenario transportation costs.
func (d *Driver) objective(y []float64, results []*SubproblemResult) float64 {
	obj := floats.Dot(d.inst.FixedCosts.RawVector().Data, y)
	mean := 0.0
	for _, r := range results {
		mean += r.Objective
	}
	return obj + mean/float64(len(results))
}
