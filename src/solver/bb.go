package solver

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

const (
	intTol          = 1e-6
	defaultGapAbs   = 1e-9
	defaultMaxNodes = 1 << 20
)

// Options configures a branch-and-bound run. OnIncumbent fires at every new
// integer-feasible candidate with a rounded copy of x; rows it returns are
// appended to the model as global lazy constraints, and if any of them cuts
// the candidate off, the candidate is rejected and the node re-solved, so a
// re-encountered candidate is cut again. OnNode fires the same way at
// fractional relaxations. An error returned by either callback aborts the
// search and surfaces from SolveMIP.
type Options struct {
	GapAbs      float64
	GapRel      float64
	TimeLimit   time.Duration
	MaxNodes    int
	OnIncumbent func(x []float64) ([]Row, error)
	OnNode      func(x []float64) ([]Row, error)
}

func (o *Options) normalize() {
	if o.GapAbs <= 0 {
		o.GapAbs = defaultGapAbs
	}
	if o.GapRel < 0 {
		o.GapRel = 0
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
}

func gap(opts Options, incumbent float64) float64 {
	if math.IsInf(incumbent, 1) {
		return 0
	}
	return opts.GapAbs + opts.GapRel*math.Abs(incumbent)
}

// node carries only its private branching rows; everything else, including
// lazy rows added mid-search, lives on the shared model.
type node struct {
	rows []Row
}

func (nd *node) child(r Row) *node {
	rows := make([]Row, len(nd.rows)+1)
	copy(rows, nd.rows)
	rows[len(nd.rows)] = r
	return &node{rows: rows}
}

func (nd *node) branch(j int, v float64) (down, up *node) {
	down = nd.child(Row{Lo: math.Inf(-1), Coefs: []Nonzero{{Col: j, Val: 1}}, Hi: math.Floor(v)})
	up = nd.child(Row{Lo: math.Ceil(v), Coefs: []Nonzero{{Col: j, Val: 1}}, Hi: math.Inf(1)})
	return down, up
}

func mostFractional(x []float64, integer []bool) int {
	best, bestDist := -1, intTol
	for j, v := range x {
		if !integer[j] {
			continue
		}
		dist := math.Abs(v - math.Round(v))
		if dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func roundIntegers(x []float64, integer []bool) {
	for j := range x {
		if integer[j] {
			x[j] = math.Round(x[j])
		}
	}
}

// appendRows adds callback rows to the shared model and reports whether any
// of them is violated at x, which forces a re-solve of the current node.
func appendRows(m *Model, rows []Row, x []float64) bool {
	violated := false
	for _, r := range rows {
		m.Rows = append(m.Rows, r)
		if r.violatedBy(x, feasTol) {
			violated = true
		}
	}
	return violated
}

// SolveMIP runs best-bound branch-and-bound over the model's LP
// relaxations, branching on the most fractional integer column. Child
// bounds are valid even as lazy rows accumulate, because added rows only
// tighten relaxations. The search is deterministic for a fixed model and
// options.
func SolveMIP(m *Model, opts Options) (Solution, error) {
	opts.normalize()
	start := time.Now()

	best := math.Inf(1)
	var bestX []float64
	bound := math.Inf(-1)
	nodes := 0
	status := Optimal

	frontier := priorityqueue.New[*node, float64](priorityqueue.MinHeap)
	frontier.Put(&node{}, math.Inf(-1))

search:
	for frontier.Len() > 0 {
		if opts.TimeLimit > 0 && time.Since(start) >= opts.TimeLimit {
			status = TimeLimit
			break
		}
		if nodes >= opts.MaxNodes {
			status = NodeLimit
			break
		}

		item := frontier.Get()
		nd := item.Value
		bound = item.Priority
		if bound >= best-gap(opts, best) {
			// Best-bound order: no remaining node can improve the incumbent
			// beyond the configured gap.
			break
		}
		nodes++

		for {
			z, x, st, err := solveRelaxation(m, nd.rows)
			if err != nil {
				return Solution{}, err
			}
			if st == Infeasible {
				continue search
			}
			if st == Unbounded {
				return Solution{Status: Unbounded, Nodes: nodes}, nil
			}
			if z >= best-gap(opts, best) {
				continue search
			}

			if j := mostFractional(x, m.Integer); j >= 0 {
				if opts.OnNode != nil {
					rows, err := opts.OnNode(slices.Clone(x))
					if err != nil {
						return Solution{}, err
					}
					if appendRows(m, rows, x) {
						if opts.TimeLimit > 0 && time.Since(start) >= opts.TimeLimit {
							status = TimeLimit
							break search
						}
						continue
					}
				}
				down, up := nd.branch(j, x[j])
				frontier.Put(down, z)
				frontier.Put(up, z)
				continue search
			}

			roundIntegers(x, m.Integer)
			z = floats.Dot(m.Costs, x)
			if opts.OnIncumbent != nil {
				rows, err := opts.OnIncumbent(slices.Clone(x))
				if err != nil {
					return Solution{}, err
				}
				if appendRows(m, rows, x) {
					if opts.TimeLimit > 0 && time.Since(start) >= opts.TimeLimit {
						status = TimeLimit
						break search
					}
					continue
				}
			}
			best = z
			bestX = x
			continue search
		}
	}

	if status == Optimal && frontier.Len() == 0 {
		bound = best
	}
	if bestX == nil {
		if status == Optimal {
			status = Infeasible
		}
		return Solution{Status: status, Nodes: nodes, BestBound: bound}, nil
	}
	return Solution{
		Status:    status,
		X:         bestX,
		Objective: best,
		Nodes:     nodes,
		BestBound: bound,
	}, nil
}
