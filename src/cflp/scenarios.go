package cflp

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultScenarioCount  = 10
	defaultVarianceFactor = 0.2
)

type ScenarioOptions struct {
	Count          int
	VarianceFactor float64
	Seed           uint64
}

func (o *ScenarioOptions) normalize() {
	if o.Count <= 0 {
		o.Count = defaultScenarioCount
	}
	if o.VarianceFactor <= 0 {
		o.VarianceFactor = defaultVarianceFactor
	}
}

// SampleScenarios returns a copy of inst whose demand matrix holds
// opts.Count scenarios sampled around the base demands (scenario row 0):
// each customer demand is drawn from Normal(d, VarianceFactor*d) and
// truncated at zero. Sampling is deterministic for a fixed seed.
func SampleScenarios(inst *Instance, opts ScenarioOptions) *Instance {
	opts.normalize()

	src := rand.NewPCG(opts.Seed, opts.Seed)
	base := inst.Demands.RawRowView(0)

	demands := mat.NewDense(opts.Count, inst.NumCustomers, nil)
	for s := range opts.Count {
		for i, mu := range base {
			normal := distuv.Normal{Mu: mu, Sigma: opts.VarianceFactor * mu, Src: src}
			demands.Set(s, i, max(0, normal.Rand()))
		}
	}

	return &Instance{
		NumFacilities: inst.NumFacilities,
		NumCustomers:  inst.NumCustomers,
		FixedCosts:    inst.FixedCosts,
		Capacities:    inst.Capacities,
		Costs:         inst.Costs,
		Demands:       demands,
	}
}
