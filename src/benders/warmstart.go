package benders

import (
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

// greedyOpening builds a feasible opening by taking facilities in order of
// fixed cost per unit of capacity until the worst-case scenario demand is
// covered. Zero-capacity facilities can never contribute and stay closed.
func greedyOpening(inst *cflp.Instance) []float64 {
	pq := priorityqueue.New[int, float64](priorityqueue.MinHeap)
	for j := range inst.NumFacilities {
		f := inst.Facility(j)
		if f.Capacity > 0 {
			pq.Put(j, f.FixedCost/f.Capacity)
		}
	}

	y := make([]float64, inst.NumFacilities)
	covered := 0.0
	for covered < inst.MaxScenarioDemand() && pq.Len() > 0 {
		item := pq.Get()
		y[item.Value] = 1
		covered += inst.Capacities.AtVec(item.Value)
	}
	return y
}
