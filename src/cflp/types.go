package cflp

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Instance holds the problem data: facilities with opening costs and
// capacities, customers, per-scenario demands and the customer-to-facility
// transportation cost table. All fields are read-only after construction.
type Instance struct {
	NumFacilities int
	NumCustomers  int
	FixedCosts    *mat.VecDense
	Capacities    *mat.VecDense
	Costs         *mat.Dense // customers x facilities
	Demands       *mat.Dense // scenarios x customers
}

type Facility struct {
	ID        int
	FixedCost float64
	Capacity  float64
}

func (inst *Instance) NumScenarios() int {
	return inst.Demands.RawMatrix().Rows
}

func (inst *Instance) Facility(j int) Facility {
	return Facility{
		ID:        j,
		FixedCost: inst.FixedCosts.AtVec(j),
		Capacity:  inst.Capacities.AtVec(j),
	}
}

func (inst *Instance) Cost(i, j int) float64 {
	return inst.Costs.At(i, j)
}

func (inst *Instance) Demand(s, i int) float64 {
	return inst.Demands.At(s, i)
}

// Scenario returns a copy of the demand vector of scenario s.
func (inst *Instance) Scenario(s int) []float64 {
	d := make([]float64, inst.NumCustomers)
	copy(d, inst.Demands.RawRowView(s))
	return d
}

func (inst *Instance) TotalCapacity() float64 {
	return floats.Sum(inst.Capacities.RawVector().Data)
}

// MaxScenarioDemand is the largest total demand over all scenarios.
func (inst *Instance) MaxScenarioDemand() float64 {
	maxSum := 0.0
	for s := range inst.NumScenarios() {
		sum := floats.Sum(inst.Demands.RawRowView(s))
		if s == 0 || sum > maxSum {
			maxSum = sum
		}
	}
	return maxSum
}

func (inst *Instance) String() string {
	s := new(strings.Builder)
	s.WriteString(fmt.Sprintf("N. facilities: %d\n", inst.NumFacilities))
	s.WriteString(fmt.Sprintf("N. customers: %d\n", inst.NumCustomers))
	s.WriteString(fmt.Sprintf("N. scenarios: %d\n", inst.NumScenarios()))

	for j := range inst.NumFacilities {
		s.WriteString(fmt.Sprintf(
			"Facility %d: capacity %g, fixed cost %g\n",
			j, inst.Capacities.AtVec(j), inst.FixedCosts.AtVec(j),
		))
	}
	s.WriteString(fmt.Sprintf("Total capacity: %g, max scenario demand: %g",
		inst.TotalCapacity(), inst.MaxScenarioDemand()))
	return s.String()
}
