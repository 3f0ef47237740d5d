package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
)

// ranges bounds the sampled instance data. Capacities are drawn from their
// range only to fix relative sizes; they are rescaled afterwards so total
// capacity is ratio times total base demand.
type ranges struct {
	capMin, capMax   float64
	fixMin, fixMax   float64
	costMin, costMax float64
	demMin, demMax   float64
	ratio            float64
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// GenerateCFLPInstance builds an instance in the cap-format layout read by
// cflp.LoadInstance: facility and customer counts, one capacity and fixed
// cost pair per facility, the base customer demands, and the facility-major
// transportation costs. All values are rounded to whole numbers, so the
// capacity ratio holds only up to rounding.
func GenerateCFLPInstance(rng *rand.Rand, numFacilities, numCustomers int, r ranges) string {
	demands := make([]float64, numCustomers)
	totalDemand := 0.0
	for i := range numCustomers {
		demands[i] = math.Round(uniform(rng, r.demMin, r.demMax))
		totalDemand += demands[i]
	}

	capacities := make([]float64, numFacilities)
	totalCapacity := 0.0
	for j := range numFacilities {
		capacities[j] = uniform(rng, r.capMin, r.capMax)
		totalCapacity += capacities[j]
	}
	scale := r.ratio * totalDemand / totalCapacity
	for j := range numFacilities {
		capacities[j] = math.Round(scale * capacities[j])
	}

	s := new(strings.Builder)
	fmt.Fprintf(s, "%d %d\n", numFacilities, numCustomers)
	for j := range numFacilities {
		fmt.Fprintf(s, "%g %g\n", capacities[j], math.Round(uniform(rng, r.fixMin, r.fixMax)))
	}
	for i := range numCustomers {
		fmt.Fprintf(s, "%g ", demands[i])
	}
	s.WriteRune('\n')

	for range numFacilities {
		for range numCustomers {
			fmt.Fprintf(s, "%g ", math.Round(uniform(rng, r.costMin, r.costMax)))
		}
		s.WriteRune('\n')
	}
	return s.String()
}

func main() {
	var outPath string
	var numFacilities, numCustomers int
	var seed uint64
	var r ranges

	flag.StringVar(&outPath, "out", "out.txt", "The output file")
	flag.IntVar(&numFacilities, "facilities", 0, "The number of candidate facilities")
	flag.IntVar(&numCustomers, "customers", 0, "The number of customers")
	flag.Uint64Var(&seed, "seed", 1, "The random seed")
	flag.Float64Var(&r.capMin, "capmin", 80, "The minimum facility capacity before rescaling")
	flag.Float64Var(&r.capMax, "capmax", 120, "The maximum facility capacity before rescaling")
	flag.Float64Var(&r.fixMin, "fixmin", 100, "The minimum fixed opening cost")
	flag.Float64Var(&r.fixMax, "fixmax", 200, "The maximum fixed opening cost")
	flag.Float64Var(&r.costMin, "costmin", 1, "The minimum unit transportation cost")
	flag.Float64Var(&r.costMax, "costmax", 20, "The maximum unit transportation cost")
	flag.Float64Var(&r.demMin, "demmin", 10, "The minimum base customer demand")
	flag.Float64Var(&r.demMax, "demmax", 30, "The maximum base customer demand")
	flag.Float64Var(&r.ratio, "ratio", 1.5, "The total capacity to total demand ratio")

	flag.Parse()

	err := false
	if numFacilities == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of facilities")
		err = true
	}
	if numCustomers == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of customers")
		err = true
	}
	for _, b := range [...]struct {
		name   string
		lo, hi float64
	}{
		{"capacity", r.capMin, r.capMax},
		{"fixed cost", r.fixMin, r.fixMax},
		{"transportation cost", r.costMin, r.costMax},
		{"demand", r.demMin, r.demMax},
	} {
		if b.lo < 0 || b.hi < b.lo {
			fmt.Fprintf(os.Stderr, "The %s range must satisfy 0 <= min <= max\n", b.name)
			err = true
		}
	}
	if r.ratio <= 0 {
		fmt.Fprintln(os.Stderr, "The capacity ratio must be positive")
		err = true
	}

	if err {
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	out := GenerateCFLPInstance(rng, numFacilities, numCustomers, r)
	if err := os.WriteFile(outPath, []byte(out), 0666); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
