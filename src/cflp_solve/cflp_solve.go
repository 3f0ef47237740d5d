package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/benders"
	"github.com/Erfan-Rafieikia/Stochastic-CFLP/src/cflp"
	"go.uber.org/zap"
)

func main() {
	var paths []string
	var numScenarios, maxIterations, workers int
	var variance, eps, gap float64
	var seed uint64
	var callback, relaxationCuts, warmStart, check, verbose bool
	var timeLimit time.Duration

	flag.Func("inst", "a list of instance file paths, separated by a whitespace", func(s string) error {
		paths = strings.Fields(s)
		return nil
	})
	flag.IntVar(&numScenarios, "scenarios", 10, "The number of demand scenarios to sample")
	flag.Float64Var(&variance, "variance", 0.2, "The scenario standard deviation as a fraction of the base demand")
	flag.Uint64Var(&seed, "seed", 1, "The scenario sampling seed")
	flag.BoolVar(&callback, "callback", false, "Inject cuts lazily into a single branch-and-bound run instead of iterating")
	flag.BoolVar(&relaxationCuts, "relcuts", false, "Also separate cuts at fractional node relaxations, in callback mode")
	flag.BoolVar(&warmStart, "warmstart", false, "Seed the cut pool by separating at a greedy opening first")
	flag.Float64Var(&eps, "eps", 0, "The absolute and relative cut violation tolerance")
	flag.IntVar(&maxIterations, "maxiter", 0, "The iteration cap in iterative mode")
	flag.DurationVar(&timeLimit, "timelimit", 0, "The time budget per instance, e.g. 30s")
	flag.IntVar(&workers, "workers", 0, "The number of parallel scenario subproblem solves")
	flag.Float64Var(&gap, "gap", 0, "The absolute optimality gap for master solves")
	flag.BoolVar(&check, "check", false, "Cross-check the objective against the extensive form solved with HiGHS")
	flag.BoolVar(&verbose, "v", false, "Log solver progress")

	flag.Parse()

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "Must specify at least a path")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer l.Sync()
		logger = l
	}

	mode := benders.ModeIterative
	if callback {
		mode = benders.ModeCallback
	}

	for _, p := range paths {
		inst, err := cflp.LoadInstance(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error for instance \"%v\": %v. Skipping...\n", p, err)
			continue
		}
		inst = cflp.SampleScenarios(inst, cflp.ScenarioOptions{
			Count:          numScenarios,
			VarianceFactor: variance,
			Seed:           seed,
		})

		fmt.Printf("Solving %v...\n", p)
		driver, err := benders.NewDriver(inst, benders.Options{
			Mode:           mode,
			EpsAbs:         eps,
			EpsRel:         eps,
			MaxIterations:  maxIterations,
			TimeLimit:      timeLimit,
			Workers:        workers,
			RelaxationCuts: relaxationCuts,
			WarmStart:      warmStart,
			GapAbs:         gap,
			Logger:         logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error for instance \"%v\": %v. Skipping...\n", p, err)
			continue
		}
		res, err := driver.Solve()
		if err != nil {
			fmt.Fprintf(os.Stderr, "An error occured while solving instance \"%v\": %v\n", p, err)
			continue
		}
		fmt.Printf("Instance %v:\n%v\n", p, res)

		if check {
			ref, err := checkExtensive(inst)
			if err != nil {
				fmt.Fprintf(os.Stderr, "An error occured while cross-checking instance \"%v\": %v\n", p, err)
			} else {
				fmt.Printf("Extensive form objective (HiGHS): %g, difference: %g\n", ref, math.Abs(ref-res.Objective))
			}
		}
		fmt.Println()
	}
}
