package cflp

import (
	"bufio"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidInstance reports malformed input data: negative costs,
// capacities or demands, or cardinalities that disagree with the declared
// counts. No partial instance is ever returned alongside it.
var ErrInvalidInstance = errors.New("cflp: invalid instance")

func errorCoalesce(args ...error) error {
	for _, e := range args {
		if e != nil {
			return e
		}
	}
	return nil
}

func nextInt(scanner *bufio.Scanner) (int, error) {
	if !scanner.Scan() {
		return 0, errors.Wrap(ErrInvalidInstance, "unexpected end of input")
	}
	v, err := strconv.Atoi(scanner.Text())
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInstance, "token %q is not an integer", scanner.Text())
	}
	return v, nil
}

func nextFloat(scanner *bufio.Scanner) (float64, error) {
	if !scanner.Scan() {
		return 0, errors.Wrap(ErrInvalidInstance, "unexpected end of input")
	}
	v, err := strconv.ParseFloat(scanner.Text(), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInstance, "token %q is not a number", scanner.Text())
	}
	return v, nil
}

func (inst *Instance) parseHeader(scanner *bufio.Scanner) error {
	numFacilities, err := nextInt(scanner)
	if err != nil {
		return err
	}
	numCustomers, err := nextInt(scanner)
	if err != nil {
		return err
	}

	if numFacilities <= 0 || numCustomers <= 0 {
		return errors.Wrapf(ErrInvalidInstance,
			"header declares %d facilities and %d customers", numFacilities, numCustomers)
	}
	inst.NumFacilities = numFacilities
	inst.NumCustomers = numCustomers
	inst.Capacities = mat.NewVecDense(numFacilities, nil)
	inst.FixedCosts = mat.NewVecDense(numFacilities, nil)
	inst.Costs = mat.NewDense(numCustomers, numFacilities, nil)
	return nil
}

func (inst *Instance) parseFacilities(scanner *bufio.Scanner) error {
	for j := range inst.NumFacilities {
		capacity, err := nextFloat(scanner)
		if err != nil {
			return errors.Wrapf(err, "facility %d", j)
		}
		fixedCost, err := nextFloat(scanner)
		if err != nil {
			return errors.Wrapf(err, "facility %d", j)
		}
		inst.Capacities.SetVec(j, capacity)
		inst.FixedCosts.SetVec(j, fixedCost)
	}
	return nil
}

func (inst *Instance) parseDemands(scanner *bufio.Scanner) error {
	// A failed header leaves the counts at zero; stop before allocating.
	if inst.NumCustomers == 0 {
		return errors.Wrap(ErrInvalidInstance, "no customers declared")
	}
	demands := make([]float64, inst.NumCustomers)
	for i := range inst.NumCustomers {
		d, err := nextFloat(scanner)
		if err != nil {
			return errors.Wrapf(err, "customer %d demand", i)
		}
		demands[i] = d
	}
	inst.Demands = mat.NewDense(1, inst.NumCustomers, demands)
	return nil
}

// parseCosts reads the facility-major cost block and stores it transposed,
// so Costs is indexed customer first.
func (inst *Instance) parseCosts(scanner *bufio.Scanner) error {
	for j := range inst.NumFacilities {
		for i := range inst.NumCustomers {
			c, err := nextFloat(scanner)
			if err != nil {
				return errors.Wrapf(err, "cost of facility %d to customer %d", j, i)
			}
			inst.Costs.Set(i, j, c)
		}
	}
	return nil
}

// LoadInstance reads an instance file: facility and customer counts, one
// capacity and fixed cost pair per facility, the customer demands, and the
// facility-major transportation costs. Tokens may be split across lines
// arbitrarily. The demands become the single base scenario; see
// SampleScenarios.
func LoadInstance(filename string) (*Instance, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanWords)

	inst := new(Instance)
	err = errorCoalesce(
		inst.parseHeader(scanner),
		inst.parseFacilities(scanner),
		inst.parseDemands(scanner),
		inst.parseCosts(scanner),
		inst.Validate(),
	)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// NewInstance builds an instance from raw slices. Costs rows are indexed by
// customer, demands rows by scenario. All inputs are copied.
func NewInstance(fixedCosts, capacities []float64, costs, demands [][]float64) (*Instance, error) {
	inst := &Instance{
		NumFacilities: len(fixedCosts),
		NumCustomers:  len(costs),
	}
	if inst.NumFacilities == 0 || inst.NumCustomers == 0 || len(demands) == 0 {
		return nil, errors.Wrap(ErrInvalidInstance, "empty facility, customer or scenario set")
	}
	if len(capacities) != inst.NumFacilities {
		return nil, errors.Wrapf(ErrInvalidInstance,
			"%d capacities for %d facilities", len(capacities), inst.NumFacilities)
	}

	inst.FixedCosts = mat.NewVecDense(inst.NumFacilities, nil)
	inst.Capacities = mat.NewVecDense(inst.NumFacilities, nil)
	for j := range inst.NumFacilities {
		inst.FixedCosts.SetVec(j, fixedCosts[j])
		inst.Capacities.SetVec(j, capacities[j])
	}

	inst.Costs = mat.NewDense(inst.NumCustomers, inst.NumFacilities, nil)
	for i, row := range costs {
		if len(row) != inst.NumFacilities {
			return nil, errors.Wrapf(ErrInvalidInstance,
				"cost row %d has %d entries for %d facilities", i, len(row), inst.NumFacilities)
		}
		for j, c := range row {
			inst.Costs.Set(i, j, c)
		}
	}

	inst.Demands = mat.NewDense(len(demands), inst.NumCustomers, nil)
	for s, row := range demands {
		if len(row) != inst.NumCustomers {
			return nil, errors.Wrapf(ErrInvalidInstance,
				"scenario %d has %d demands for %d customers", s, len(row), inst.NumCustomers)
		}
		for i, d := range row {
			inst.Demands.Set(s, i, d)
		}
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Validate checks cardinalities and signs. It is called by the constructors,
// so a held *Instance can be assumed valid.
func (inst *Instance) Validate() error {
	if inst.NumFacilities <= 0 || inst.NumCustomers <= 0 {
		return errors.Wrapf(ErrInvalidInstance,
			"%d facilities, %d customers", inst.NumFacilities, inst.NumCustomers)
	}
	if inst.FixedCosts == nil || inst.FixedCosts.Len() != inst.NumFacilities {
		return errors.Wrap(ErrInvalidInstance, "fixed cost vector does not match facility count")
	}
	if inst.Capacities == nil || inst.Capacities.Len() != inst.NumFacilities {
		return errors.Wrap(ErrInvalidInstance, "capacity vector does not match facility count")
	}
	r, c := inst.Costs.Dims()
	if r != inst.NumCustomers || c != inst.NumFacilities {
		return errors.Wrapf(ErrInvalidInstance,
			"cost matrix is %dx%d, want %dx%d", r, c, inst.NumCustomers, inst.NumFacilities)
	}
	sr, sc := inst.Demands.Dims()
	if sr <= 0 || sc != inst.NumCustomers {
		return errors.Wrapf(ErrInvalidInstance,
			"demand matrix is %dx%d, want scenarios x %d", sr, sc, inst.NumCustomers)
	}

	for j := range inst.NumFacilities {
		if inst.FixedCosts.AtVec(j) < 0 {
			return errors.Wrapf(ErrInvalidInstance,
				"facility %d has negative fixed cost %g", j, inst.FixedCosts.AtVec(j))
		}
		if inst.Capacities.AtVec(j) < 0 {
			return errors.Wrapf(ErrInvalidInstance,
				"facility %d has negative capacity %g", j, inst.Capacities.AtVec(j))
		}
	}
	for i := range inst.NumCustomers {
		for j := range inst.NumFacilities {
			if inst.Costs.At(i, j) < 0 {
				return errors.Wrapf(ErrInvalidInstance,
					"negative cost %g for customer %d, facility %d", inst.Costs.At(i, j), i, j)
			}
		}
	}
	for s := range sr {
		for i := range inst.NumCustomers {
			if inst.Demands.At(s, i) < 0 {
				return errors.Wrapf(ErrInvalidInstance,
					"negative demand %g for customer %d in scenario %d", inst.Demands.At(s, i), i, s)
			}
		}
	}
	return nil
}
