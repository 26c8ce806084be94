// Package morph implements the morphing basis engine: enumeration of the
// monomial components implied by parameter degree budgets, construction and
// inversion of the basis matrix, weight reconstruction at arbitrary parameter
// points, and the stochastic search for a well-conditioned basis.
//
// The package works on ordered coordinate vectors aligned with the declared
// parameter list; translating named benchmarks to vectors is the caller's job.
package morph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"proteus/internal/model"
)

// FindComponents enumerates every monomial allowed by the per-parameter
// degree budgets and the per-configuration overall budgets. Configurations
// are emitted in order; within a configuration the exponent tuples follow the
// row-major cartesian order with the last parameter varying fastest, so the
// output is stable across runs.
func FindComponents(params []model.Parameter, overall []int) ([]model.Component, error) {
	if len(overall) == 0 {
		return nil, fmt.Errorf("at least one overall power budget is required")
	}
	for c, budget := range overall {
		if budget < 0 {
			return nil, fmt.Errorf("overall power budget must be >= 0 at configuration %d", c)
		}
	}
	for _, p := range params {
		if len(p.MaxPower) < len(overall) {
			return nil, fmt.Errorf("parameter %s declares %d max powers but %d configurations are requested", p.Name, len(p.MaxPower), len(overall))
		}
		for c := range overall {
			if p.MaxPower[c] < 0 {
				return nil, fmt.Errorf("max power must be >= 0 for parameter %s at configuration %d", p.Name, c)
			}
		}
	}

	var components []model.Component
	for c, budget := range overall {
		if len(params) == 0 {
			// No parameters leaves only the constant monomial.
			components = append(components, model.Component{Config: c, Powers: []int{}})
			continue
		}

		lens := make([]int, len(params))
		for i, p := range params {
			lens[i] = p.MaxPower[c] + 1
		}
		gen := combin.NewCartesianGenerator(lens)
		powers := make([]int, len(params))
		for gen.Next() {
			gen.Product(powers)
			total := 0
			for _, power := range powers {
				total += power
			}
			if total > budget {
				continue
			}
			components = append(components, model.Component{Config: c, Powers: append([]int(nil), powers...)})
		}
	}
	return components, nil
}

// EvaluateComponent computes the monomial value at a point given in declared
// parameter order. A zero exponent contributes 1 for any base, including 0.
func EvaluateComponent(c model.Component, point []float64) (float64, error) {
	if len(point) != len(c.Powers) {
		return 0, fmt.Errorf("point dimension mismatch: got=%d want=%d", len(point), len(c.Powers))
	}
	return componentValue(c.Powers, point), nil
}

func componentValue(powers []int, point []float64) float64 {
	value := 1.0
	for i, power := range powers {
		value *= math.Pow(point[i], float64(power))
	}
	return value
}

func componentRow(components []model.Component, point []float64) []float64 {
	row := make([]float64, len(components))
	for j, c := range components {
		row[j] = componentValue(c.Powers, point)
	}
	return row
}

// componentDim returns the shared coordinate dimension of the component list.
func componentDim(components []model.Component) (int, error) {
	if len(components) == 0 {
		return 0, fmt.Errorf("at least one component is required")
	}
	dim := len(components[0].Powers)
	for j, c := range components {
		if len(c.Powers) != dim {
			return 0, fmt.Errorf("component %d dimension mismatch: got=%d want=%d", j, len(c.Powers), dim)
		}
	}
	return dim, nil
}
