package morph

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"proteus/internal/model"
)

// BenchmarkWeight pairs one basis benchmark with its reconstruction weight.
type BenchmarkWeight struct {
	Benchmark string  `json:"benchmark"`
	Weight    float64 `json:"weight"`
}

// Weights computes the benchmark weights reconstructing the quantity at
// theta: for each basis block, w = v C^-1 with v the component row at theta.
// A stacked matrix with k bases yields k*n weights, each block scaled by 1/k
// so that the per-basis contributions sum to the full reconstruction.
func Weights(components []model.Component, inverse *mat.Dense, theta []float64) ([]float64, error) {
	dim, err := componentDim(components)
	if err != nil {
		return nil, err
	}
	if len(theta) != dim {
		return nil, fmt.Errorf("theta dimension mismatch: got=%d want=%d", len(theta), dim)
	}
	n := len(components)
	nBases, err := StackedBases(inverse, n)
	if err != nil {
		return nil, err
	}

	v := mat.NewVecDense(n, componentRow(components, theta))
	scale := 1.0 / float64(nBases)
	weights := make([]float64, 0, nBases*n)
	var w mat.VecDense
	for b := 0; b < nBases; b++ {
		block := inverse.Slice(b*n, (b+1)*n, 0, n)
		w.MulVec(block.T(), v)
		for i := 0; i < n; i++ {
			weights = append(weights, scale*w.AtVec(i))
		}
	}
	return weights, nil
}

// NamedWeights evaluates a persisted morphing record at theta and pairs each
// weight with its benchmark name in basis order.
func NamedWeights(morphing model.Morphing, theta []float64) ([]BenchmarkWeight, error) {
	inverse, err := MatrixFromRows(morphing.Matrix)
	if err != nil {
		return nil, err
	}
	weights, err := Weights(morphing.Components, inverse, theta)
	if err != nil {
		return nil, err
	}
	if len(weights) != len(morphing.Basis) {
		return nil, fmt.Errorf("basis size mismatch: got=%d want=%d", len(morphing.Basis), len(weights))
	}

	named := make([]BenchmarkWeight, len(weights))
	for i, weight := range weights {
		named[i] = BenchmarkWeight{Benchmark: morphing.Basis[i].Name, Weight: weight}
	}
	return named, nil
}
