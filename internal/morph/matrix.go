package morph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"proteus/internal/model"
)

// DefaultConditionLimit is the largest 2-norm condition number accepted for a
// basis matrix before the basis is treated as degenerate.
const DefaultConditionLimit = 1e12

// ErrDegenerateBasis marks a candidate basis whose matrix is singular or too
// ill-conditioned to invert reliably.
var ErrDegenerateBasis = errors.New("degenerate morphing basis")

// CalculateMatrix builds the square matrix C with C[i][j] holding component j
// evaluated at basis point i, then returns its inverse together with the
// 2-norm condition number. Bases beyond the condition limit are rejected with
// ErrDegenerateBasis; a non-positive limit selects DefaultConditionLimit.
func CalculateMatrix(components []model.Component, points [][]float64, conditionLimit float64) (*mat.Dense, float64, error) {
	dim, err := componentDim(components)
	if err != nil {
		return nil, 0, err
	}
	n := len(components)
	if len(points) != n {
		return nil, 0, fmt.Errorf("basis size mismatch: got=%d want=%d", len(points), n)
	}
	for i, point := range points {
		if len(point) != dim {
			return nil, 0, fmt.Errorf("basis point %d dimension mismatch: got=%d want=%d", i, len(point), dim)
		}
	}
	if conditionLimit <= 0 {
		conditionLimit = DefaultConditionLimit
	}

	c := mat.NewDense(n, n, nil)
	for i, point := range points {
		for j, component := range components {
			c.Set(i, j, componentValue(component.Powers, point))
		}
	}

	cond := mat.Cond(c, 2)
	if math.IsInf(cond, 1) || math.IsNaN(cond) || cond > conditionLimit {
		return nil, cond, fmt.Errorf("%w: condition number %.3g exceeds limit %.3g", ErrDegenerateBasis, cond, conditionLimit)
	}

	inverse := mat.NewDense(n, n, nil)
	if err := inverse.Inverse(c); err != nil {
		return nil, cond, fmt.Errorf("%w: %v", ErrDegenerateBasis, err)
	}
	return inverse, cond, nil
}

// MatrixRows copies a dense matrix into the row-slice form persisted on
// model.Morphing.
func MatrixRows(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		mat.Row(row, i, m)
		out[i] = row
	}
	return out
}

// MatrixFromRows rebuilds a dense matrix from the persisted row-slice form.
func MatrixFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix has no rows")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("matrix has no columns")
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix row %d length mismatch: got=%d want=%d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// StackedBases reports the basis count encoded in a stacked morphing matrix.
func StackedBases(m *mat.Dense, components int) (int, error) {
	rows, cols := m.Dims()
	if components <= 0 {
		return 0, fmt.Errorf("at least one component is required")
	}
	if cols != components || rows%components != 0 || rows == 0 {
		return 0, fmt.Errorf("stacked matrix shape mismatch: got=%dx%d want=(k*%d)x%d", rows, cols, components, components)
	}
	return rows / components, nil
}
