package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WeightGridRow is one theta point with its reconstruction weights.
type WeightGridRow struct {
	Theta     []float64
	Weights   []float64
	WeightSum float64
}

// WriteWeightGrid writes a CSV with one column per parameter, one per basis
// benchmark and a trailing weight_sum consistency column.
func WriteWeightGrid(path string, paramNames, benchmarkNames []string, rows []WeightGridRow) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := make([]string, 0, len(paramNames)+len(benchmarkNames)+1)
	header = append(header, paramNames...)
	header = append(header, benchmarkNames...)
	header = append(header, "weight_sum")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		if len(row.Theta) != len(paramNames) || len(row.Weights) != len(benchmarkNames) {
			return fmt.Errorf("grid row shape mismatch: theta=%d weights=%d", len(row.Theta), len(row.Weights))
		}
		record := make([]string, 0, len(header))
		for _, v := range row.Theta {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range row.Weights {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record, strconv.FormatFloat(row.WeightSum, 'g', -1, 64))
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
