// Package stats writes and reads the per-scan artifact directories: the JSON
// records a basis scan leaves behind for later inspection and export.
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"proteus/internal/model"
	"proteus/internal/morph"
)

const scanIndexFile = "scan_index.json"

type ScanConfig struct {
	ScanID          string  `json:"scan_id"`
	MaxOverallPower []int   `json:"max_overall_power"`
	NTrials         int     `json:"n_trials"`
	NTestThetas     int     `json:"n_test_thetas"`
	NBases          int     `json:"n_bases"`
	Seed            int64   `json:"seed"`
	Workers         int     `json:"workers"`
	ConditionLimit  float64 `json:"condition_limit,omitempty"`
	IncludeExisting bool    `json:"include_existing"`
}

type ScanDiagnostics struct {
	Components      int     `json:"components"`
	Trials          int     `json:"trials"`
	DegenerateCount int     `json:"degenerate_count"`
	BestTrial       int     `json:"best_trial"`
	BestScore       float64 `json:"best_score"`
	BestCondition   float64 `json:"best_condition"`
	ScoreMean       float64 `json:"score_mean"`
	ScoreStdDev     float64 `json:"score_std_dev"`
	ElapsedMS       int64   `json:"elapsed_ms"`
}

type BasisArtifact struct {
	Parameters []model.Parameter `json:"parameters"`
	Basis      []model.Benchmark `json:"basis"`
	Matrix     [][]float64       `json:"matrix,omitempty"`
	NBases     int               `json:"n_bases"`
}

// WeightSample records the reconstruction weights at one probe point, the
// weight sum doubling as a consistency check.
type WeightSample struct {
	Theta     []float64               `json:"theta"`
	Weights   []morph.BenchmarkWeight `json:"weights"`
	WeightSum float64                 `json:"weight_sum"`
}

type ScanArtifacts struct {
	Config        ScanConfig      `json:"config"`
	Diagnostics   ScanDiagnostics `json:"diagnostics"`
	Basis         BasisArtifact   `json:"basis"`
	WeightSamples []WeightSample  `json:"weight_samples,omitempty"`
}

type ScanIndexEntry struct {
	ScanID        string  `json:"scan_id"`
	Components    int     `json:"components"`
	NTrials       int     `json:"n_trials"`
	NBases        int     `json:"n_bases"`
	Seed          int64   `json:"seed"`
	BestScore     float64 `json:"best_score"`
	BestCondition float64 `json:"best_condition"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

var scanArtifactFiles = []string{"config.json", "diagnostics.json", "basis.json", "weight_samples.json"}

func WriteScanArtifacts(baseDir string, artifacts ScanArtifacts) (string, error) {
	if artifacts.Config.ScanID == "" {
		return "", fmt.Errorf("scan id is required")
	}

	scanDir := filepath.Join(baseDir, artifacts.Config.ScanID)
	if err := os.MkdirAll(scanDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(scanDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(scanDir, "diagnostics.json"), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(scanDir, "basis.json"), artifacts.Basis); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(scanDir, "weight_samples.json"), artifacts.WeightSamples); err != nil {
		return "", err
	}

	return scanDir, nil
}

func AppendScanIndex(baseDir string, entry ScanIndexEntry) error {
	if entry.ScanID == "" {
		return fmt.Errorf("scan id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListScanIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].ScanID == entry.ScanID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, scanIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, scanIndexFile), index)
}

func ListScanIndex(baseDir string) ([]ScanIndexEntry, error) {
	path := filepath.Join(baseDir, scanIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []ScanIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []ScanIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry ScanIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]ScanIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportScanArtifacts(baseDir, scanID, outDir string) (string, error) {
	if scanID == "" {
		return "", fmt.Errorf("scan id is required")
	}

	src := filepath.Join(baseDir, scanID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, scanID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range scanArtifactFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadScanConfig(baseDir, scanID string) (ScanConfig, bool, error) {
	path := filepath.Join(baseDir, scanID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanConfig{}, false, nil
		}
		return ScanConfig{}, false, err
	}

	var cfg ScanConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ScanConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadScanDiagnostics(baseDir, scanID string) (ScanDiagnostics, bool, error) {
	path := filepath.Join(baseDir, scanID, "diagnostics.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanDiagnostics{}, false, nil
		}
		return ScanDiagnostics{}, false, err
	}

	var diagnostics ScanDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return ScanDiagnostics{}, false, err
	}
	return diagnostics, true, nil
}

func ReadBasisArtifact(baseDir, scanID string) (BasisArtifact, bool, error) {
	path := filepath.Join(baseDir, scanID, "basis.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BasisArtifact{}, false, nil
		}
		return BasisArtifact{}, false, err
	}

	var basis BasisArtifact
	if err := json.Unmarshal(data, &basis); err != nil {
		return BasisArtifact{}, false, err
	}
	return basis, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
