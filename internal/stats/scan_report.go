package stats

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const scanReportFile = "scan_report.json"

// ScanTrend aggregates the scans sharing a component count, oldest first, so
// the best-score series reads as a trend across repeated scans of the same
// setup shape.
type ScanTrend struct {
	Components      int       `json:"components"`
	ScanIDs         []string  `json:"scan_ids"`
	BestScores      []float64 `json:"best_scores"`
	MeanBestScore   float64   `json:"mean_best_score"`
	BestScoreStdDev float64   `json:"best_score_std_dev"`
	MinBestScore    float64   `json:"min_best_score"`
	BestScanID      string    `json:"best_scan_id"`
	MeanCondition   float64   `json:"mean_condition"`
	DegenerateRate  float64   `json:"degenerate_rate"`
}

type ScanReport struct {
	GeneratedAtUTC string      `json:"generated_at_utc"`
	TotalScans     int         `json:"total_scans"`
	Trends         []ScanTrend `json:"trends"`
}

// BuildScanReport reads every indexed scan's diagnostics and groups them by
// component count. Indexed scans whose artifact directory has been pruned are
// skipped.
func BuildScanReport(baseDir string) (ScanReport, error) {
	entries, err := ListScanIndex(baseDir)
	if err != nil {
		return ScanReport{}, err
	}

	type trendAcc struct {
		scanIDs    []string
		bestScores []float64
		conditions []float64
		degenerate int
		trials     int
		minScore   float64
		minScanID  string
	}
	groups := make(map[int]*trendAcc)
	total := 0
	// The index is newest first; walk backwards for a chronological series.
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		diagnostics, ok, err := ReadScanDiagnostics(baseDir, entry.ScanID)
		if err != nil {
			return ScanReport{}, err
		}
		if !ok {
			continue
		}

		acc := groups[entry.Components]
		if acc == nil {
			acc = &trendAcc{minScore: math.Inf(1)}
			groups[entry.Components] = acc
		}
		acc.scanIDs = append(acc.scanIDs, entry.ScanID)
		acc.bestScores = append(acc.bestScores, entry.BestScore)
		acc.conditions = append(acc.conditions, entry.BestCondition)
		acc.degenerate += diagnostics.DegenerateCount
		acc.trials += diagnostics.Trials
		if entry.BestScore < acc.minScore {
			acc.minScore = entry.BestScore
			acc.minScanID = entry.ScanID
		}
		total++
	}

	components := make([]int, 0, len(groups))
	for c := range groups {
		components = append(components, c)
	}
	sort.Ints(components)

	trends := make([]ScanTrend, 0, len(components))
	for _, c := range components {
		acc := groups[c]
		trend := ScanTrend{
			Components:    c,
			ScanIDs:       acc.scanIDs,
			BestScores:    acc.bestScores,
			MeanBestScore: stat.Mean(acc.bestScores, nil),
			MinBestScore:  acc.minScore,
			BestScanID:    acc.minScanID,
			MeanCondition: stat.Mean(acc.conditions, nil),
		}
		if len(acc.bestScores) > 1 {
			trend.BestScoreStdDev = stat.StdDev(acc.bestScores, nil)
		}
		if acc.trials > 0 {
			trend.DegenerateRate = float64(acc.degenerate) / float64(acc.trials)
		}
		trends = append(trends, trend)
	}

	return ScanReport{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		TotalScans:     total,
		Trends:         trends,
	}, nil
}

func WriteScanReport(baseDir string, report ScanReport) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(baseDir, scanReportFile)
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}
