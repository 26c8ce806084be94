package stats

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"proteus/internal/model"
	"proteus/internal/morph"
)

func sampleArtifacts(scanID string) ScanArtifacts {
	return ScanArtifacts{
		Config: ScanConfig{
			ScanID:          scanID,
			MaxOverallPower: []int{4},
			NTrials:         100,
			NTestThetas:     100,
			NBases:          1,
			Seed:            42,
			Workers:         4,
		},
		Diagnostics: ScanDiagnostics{
			Components:    3,
			Trials:        100,
			BestTrial:     17,
			BestScore:     1.25,
			BestCondition: 31.5,
			ScoreMean:     2.5,
			ScoreStdDev:   0.75,
			ElapsedMS:     120,
		},
		Basis: BasisArtifact{
			Parameters: []model.Parameter{{Name: "cwl2", LHABlock: "dim6", LHAID: 2, MaxPower: []int{2}, Range: [2]float64{-1, 1}}},
			Basis: []model.Benchmark{
				{Name: "morphing_basis_vector_0", Values: map[string]float64{"cwl2": -0.5}},
				{Name: "morphing_basis_vector_1", Values: map[string]float64{"cwl2": 0.25}},
				{Name: "morphing_basis_vector_2", Values: map[string]float64{"cwl2": 0.75}},
			},
			Matrix: [][]float64{{1, 0, 0}, {-1.5, 2, -0.5}, {0.5, -1, 0.5}},
			NBases: 1,
		},
		WeightSamples: []WeightSample{{
			Theta:     []float64{0.25},
			Weights:   []morph.BenchmarkWeight{{Benchmark: "morphing_basis_vector_0", Weight: 0}, {Benchmark: "morphing_basis_vector_1", Weight: 1}, {Benchmark: "morphing_basis_vector_2", Weight: 0}},
			WeightSum: 1,
		}},
	}
}

func TestWriteAndExportScanArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	scanID := "scan-123"
	scanDir, err := WriteScanArtifacts(baseDir, sampleArtifacts(scanID))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range scanArtifactFiles {
		if _, err := os.Stat(filepath.Join(scanDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportScanArtifacts(baseDir, scanID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range scanArtifactFiles {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteScanArtifactsRequiresScanID(t *testing.T) {
	if _, err := WriteScanArtifacts(t.TempDir(), ScanArtifacts{}); err == nil {
		t.Fatal("expected error for missing scan id")
	}
}

func TestReadScanArtifactsRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	input := sampleArtifacts("scan-rt")
	if _, err := WriteScanArtifacts(baseDir, input); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadScanConfig(baseDir, "scan-rt")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !ok {
		t.Fatal("expected config")
	}
	if !reflect.DeepEqual(cfg, input.Config) {
		t.Fatalf("config mismatch\nactual=%+v\nexpected=%+v", cfg, input.Config)
	}

	diagnostics, ok, err := ReadScanDiagnostics(baseDir, "scan-rt")
	if err != nil {
		t.Fatalf("read diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected diagnostics")
	}
	if !reflect.DeepEqual(diagnostics, input.Diagnostics) {
		t.Fatalf("diagnostics mismatch\nactual=%+v\nexpected=%+v", diagnostics, input.Diagnostics)
	}

	basis, ok, err := ReadBasisArtifact(baseDir, "scan-rt")
	if err != nil {
		t.Fatalf("read basis: %v", err)
	}
	if !ok {
		t.Fatal("expected basis")
	}
	if !reflect.DeepEqual(basis, input.Basis) {
		t.Fatalf("basis mismatch\nactual=%+v\nexpected=%+v", basis, input.Basis)
	}

	if _, ok, err := ReadScanConfig(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing scan, got ok=%v err=%v", ok, err)
	}
}

func TestScanIndexAppendsAndSorts(t *testing.T) {
	baseDir := t.TempDir()

	entries := []ScanIndexEntry{
		{ScanID: "scan-old", Components: 3, NTrials: 100, NBases: 1, Seed: 1, BestScore: 2.5, CreatedAtUTC: "2026-08-24T08:00:00Z"},
		{ScanID: "scan-new", Components: 3, NTrials: 100, NBases: 1, Seed: 2, BestScore: 1.5, CreatedAtUTC: "2026-08-25T09:00:00Z"},
		{ScanID: "scan-mid", Components: 3, NTrials: 100, NBases: 1, Seed: 3, BestScore: 2.0, CreatedAtUTC: "2026-08-25T08:00:00Z"},
	}
	for _, entry := range entries {
		if err := AppendScanIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.ScanID, err)
		}
	}

	index, err := ListScanIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	ids := make([]string, len(index))
	for i, entry := range index {
		ids[i] = entry.ScanID
	}
	want := []string{"scan-new", "scan-mid", "scan-old"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected order: actual=%v expected=%v", ids, want)
	}

	updated := entries[0]
	updated.BestScore = 0.5
	if err := AppendScanIndex(baseDir, updated); err != nil {
		t.Fatalf("update entry: %v", err)
	}
	index, err = ListScanIndex(baseDir)
	if err != nil {
		t.Fatalf("list index after update: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("expected upsert, got %d entries", len(index))
	}
	for _, entry := range index {
		if entry.ScanID == "scan-old" && entry.BestScore != 0.5 {
			t.Fatalf("entry not updated: %+v", entry)
		}
	}
}

func TestListScanIndexEmpty(t *testing.T) {
	index, err := ListScanIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %+v", index)
	}
}
