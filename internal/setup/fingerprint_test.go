package setup

import (
	"regexp"
	"testing"

	"proteus/internal/model"
)

func fingerprintFixture() ([]model.Parameter, []model.Benchmark) {
	params := []model.Parameter{
		{Name: "cwl2", LHABlock: "dim6", LHAID: 2, MaxPower: []int{2}, Range: [2]float64{-10, 10}},
		{Name: "cpv", LHABlock: "dim6", LHAID: 5, MaxPower: []int{1, 1}, Range: [2]float64{-1, 1}, Transform: "16.52 * theta"},
	}
	benchmarks := []model.Benchmark{
		{Name: "sm", Values: map[string]float64{"cwl2": 0, "cpv": 0}},
		{Name: "w", Values: map[string]float64{"cwl2": 7.5, "cpv": -0.25}},
	}
	return params, benchmarks
}

func TestFingerprintStable(t *testing.T) {
	params, benchmarks := fingerprintFixture()
	first := Fingerprint(params, benchmarks)
	second := Fingerprint(params, benchmarks)
	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(first) {
		t.Fatalf("unexpected fingerprint format: %s", first)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	params, benchmarks := fingerprintFixture()
	base := Fingerprint(params, benchmarks)

	swapped := []model.Benchmark{benchmarks[1], benchmarks[0]}
	if Fingerprint(params, swapped) == base {
		t.Fatal("expected benchmark order to change the fingerprint")
	}

	changed := []model.Benchmark{
		benchmarks[0],
		{Name: "w", Values: map[string]float64{"cwl2": 7.5000001, "cpv": -0.25}},
	}
	if Fingerprint(params, changed) == base {
		t.Fatal("expected a benchmark value change to change the fingerprint")
	}

	widened := []model.Parameter{params[0], params[1]}
	widened[0].MaxPower = []int{4}
	if Fingerprint(widened, benchmarks) == base {
		t.Fatal("expected a max power change to change the fingerprint")
	}

	retargeted := []model.Parameter{params[0], params[1]}
	retargeted[1].Transform = "theta"
	if Fingerprint(retargeted, benchmarks) == base {
		t.Fatal("expected a transform change to change the fingerprint")
	}
}

func TestFingerprintIgnoresExtraBenchmarkValues(t *testing.T) {
	params, benchmarks := fingerprintFixture()
	base := Fingerprint(params, benchmarks)

	padded := []model.Benchmark{benchmarks[0], benchmarks[1]}
	padded[1] = model.Benchmark{Name: "w", Values: map[string]float64{"cwl2": 7.5, "cpv": -0.25, "stray": 3}}
	if Fingerprint(params, padded) != base {
		t.Fatal("values outside the registry must not affect the fingerprint")
	}
}
