package cards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"proteus/internal/model"
)

const paramCardTemplate = `###################################
## INFORMATION FOR DIM6
###################################
Block dim6
    1 0.000000e+00 # cg
    2 0.000000e+00 # cwl2
    5 0.000000e+00 # cpv

Block mass
    6 1.730000e+02 # MT
   25 1.250000e+02 # MH

DECAY 25 6.382339e-03
`

const reweightCardTemplate = `# Commands for the reweighting module.
# launch
change rwgt_dir rwgt
`

func writeTemplate(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func cardParameters() []model.Parameter {
	return []model.Parameter{
		{Name: "cwl2", LHABlock: "dim6", LHAID: 2},
		{Name: "cpv", LHABlock: "dim6", LHAID: 5},
	}
}

func TestExportParamCardSubstitutesValues(t *testing.T) {
	template := writeTemplate(t, "param_card_template.dat", paramCardTemplate)
	output := filepath.Join(t.TempDir(), "param_card.dat")

	benchmark := model.Benchmark{Name: "w", Values: map[string]float64{"cwl2": 7.5, "cpv": -0.25}}
	if err := ExportParamCard(cardParameters(), benchmark, template, output); err != nil {
		t.Fatalf("export param card: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	card := string(data)
	if !strings.Contains(card, "    2    7.5    # proteus") {
		t.Fatalf("entry 2 not substituted:\n%s", card)
	}
	if !strings.Contains(card, "    5    -0.25    # proteus") {
		t.Fatalf("entry 5 not substituted:\n%s", card)
	}
	if !strings.Contains(card, "    1 0.000000e+00 # cg") {
		t.Fatalf("untouched entry 1 changed:\n%s", card)
	}
	if !strings.Contains(card, "6 1.730000e+02 # MT") {
		t.Fatalf("mass block changed:\n%s", card)
	}
	if !strings.Contains(card, "DECAY 25 6.382339e-03") {
		t.Fatalf("decay section changed:\n%s", card)
	}
}

func TestExportParamCardAppliesTransform(t *testing.T) {
	template := writeTemplate(t, "param_card_template.dat", paramCardTemplate)
	output := filepath.Join(t.TempDir(), "param_card.dat")

	params := []model.Parameter{{Name: "cwl2", LHABlock: "dim6", LHAID: 2, Transform: "16.52 * theta"}}
	benchmark := model.Benchmark{Name: "w", Values: map[string]float64{"cwl2": 0.5}}
	if err := ExportParamCard(params, benchmark, template, output); err != nil {
		t.Fatalf("export param card: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "    2    8.26    # proteus") {
		t.Fatalf("transform not applied:\n%s", data)
	}
}

func TestExportParamCardMatchesBlockCaseInsensitively(t *testing.T) {
	template := writeTemplate(t, "param_card_template.dat", "BLOCK DIM6\n    2 0.0 # cwl2\n")
	output := filepath.Join(t.TempDir(), "param_card.dat")

	params := []model.Parameter{{Name: "cwl2", LHABlock: "dim6", LHAID: 2}}
	benchmark := model.Benchmark{Name: "w", Values: map[string]float64{"cwl2": 1}}
	if err := ExportParamCard(params, benchmark, template, output); err != nil {
		t.Fatalf("export param card: %v", err)
	}
}

func TestExportParamCardErrors(t *testing.T) {
	template := writeTemplate(t, "param_card_template.dat", paramCardTemplate)
	output := filepath.Join(t.TempDir(), "param_card.dat")

	missingBlock := []model.Parameter{{Name: "x", LHABlock: "dim8", LHAID: 1}}
	err := ExportParamCard(missingBlock, model.Benchmark{Name: "w", Values: map[string]float64{"x": 1}}, template, output)
	if err == nil || !strings.Contains(err.Error(), "block dim8") {
		t.Fatalf("expected missing block error, got %v", err)
	}

	missingEntry := []model.Parameter{{Name: "x", LHABlock: "dim6", LHAID: 99}}
	err = ExportParamCard(missingEntry, model.Benchmark{Name: "w", Values: map[string]float64{"x": 1}}, template, output)
	if err == nil || !strings.Contains(err.Error(), "entry 99") {
		t.Fatalf("expected missing entry error, got %v", err)
	}

	err = ExportParamCard(cardParameters(), model.Benchmark{Name: "w", Values: map[string]float64{"cwl2": 1}}, template, output)
	if err == nil {
		t.Fatal("expected error for missing benchmark value")
	}
}

func TestExportReweightCardAppendsStanzas(t *testing.T) {
	template := writeTemplate(t, "reweight_card_template.dat", reweightCardTemplate)
	output := filepath.Join(t.TempDir(), "reweight_card.dat")

	benchmarks := []model.Benchmark{
		{Name: "sm", Values: map[string]float64{"cwl2": 0, "cpv": 0}},
		{Name: "w1", Values: map[string]float64{"cwl2": 7.5, "cpv": -0.25}},
		{Name: "w2", Values: map[string]float64{"cwl2": -2, "cpv": 1}},
	}
	if err := ExportReweightCard(cardParameters(), benchmarks, "sm", template, output); err != nil {
		t.Fatalf("export reweight card: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	card := string(data)
	if !strings.Contains(card, "change rwgt_dir rwgt") {
		t.Fatalf("template content lost:\n%s", card)
	}
	if strings.Contains(card, "launch --rwgt_name=sm") {
		t.Fatalf("sample benchmark must not be reweighted:\n%s", card)
	}
	for _, want := range []string{
		"launch --rwgt_name=w1",
		"  set dim6 2 7.5",
		"  set dim6 5 -0.25",
		"launch --rwgt_name=w2",
		"  set dim6 2 -2",
		"  set dim6 5 1",
	} {
		if !strings.Contains(card, want) {
			t.Fatalf("missing %q in:\n%s", want, card)
		}
	}

	w1 := strings.Index(card, "launch --rwgt_name=w1")
	w2 := strings.Index(card, "launch --rwgt_name=w2")
	if w1 > w2 {
		t.Fatalf("stanzas out of benchmark order:\n%s", card)
	}
}

func TestExportReweightCardRejectsActiveLaunch(t *testing.T) {
	template := writeTemplate(t, "reweight_card_template.dat", "launch\n")
	output := filepath.Join(t.TempDir(), "reweight_card.dat")

	benchmarks := []model.Benchmark{{Name: "sm", Values: map[string]float64{"cwl2": 0, "cpv": 0}}}
	if err := ExportReweightCard(cardParameters(), benchmarks, "sm", template, output); err == nil {
		t.Fatal("expected error for active launch command in template")
	}
}

func TestExportReweightCardRequiresKnownSample(t *testing.T) {
	template := writeTemplate(t, "reweight_card_template.dat", reweightCardTemplate)
	output := filepath.Join(t.TempDir(), "reweight_card.dat")

	benchmarks := []model.Benchmark{{Name: "sm", Values: map[string]float64{"cwl2": 0, "cpv": 0}}}
	if err := ExportReweightCard(cardParameters(), benchmarks, "ghost", template, output); err == nil {
		t.Fatal("expected error for unknown sample benchmark")
	}
}
