// Package cards writes the simulator input cards derived from a benchmark
// setup: the param card pinning the sampling benchmark and the reweight card
// instructing the reweighting step to evaluate every other benchmark.
package cards

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"proteus/internal/model"
	"proteus/internal/transform"
)

// ExportParamCard reads a param card template and substitutes, for every
// registered parameter, the entry LHAID inside Block LHABlock with the sample
// benchmark's transformed value. The rest of the template passes through
// untouched.
func ExportParamCard(params []model.Parameter, benchmark model.Benchmark, templatePath, outputPath string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return err
	}

	card := string(data)
	for _, p := range params {
		raw, ok := benchmark.Values[p.Name]
		if !ok {
			return fmt.Errorf("benchmark %s is missing a value for parameter %s", benchmark.Name, p.Name)
		}
		value, err := applyTransform(p, raw)
		if err != nil {
			return err
		}
		card, err = setBlockEntry(card, p.LHABlock, p.LHAID, value)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(outputPath, []byte(card), 0o644)
}

// ExportReweightCard copies the reweight card template and appends one launch
// stanza per benchmark, skipping the sample benchmark the events are generated
// with. The template must not carry an active launch command of its own.
func ExportReweightCard(params []model.Parameter, benchmarks []model.Benchmark, sampleBenchmark, templatePath, outputPath string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return err
	}

	card := string(data)
	for _, line := range strings.Split(card, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.EqualFold(fields[0], "launch") {
			return fmt.Errorf("reweight card template carries an active launch command: %q", strings.TrimSpace(line))
		}
	}
	if !hasBenchmark(benchmarks, sampleBenchmark) {
		return fmt.Errorf("sample benchmark %s is not defined", sampleBenchmark)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(card, "\n"))
	sb.WriteString("\n")
	for _, b := range benchmarks {
		if b.Name == sampleBenchmark {
			continue
		}
		fmt.Fprintf(&sb, "\n# benchmark %s\n", b.Name)
		fmt.Fprintf(&sb, "launch --rwgt_name=%s\n", b.Name)
		for _, p := range params {
			raw, ok := b.Values[p.Name]
			if !ok {
				return fmt.Errorf("benchmark %s is missing a value for parameter %s", b.Name, p.Name)
			}
			value, err := applyTransform(p, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(&sb, "  set %s %d %s\n", p.LHABlock, p.LHAID, formatValue(value))
		}
	}
	return os.WriteFile(outputPath, []byte(sb.String()), 0o644)
}

// setBlockEntry rewrites the line for entry id inside the named block. Blocks
// run from their header to the next block or decay header.
func setBlockEntry(card, block string, id int, value float64) (string, error) {
	lines := strings.Split(card, "\n")
	start, end := blockExtent(lines, block)
	if start < 0 {
		return "", fmt.Errorf("block %s not found in param card template", block)
	}

	for i := start + 1; i < end; i++ {
		fields := strings.Fields(lines[i])
		if len(fields) < 2 {
			continue
		}
		entry, err := strconv.Atoi(fields[0])
		if err != nil || entry != id {
			continue
		}
		lines[i] = fmt.Sprintf("    %d    %s    # proteus", id, formatValue(value))
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("entry %d not found in block %s of param card template", id, block)
}

func blockExtent(lines []string, block string) (int, int) {
	start := -1
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if start < 0 {
			if len(fields) >= 2 && strings.EqualFold(fields[0], "block") && strings.EqualFold(fields[1], block) {
				start = i
			}
			continue
		}
		if strings.EqualFold(fields[0], "block") || strings.EqualFold(fields[0], "decay") {
			return start, i
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, len(lines)
}

func applyTransform(p model.Parameter, value float64) (float64, error) {
	tf, err := transform.Compile(p.Transform)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	out, err := tf.Apply(value)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	return out, nil
}

func hasBenchmark(benchmarks []model.Benchmark, name string) bool {
	for _, b := range benchmarks {
		if b.Name == name {
			return true
		}
	}
	return false
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
