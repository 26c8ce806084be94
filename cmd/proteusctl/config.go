package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"proteus/internal/storage"
	"proteus/pkg/proteus"
)

// setupCard is the YAML batch form of define: the full parameter and
// benchmark list applied in declared order.
type setupCard struct {
	Parameters       []parameterCard `yaml:"parameters"`
	Benchmarks       []benchmarkCard `yaml:"benchmarks"`
	DefaultBenchmark string          `yaml:"default_benchmark"`
}

type parameterCard struct {
	Name      string    `yaml:"name"`
	LHABlock  string    `yaml:"lha_block"`
	LHAID     int       `yaml:"lha_id"`
	MaxPower  []int     `yaml:"max_power"`
	Range     []float64 `yaml:"range"`
	Transform string    `yaml:"transform"`
}

type benchmarkCard struct {
	Name   string             `yaml:"name"`
	Values map[string]float64 `yaml:"values"`
}

func loadSetupCard(path string) (setupCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return setupCard{}, fmt.Errorf("read setup card: %w", err)
	}
	var card setupCard
	if err := yaml.Unmarshal(data, &card); err != nil {
		return setupCard{}, fmt.Errorf("parse setup card: %w", err)
	}
	for _, p := range card.Parameters {
		if len(p.Range) != 0 && len(p.Range) != 2 {
			return setupCard{}, fmt.Errorf("parameter %s: range needs exactly two values", p.Name)
		}
	}
	return card, nil
}

func (p parameterCard) request() proteus.ParameterRequest {
	req := proteus.ParameterRequest{
		Name:      p.Name,
		LHABlock:  p.LHABlock,
		LHAID:     p.LHAID,
		MaxPower:  p.MaxPower,
		Transform: p.Transform,
	}
	if len(p.Range) == 2 {
		req.Range = [2]float64{p.Range[0], p.Range[1]}
	}
	return req
}

// scanCard is the YAML form of a morph run. Zero values fall back to the
// engine defaults; explicit command line flags override card values.
type scanCard struct {
	MaxOverallPower []int   `yaml:"max_overall_power"`
	IncludeExisting bool    `yaml:"include_existing"`
	NTrials         int     `yaml:"n_trials"`
	NTestThetas     int     `yaml:"n_test_thetas"`
	NBases          int     `yaml:"n_bases"`
	Seed            int64   `yaml:"seed"`
	Workers         int     `yaml:"workers"`
	ConditionLimit  float64 `yaml:"condition_limit"`
}

func loadScanCard(path string) (scanCard, error) {
	var card scanCard
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return scanCard{}, fmt.Errorf("read scan card: %w", err)
		}
		if err := yaml.Unmarshal(data, &card); err != nil {
			return scanCard{}, fmt.Errorf("parse scan card: %w", err)
		}
	}
	return card, nil
}

func (c scanCard) request() proteus.MorphRequest {
	return proteus.MorphRequest{
		MaxOverallPower: c.MaxOverallPower,
		IncludeExisting: c.IncludeExisting,
		NTrials:         c.NTrials,
		NTestThetas:     c.NTestThetas,
		NBases:          c.NBases,
		Seed:            c.Seed,
		Workers:         c.Workers,
		ConditionLimit:  c.ConditionLimit,
	}
}

func storeKindDefault() string {
	if v := os.Getenv("PROTEUS_STORE"); v != "" {
		return v
	}
	return storage.DefaultStoreKind()
}

func storePathDefault() string {
	if v := os.Getenv("PROTEUS_STORE_PATH"); v != "" {
		return v
	}
	return "proteus.json"
}

func scansDirDefault() string {
	if v := os.Getenv("PROTEUS_SCANS_DIR"); v != "" {
		return v
	}
	return "scans"
}

func exportsDirDefault() string {
	if v := os.Getenv("PROTEUS_EXPORTS_DIR"); v != "" {
		return v
	}
	return "exports"
}

func seedDefault() int64 {
	if v := os.Getenv("PROTEUS_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
