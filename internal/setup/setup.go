// Package setup holds the live parameter registry: ordered parameters, named
// benchmarks and the morphing record derived from them. It orchestrates
// component enumeration and basis optimization and owns the naming and
// validation rules for everything entering the registry.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"proteus/internal/model"
	"proteus/internal/morph"
	"proteus/internal/storage"
	"proteus/internal/transform"
)

const (
	DefaultMaxPower     = 2
	DefaultOverallPower = 4
	DefaultNTrials      = 100
	DefaultNTestThetas  = 100
)

// ErrStaleMorphing reports that the stored morphing record was computed
// against an earlier parameter or benchmark state. Rerunning the morphing
// refreshes it.
var ErrStaleMorphing = errors.New("morphing setup is stale")

var nameNormalizer = strings.NewReplacer(" ", "_", "-", "_")

type Setup struct {
	logger *slog.Logger

	parameters       []model.Parameter
	benchmarks       []model.Benchmark
	defaultBenchmark string
	morphing         *model.Morphing
}

func New(logger *slog.Logger) *Setup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Setup{logger: logger}
}

// AddParameter validates and appends one parameter. An empty name defaults
// to parameter_<i>, spaces and hyphens normalize to underscores, an empty
// MaxPower defaults to a single budget of 2 and a zero Range defaults to
// [0, 1]. The transform expression is compiled eagerly.
func (s *Setup) AddParameter(p model.Parameter) error {
	if p.LHABlock == "" {
		return fmt.Errorf("lha block is required")
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("parameter_%d", len(s.parameters))
	}
	p.Name = nameNormalizer.Replace(p.Name)
	for _, existing := range s.parameters {
		if existing.Name == p.Name {
			return fmt.Errorf("parameter %s is already defined", p.Name)
		}
	}
	if len(p.MaxPower) == 0 {
		p.MaxPower = []int{DefaultMaxPower}
	}
	for c, power := range p.MaxPower {
		if power < 0 {
			return fmt.Errorf("max power must be >= 0 for parameter %s at configuration %d", p.Name, c)
		}
	}
	if p.Range == ([2]float64{}) {
		p.Range = [2]float64{0, 1}
	}
	if p.Range[0] > p.Range[1] {
		return fmt.Errorf("range is inverted for parameter %s: [%g, %g]", p.Name, p.Range[0], p.Range[1])
	}
	if _, err := transform.Compile(p.Transform); err != nil {
		return fmt.Errorf("parameter %s: %w", p.Name, err)
	}

	p.MaxPower = append([]int(nil), p.MaxPower...)
	s.parameters = append(s.parameters, p)
	s.logger.Info("added parameter", "name", p.Name, "block", p.LHABlock, "id", p.LHAID, "max_power", p.MaxPower, "range", p.Range)
	return nil
}

// SetParameters replaces the full parameter list. Benchmarks are cleared
// because their value assignments are keyed to the old registry.
func (s *Setup) SetParameters(params []model.Parameter) error {
	replacement := New(s.logger)
	for _, p := range params {
		if err := replacement.AddParameter(p); err != nil {
			return err
		}
	}
	s.parameters = replacement.parameters
	s.benchmarks = nil
	s.defaultBenchmark = ""
	return nil
}

// AddBenchmark validates and appends one benchmark. An empty name defaults
// to benchmark_<i> and normalizes like parameter names. The value map must
// assign every registered parameter and nothing else. The first benchmark
// added becomes the default sampling benchmark.
func (s *Setup) AddBenchmark(b model.Benchmark) error {
	if b.Name == "" {
		b.Name = fmt.Sprintf("benchmark_%d", len(s.benchmarks))
	}
	b.Name = nameNormalizer.Replace(b.Name)
	for _, existing := range s.benchmarks {
		if existing.Name == b.Name {
			return fmt.Errorf("benchmark %s is already defined", b.Name)
		}
	}
	for _, p := range s.parameters {
		if _, ok := b.Values[p.Name]; !ok {
			return fmt.Errorf("benchmark %s is missing a value for parameter %s", b.Name, p.Name)
		}
	}
	for name := range b.Values {
		if !s.hasParameter(name) {
			return fmt.Errorf("benchmark %s references unknown parameter %s", b.Name, name)
		}
	}

	values := make(map[string]float64, len(b.Values))
	for name, value := range b.Values {
		values[name] = value
	}
	b.Values = values
	s.benchmarks = append(s.benchmarks, b)
	if s.defaultBenchmark == "" {
		s.defaultBenchmark = b.Name
	}
	s.logger.Info("added benchmark", "benchmark", FormatBenchmark(s.parameters, b))
	return nil
}

// SetBenchmarks replaces the full benchmark list; the first entry becomes
// the default sampling benchmark.
func (s *Setup) SetBenchmarks(benchmarks []model.Benchmark) error {
	replacement := New(s.logger)
	replacement.parameters = s.parameters
	for _, b := range benchmarks {
		if err := replacement.AddBenchmark(b); err != nil {
			return err
		}
	}
	s.benchmarks = replacement.benchmarks
	s.defaultBenchmark = replacement.defaultBenchmark
	return nil
}

func (s *Setup) SetDefaultBenchmark(name string) error {
	name = nameNormalizer.Replace(name)
	for _, b := range s.benchmarks {
		if b.Name == name {
			s.defaultBenchmark = name
			return nil
		}
	}
	return fmt.Errorf("benchmark %s is not defined", name)
}

func (s *Setup) Parameters() []model.Parameter {
	out := make([]model.Parameter, len(s.parameters))
	copy(out, s.parameters)
	return out
}

func (s *Setup) Benchmarks() []model.Benchmark {
	return copyBenchmarks(s.benchmarks)
}

func (s *Setup) DefaultBenchmark() string {
	return s.defaultBenchmark
}

func (s *Setup) Morphing() (model.Morphing, bool) {
	if s.morphing == nil {
		return model.Morphing{}, false
	}
	return *s.morphing, true
}

// Components enumerates the monomials for the given overall budgets; an
// empty budget list defaults to a single budget of 4.
func (s *Setup) Components(overall []int) ([]model.Component, error) {
	if len(overall) == 0 {
		overall = []int{DefaultOverallPower}
	}
	return morph.FindComponents(s.parameters, overall)
}

type MorphingConfig struct {
	MaxOverallPower []int
	IncludeExisting bool
	NTrials         int
	NTestThetas     int
	NBases          int
	Seed            int64
	Workers         int
	ConditionLimit  float64
}

// SetMorphing enumerates components, searches for an optimal basis and
// adopts the winning basis as the new benchmark list. Existing benchmarks
// enter the basis as fixed points when IncludeExisting is set and keep their
// names; sampled points are named morphing_basis_vector_<i>. The resulting
// morphing record carries the fingerprint of the adopted state.
func (s *Setup) SetMorphing(ctx context.Context, cfg MorphingConfig) (morph.OptimizeResult, error) {
	if len(s.parameters) == 0 {
		return morph.OptimizeResult{}, fmt.Errorf("at least one parameter is required for morphing")
	}
	if len(cfg.MaxOverallPower) == 0 {
		cfg.MaxOverallPower = []int{DefaultOverallPower}
	}
	if cfg.NTrials == 0 {
		cfg.NTrials = DefaultNTrials
	}
	if cfg.NTestThetas == 0 {
		cfg.NTestThetas = DefaultNTestThetas
	}
	if cfg.NBases == 0 {
		cfg.NBases = 1
	}

	components, err := morph.FindComponents(s.parameters, cfg.MaxOverallPower)
	if err != nil {
		return morph.OptimizeResult{}, err
	}
	s.logger.Info("optimizing basis for morphing",
		"components", len(components),
		"trials", cfg.NTrials,
		"test_thetas", cfg.NTestThetas,
		"bases", cfg.NBases,
	)

	var fixed [][]float64
	var fixedNames []string
	if cfg.IncludeExisting {
		for _, b := range s.benchmarks {
			vector, err := s.benchmarkVector(b)
			if err != nil {
				return morph.OptimizeResult{}, err
			}
			fixed = append(fixed, vector)
			fixedNames = append(fixedNames, b.Name)
		}
	}

	ranges := make([][2]float64, len(s.parameters))
	for i, p := range s.parameters {
		ranges[i] = p.Range
	}

	result, err := morph.OptimizeBasis(ctx, morph.OptimizeConfig{
		Components:     components,
		Ranges:         ranges,
		Fixed:          fixed,
		NTrials:        cfg.NTrials,
		NTestThetas:    cfg.NTestThetas,
		NBases:         cfg.NBases,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
		ConditionLimit: cfg.ConditionLimit,
	})
	if err != nil {
		return morph.OptimizeResult{}, err
	}

	basis := s.nameBasis(result.Basis, fixedNames)
	s.benchmarks = basis
	if !s.hasBenchmark(s.defaultBenchmark) {
		s.defaultBenchmark = ""
		if len(basis) > 0 {
			s.defaultBenchmark = basis[0].Name
		}
	}

	s.morphing = &model.Morphing{
		Components:  components,
		Basis:       copyBenchmarks(basis),
		Matrix:      morph.MatrixRows(result.Matrix),
		NBases:      result.NBases,
		Fingerprint: Fingerprint(s.parameters, s.benchmarks),
	}
	s.logger.Info("found morphing basis",
		"benchmarks", len(basis),
		"score", result.BestScore,
		"condition", result.BestCondition,
		"degenerate_trials", result.DegenerateCount,
	)
	return result, nil
}

// nameBasis turns optimized basis vectors into named benchmarks. The first
// positions belong to the fixed benchmarks and keep their names; sampled
// positions take the next free morphing_basis_vector_<i> name.
func (s *Setup) nameBasis(points [][]float64, fixedNames []string) []model.Benchmark {
	used := make(map[string]struct{}, len(points))
	for _, name := range fixedNames {
		used[name] = struct{}{}
	}

	next := 0
	basis := make([]model.Benchmark, 0, len(points))
	for i, point := range points {
		var name string
		if i < len(fixedNames) {
			name = fixedNames[i]
		} else {
			for {
				name = fmt.Sprintf("morphing_basis_vector_%d", next)
				next++
				if _, taken := used[name]; !taken {
					break
				}
			}
			used[name] = struct{}{}
		}

		values := make(map[string]float64, len(s.parameters))
		for j, p := range s.parameters {
			values[p.Name] = point[j]
		}
		basis = append(basis, model.Benchmark{Name: name, Values: values})
	}
	return basis
}

// MorphingValid reports whether a morphing record exists and still matches
// the live parameter and benchmark state.
func (s *Setup) MorphingValid() bool {
	return s.morphing != nil && s.morphing.Fingerprint == Fingerprint(s.parameters, s.benchmarks)
}

// NamedWeights evaluates the morphing record at theta, given in declared
// parameter order, and returns one weight per basis benchmark.
func (s *Setup) NamedWeights(theta []float64) ([]morph.BenchmarkWeight, error) {
	if s.morphing == nil {
		return nil, fmt.Errorf("no morphing setup available")
	}
	if !s.MorphingValid() {
		return nil, fmt.Errorf("%w: parameters or benchmarks changed since the basis was optimized", ErrStaleMorphing)
	}
	return morph.NamedWeights(*s.morphing, theta)
}

// ThetaVector orders a named parameter point into declaration order.
func (s *Setup) ThetaVector(values map[string]float64) ([]float64, error) {
	theta := make([]float64, len(s.parameters))
	for i, p := range s.parameters {
		value, ok := values[p.Name]
		if !ok {
			return nil, fmt.Errorf("parameter point is missing a value for %s", p.Name)
		}
		theta[i] = value
	}
	for name := range values {
		if !s.hasParameter(name) {
			return nil, fmt.Errorf("parameter point references unknown parameter %s", name)
		}
	}
	return theta, nil
}

// Snapshot copies the live state into its persisted form.
func (s *Setup) Snapshot() model.Setup {
	snapshot := model.Setup{
		Parameters:       s.Parameters(),
		Benchmarks:       s.Benchmarks(),
		DefaultBenchmark: s.defaultBenchmark,
	}
	if s.morphing != nil {
		morphing := *s.morphing
		morphing.Components = append([]model.Component(nil), s.morphing.Components...)
		morphing.Basis = copyBenchmarks(s.morphing.Basis)
		morphing.Matrix = copyMatrix(s.morphing.Matrix)
		snapshot.Morphing = &morphing
	}
	return snapshot
}

// Restore replaces the live state with a persisted snapshot, re-running the
// registry validation on the way in.
func (s *Setup) Restore(snapshot model.Setup) error {
	replacement := New(s.logger)
	for _, p := range snapshot.Parameters {
		if err := replacement.AddParameter(p); err != nil {
			return err
		}
	}
	for _, b := range snapshot.Benchmarks {
		if err := replacement.AddBenchmark(b); err != nil {
			return err
		}
	}
	if snapshot.DefaultBenchmark != "" {
		if err := replacement.SetDefaultBenchmark(snapshot.DefaultBenchmark); err != nil {
			return err
		}
	}

	s.parameters = replacement.parameters
	s.benchmarks = replacement.benchmarks
	s.defaultBenchmark = replacement.defaultBenchmark
	s.morphing = nil
	if snapshot.Morphing != nil {
		morphing := *snapshot.Morphing
		s.morphing = &morphing
	}
	return nil
}

// Save persists the current state through the store, stamping the records
// with the current schema and codec versions.
func (s *Setup) Save(ctx context.Context, store storage.Store) error {
	snapshot := s.Snapshot()
	snapshot.VersionedRecord = model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
	if snapshot.Morphing != nil {
		snapshot.Morphing.VersionedRecord = snapshot.VersionedRecord
	}
	if err := store.SaveSetup(ctx, snapshot); err != nil {
		return err
	}
	s.logger.Info("saved setup", "parameters", len(snapshot.Parameters), "benchmarks", len(snapshot.Benchmarks), "morphing", snapshot.Morphing != nil)
	return nil
}

// Load restores state from the store. The boolean reports whether a setup
// was present.
func (s *Setup) Load(ctx context.Context, store storage.Store) (bool, error) {
	snapshot, ok, err := store.LoadSetup(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.Restore(snapshot); err != nil {
		return false, err
	}
	s.logger.Info("loaded setup", "parameters", len(s.parameters), "benchmarks", len(s.benchmarks), "morphing", s.morphing != nil)
	return true, nil
}

// FormatBenchmark renders a benchmark for logs and CLI output with values in
// declared parameter order.
func FormatBenchmark(params []model.Parameter, b model.Benchmark) string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	sb.WriteString(":")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s = %.4g", p.Name, b.Values[p.Name])
	}
	return sb.String()
}

func (s *Setup) hasParameter(name string) bool {
	for _, p := range s.parameters {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *Setup) hasBenchmark(name string) bool {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (s *Setup) benchmarkVector(b model.Benchmark) ([]float64, error) {
	vector := make([]float64, len(s.parameters))
	for i, p := range s.parameters {
		value, ok := b.Values[p.Name]
		if !ok {
			return nil, fmt.Errorf("benchmark %s is missing a value for parameter %s", b.Name, p.Name)
		}
		vector[i] = value
	}
	return vector, nil
}

func copyBenchmarks(benchmarks []model.Benchmark) []model.Benchmark {
	out := make([]model.Benchmark, len(benchmarks))
	for i, b := range benchmarks {
		values := make(map[string]float64, len(b.Values))
		for name, value := range b.Values {
			values[name] = value
		}
		out[i] = model.Benchmark{Name: b.Name, Values: values}
	}
	return out
}

func copyMatrix(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
