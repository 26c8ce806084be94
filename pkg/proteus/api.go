// Package proteus is the embedding API over the morphing engine: a Client
// owning the persistent setup, the basis scans with their artifacts, and the
// simulator card and run preparation built on top of it.
package proteus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/combin"

	"proteus/internal/cards"
	"proteus/internal/madgraph"
	"proteus/internal/model"
	"proteus/internal/morph"
	"proteus/internal/setup"
	"proteus/internal/stats"
	"proteus/internal/storage"
)

const (
	defaultScansDir       = "scans"
	defaultExportsDir     = "exports"
	defaultStorePath      = "proteus.json"
	defaultWorkers        = 4
	defaultGridResolution = 25
)

type Options struct {
	StoreKind  string
	StorePath  string
	ScansDir   string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	setup *setup.Setup

	scansDir   string
	exportsDir string
}

type ParameterRequest struct {
	Name      string
	LHABlock  string
	LHAID     int
	MaxPower  []int
	Range     [2]float64
	Transform string
}

type BenchmarkRequest struct {
	Name       string
	Values     map[string]float64
	SetDefault bool
}

type StatusSummary struct {
	Parameters       []model.Parameter
	Benchmarks       []model.Benchmark
	DefaultBenchmark string
	HasMorphing      bool
	MorphingValid    bool
	Components       int
	NBases           int
}

type MorphRequest struct {
	MaxOverallPower []int
	IncludeExisting bool
	NTrials         int
	NTestThetas     int
	NBases          int
	Seed            int64
	Workers         int
	ConditionLimit  float64
}

type MorphSummary struct {
	ScanID          string
	ArtifactsDir    string
	Benchmarks      []string
	Components      int
	BestScore       float64
	BestCondition   float64
	BestTrial       int
	Trials          int
	DegenerateCount int
	ScoreMean       float64
	ScoreStdDev     float64
	Elapsed         time.Duration
}

type WeightsRequest struct {
	Theta map[string]float64
}

// GridRequest samples reconstruction weights on a regular grid spanning every
// parameter's range.
type GridRequest struct {
	Resolution int
	OutPath    string
}

type GridSummary struct {
	Path       string
	Rows       int
	Benchmarks []string
}

type CardsRequest struct {
	ParamTemplate    string
	ReweightTemplate string
	OutputDir        string
	SampleBenchmark  string
}

type CardsSummary struct {
	ParamCard       string
	ReweightCard    string
	SampleBenchmark string
}

type PrepareRequest struct {
	MGDirectory      string
	ProcessDirectory string
	ProcCard         string
	ParamTemplate    string
	ReweightTemplate string
	RunCards         []string
	Pythia8Card      string
	SampleBenchmarks []string
	IsBackground     bool
	LogDirectory     string
	TempDirectory    string
	InitialCommand   string
	Execute          bool
}

type PrepareSummary struct {
	Runs         int
	Scripts      []string
	MasterScript string
	ProcessDir   string
}

type ScansRequest struct {
	Limit int
}

type ScanItem struct {
	ScanID          string
	CreatedAtUTC    string
	Components      int
	NTrials         int
	NBases          int
	Seed            int64
	BestScore       float64
	BestCondition   float64
	DegenerateCount int
}

type ExportRequest struct {
	ScanID string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	ScanID    string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	storePath := opts.StorePath
	if storePath == "" {
		storePath = defaultStorePath
	}
	scansDir := opts.ScansDir
	if scansDir == "" {
		scansDir = defaultScansDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, storePath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		scansDir:   scansDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureSetup(ctx)
	return err
}

func (c *Client) AddParameter(ctx context.Context, req ParameterRequest) error {
	s, err := c.ensureSetup(ctx)
	if err != nil {
		return err
	}
	if err := s.AddParameter(model.Parameter{
		Name:      req.Name,
		LHABlock:  req.LHABlock,
		LHAID:     req.LHAID,
		MaxPower:  req.MaxPower,
		Range:     req.Range,
		Transform: req.Transform,
	}); err != nil {
		return err
	}
	return s.Save(ctx, c.store)
}

func (c *Client) AddBenchmark(ctx context.Context, req BenchmarkRequest) error {
	s, err := c.ensureSetup(ctx)
	if err != nil {
		return err
	}
	if err := s.AddBenchmark(model.Benchmark{Name: req.Name, Values: req.Values}); err != nil {
		return err
	}
	if req.SetDefault {
		if err := s.SetDefaultBenchmark(req.Name); err != nil {
			return err
		}
	}
	return s.Save(ctx, c.store)
}

func (c *Client) SetDefaultBenchmark(ctx context.Context, name string) error {
	s, err := c.ensureSetup(ctx)
	if err != nil {
		return err
	}
	if err := s.SetDefaultBenchmark(name); err != nil {
		return err
	}
	return s.Save(ctx, c.store)
}

func (c *Client) Status(ctx context.Context) (StatusSummary, error) {
	s, err := c.ensureSetup(ctx)
	if err != nil {
		return StatusSummary{}, err
	}

	summary := StatusSummary{
		Parameters:       s.Parameters(),
		Benchmarks:       s.Benchmarks(),
		DefaultBenchmark: s.DefaultBenchmark(),
	}
	if morphing, ok := s.Morphing(); ok {
		summary.HasMorphing = true
		summary.MorphingValid = s.MorphingValid()
		summary.Components = len(morphing.Components)
		summary.NBases = morphing.NBases
	}
	return summary, nil
}

// Morph runs one basis scan: enumerate components, optimize the basis, adopt
// it as the benchmark list, persist the new setup and leave a scan record with
// its artifact directory behind.
func (c *Client) Morph(ctx context.Context, req MorphRequest) (MorphSummary, error) {
	if len(req.MaxOverallPower) == 0 {
		req.MaxOverallPower = []int{setup.DefaultOverallPower}
	}
	if req.NTrials <= 0 {
		req.NTrials = setup.DefaultNTrials
	}
	if req.NTestThetas <= 0 {
		req.NTestThetas = setup.DefaultNTestThetas
	}
	if req.NBases <= 0 {
		req.NBases = 1
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}

	s, err := c.ensureSetup(ctx)
	if err != nil {
		return MorphSummary{}, err
	}

	result, err := s.SetMorphing(ctx, setup.MorphingConfig{
		MaxOverallPower: req.MaxOverallPower,
		IncludeExisting: req.IncludeExisting,
		NTrials:         req.NTrials,
		NTestThetas:     req.NTestThetas,
		NBases:          req.NBases,
		Seed:            req.Seed,
		Workers:         req.Workers,
		ConditionLimit:  req.ConditionLimit,
	})
	if err != nil {
		return MorphSummary{}, err
	}
	if err := s.Save(ctx, c.store); err != nil {
		return MorphSummary{}, err
	}

	morphing, ok := s.Morphing()
	if !ok {
		return MorphSummary{}, errors.New("morphing record missing after scan")
	}

	now := time.Now().UTC()
	scanID := uuid.NewString()
	if err := c.store.SaveScan(ctx, model.ScanRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:              scanID,
		Components:      len(morphing.Components),
		NTrials:         req.NTrials,
		NTestThetas:     req.NTestThetas,
		NBases:          req.NBases,
		Seed:            req.Seed,
		Workers:         req.Workers,
		BestScore:       result.BestScore,
		BestCondition:   result.BestCondition,
		DegenerateCount: result.DegenerateCount,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}); err != nil {
		return MorphSummary{}, err
	}

	samples, err := c.basisWeightSamples(s)
	if err != nil {
		return MorphSummary{}, err
	}
	scanDir, err := stats.WriteScanArtifacts(c.scansDir, stats.ScanArtifacts{
		Config: stats.ScanConfig{
			ScanID:          scanID,
			MaxOverallPower: req.MaxOverallPower,
			NTrials:         req.NTrials,
			NTestThetas:     req.NTestThetas,
			NBases:          req.NBases,
			Seed:            req.Seed,
			Workers:         req.Workers,
			ConditionLimit:  req.ConditionLimit,
			IncludeExisting: req.IncludeExisting,
		},
		Diagnostics: stats.ScanDiagnostics{
			Components:      len(morphing.Components),
			Trials:          result.Trials,
			DegenerateCount: result.DegenerateCount,
			BestTrial:       result.BestTrial,
			BestScore:       result.BestScore,
			BestCondition:   result.BestCondition,
			ScoreMean:       result.ScoreMean,
			ScoreStdDev:     result.ScoreStdDev,
			ElapsedMS:       result.Elapsed.Milliseconds(),
		},
		Basis: stats.BasisArtifact{
			Parameters: s.Parameters(),
			Basis:      s.Benchmarks(),
			Matrix:     morphing.Matrix,
			NBases:     morphing.NBases,
		},
		WeightSamples: samples,
	})
	if err != nil {
		return MorphSummary{}, err
	}
	if err := stats.AppendScanIndex(c.scansDir, stats.ScanIndexEntry{
		ScanID:        scanID,
		Components:    len(morphing.Components),
		NTrials:       req.NTrials,
		NBases:        req.NBases,
		Seed:          req.Seed,
		BestScore:     result.BestScore,
		BestCondition: result.BestCondition,
		CreatedAtUTC:  now.Format(time.RFC3339Nano),
	}); err != nil {
		return MorphSummary{}, err
	}

	names := make([]string, 0, len(morphing.Basis))
	for _, b := range morphing.Basis {
		names = append(names, b.Name)
	}
	return MorphSummary{
		ScanID:          scanID,
		ArtifactsDir:    filepath.Clean(scanDir),
		Benchmarks:      names,
		Components:      len(morphing.Components),
		BestScore:       result.BestScore,
		BestCondition:   result.BestCondition,
		BestTrial:       result.BestTrial,
		Trials:          result.Trials,
		DegenerateCount: result.DegenerateCount,
		ScoreMean:       result.ScoreMean,
		ScoreStdDev:     result.ScoreStdDev,
		Elapsed:         result.Elapsed,
	}, nil
}

func (c *Client) Weights(ctx context.Context, req WeightsRequest) ([]morph.BenchmarkWeight, error) {
	if len(req.Theta) == 0 {
		return nil, errors.New("a parameter point is required")
	}
	s, err := c.ensureSetup(ctx)
	if err != nil {
		return nil, err
	}
	theta, err := s.ThetaVector(req.Theta)
	if err != nil {
		return nil, err
	}
	return s.NamedWeights(theta)
}

// Grid evaluates the morphing weights on a regular grid over the parameter
// ranges and writes one CSV row per point. Meant for low-dimensional setups;
// the row count grows as resolution^parameters.
func (c *Client) Grid(ctx context.Context, req GridRequest) (GridSummary, error) {
	if req.Resolution == 0 {
		req.Resolution = defaultGridResolution
	}
	if req.Resolution < 2 {
		return GridSummary{}, errors.New("grid resolution must be at least 2")
	}
	if req.OutPath == "" {
		req.OutPath = "weight_grid.csv"
	}

	s, err := c.ensureSetup(ctx)
	if err != nil {
		return GridSummary{}, err
	}
	morphing, ok := s.Morphing()
	if !ok {
		return GridSummary{}, errors.New("no morphing available, run a basis scan first")
	}
	params := s.Parameters()
	if math.Pow(float64(req.Resolution), float64(len(params))) > 1e6 {
		return GridSummary{}, fmt.Errorf("grid of %d^%d points is too large", req.Resolution, len(params))
	}

	paramNames := make([]string, len(params))
	lengths := make([]int, len(params))
	for i, p := range params {
		paramNames[i] = p.Name
		lengths[i] = req.Resolution
	}
	benchmarkNames := make([]string, 0, len(morphing.Basis))
	for _, b := range morphing.Basis {
		benchmarkNames = append(benchmarkNames, b.Name)
	}

	gen := combin.NewCartesianGenerator(lengths)
	idx := make([]int, len(params))
	var rows []stats.WeightGridRow
	for gen.Next() {
		gen.Product(idx)
		theta := make([]float64, len(params))
		for p, param := range params {
			lo, hi := param.Range[0], param.Range[1]
			theta[p] = lo + (hi-lo)*float64(idx[p])/float64(req.Resolution-1)
		}
		weights, err := s.NamedWeights(theta)
		if err != nil {
			return GridSummary{}, err
		}
		values := make([]float64, len(weights))
		sum := 0.0
		for i, w := range weights {
			values[i] = w.Weight
			sum += w.Weight
		}
		rows = append(rows, stats.WeightGridRow{Theta: theta, Weights: values, WeightSum: sum})
	}

	if err := stats.WriteWeightGrid(req.OutPath, paramNames, benchmarkNames, rows); err != nil {
		return GridSummary{}, err
	}
	c.logger.Info("wrote weight grid", "path", req.OutPath, "rows", len(rows), "benchmarks", len(benchmarkNames))
	return GridSummary{Path: req.OutPath, Rows: len(rows), Benchmarks: benchmarkNames}, nil
}

func (c *Client) Cards(ctx context.Context, req CardsRequest) (CardsSummary, error) {
	if req.ParamTemplate == "" {
		return CardsSummary{}, errors.New("param card template is required")
	}
	if req.ReweightTemplate == "" {
		return CardsSummary{}, errors.New("reweight card template is required")
	}
	if req.OutputDir == "" {
		req.OutputDir = "cards"
	}

	s, err := c.ensureSetup(ctx)
	if err != nil {
		return CardsSummary{}, err
	}
	benchmarks := s.Benchmarks()
	if len(benchmarks) == 0 {
		return CardsSummary{}, errors.New("at least one benchmark is required")
	}
	sample := req.SampleBenchmark
	if sample == "" {
		sample = s.DefaultBenchmark()
	}
	sampleBenchmark, ok := findBenchmark(benchmarks, sample)
	if !ok {
		return CardsSummary{}, fmt.Errorf("sample benchmark %s is not defined", sample)
	}

	if err := madgraph.CreateFolders(req.OutputDir); err != nil {
		return CardsSummary{}, err
	}
	paramPath := filepath.Join(req.OutputDir, "param_card.dat")
	reweightPath := filepath.Join(req.OutputDir, "reweight_card.dat")
	if err := cards.ExportParamCard(s.Parameters(), sampleBenchmark, req.ParamTemplate, paramPath); err != nil {
		return CardsSummary{}, err
	}
	if err := cards.ExportReweightCard(s.Parameters(), benchmarks, sample, req.ReweightTemplate, reweightPath); err != nil {
		return CardsSummary{}, err
	}
	c.logger.Info("exported simulator cards", "param_card", paramPath, "reweight_card", reweightPath, "sample_benchmark", sample)
	return CardsSummary{ParamCard: paramPath, ReweightCard: reweightPath, SampleBenchmark: sample}, nil
}

// Prepare lays out one event generation job per run card and sample benchmark
// combination. Without Execute the runs are only prepared: cards staged,
// scripts written and collected into a master script.
func (c *Client) Prepare(ctx context.Context, req PrepareRequest) (PrepareSummary, error) {
	if req.MGDirectory == "" {
		return PrepareSummary{}, errors.New("madgraph directory is required")
	}
	if req.ParamTemplate == "" {
		return PrepareSummary{}, errors.New("param card template is required")
	}
	if !req.IsBackground && req.ReweightTemplate == "" {
		return PrepareSummary{}, errors.New("reweight card template is required")
	}

	s, err := c.ensureSetup(ctx)
	if err != nil {
		return PrepareSummary{}, err
	}
	benchmarks := s.Benchmarks()
	if len(benchmarks) == 0 {
		return PrepareSummary{}, errors.New("at least one benchmark is required")
	}

	sampleNames := req.SampleBenchmarks
	if len(sampleNames) == 0 {
		for _, b := range benchmarks {
			sampleNames = append(sampleNames, b.Name)
		}
	}
	runCards := req.RunCards
	if len(runCards) == 0 {
		runCards = []string{""}
	}

	runner, err := madgraph.NewRunner(madgraph.Config{
		MGDirectory:      req.MGDirectory,
		ProcessDirectory: req.ProcessDirectory,
		TempDirectory:    req.TempDirectory,
		LogDirectory:     req.LogDirectory,
		InitialCommand:   req.InitialCommand,
	}, c.logger)
	if err != nil {
		return PrepareSummary{}, err
	}

	if req.ProcCard != "" {
		if _, err := runner.GenerateProcess(ctx, req.ProcCard, req.Execute); err != nil {
			return PrepareSummary{}, err
		}
	}
	if err := runner.EnsureLayout(); err != nil {
		return PrepareSummary{}, err
	}

	summary := PrepareSummary{ProcessDir: runner.ProcessDir()}
	var lines []string
	index := 0
	for _, runCard := range runCards {
		for _, sample := range sampleNames {
			sampleBenchmark, ok := findBenchmark(benchmarks, sample)
			if !ok {
				return PrepareSummary{}, fmt.Errorf("sample benchmark %s is not defined", sample)
			}
			if err := cards.ExportParamCard(s.Parameters(), sampleBenchmark, req.ParamTemplate, runner.ParamCardPath(index)); err != nil {
				return PrepareSummary{}, err
			}
			if !req.IsBackground {
				if err := cards.ExportReweightCard(s.Parameters(), benchmarks, sample, req.ReweightTemplate, runner.ReweightCardPath(index)); err != nil {
					return PrepareSummary{}, err
				}
			}

			run := madgraph.Run{
				Index:        index,
				RunCard:      runCard,
				Pythia8Card:  req.Pythia8Card,
				IsBackground: req.IsBackground,
			}
			if req.Execute {
				if err := runner.ExecuteRun(ctx, run); err != nil {
					return PrepareSummary{}, err
				}
			} else {
				line, err := runner.PrepareRun(run)
				if err != nil {
					return PrepareSummary{}, err
				}
				lines = append(lines, line)
				summary.Scripts = append(summary.Scripts, runner.ScriptPath(index))
			}
			index++
		}
	}
	summary.Runs = index

	if !req.Execute {
		master, err := runner.WriteMasterScript(lines)
		if err != nil {
			return PrepareSummary{}, err
		}
		summary.MasterScript = master
	}
	return summary, nil
}

func (c *Client) Scans(ctx context.Context, req ScansRequest) ([]ScanItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if _, err := c.ensureSetup(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListScans(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	out := make([]ScanItem, 0, len(records))
	for _, record := range records {
		out = append(out, ScanItem{
			ScanID:          record.ID,
			CreatedAtUTC:    record.CreatedAtUTC,
			Components:      record.Components,
			NTrials:         record.NTrials,
			NBases:          record.NBases,
			Seed:            record.Seed,
			BestScore:       record.BestScore,
			BestCondition:   record.BestCondition,
			DegenerateCount: record.DegenerateCount,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.ScanID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either scan id or latest")
	}
	if req.ScanID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires scan id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	scanID := req.ScanID
	if req.Latest {
		entries, err := stats.ListScanIndex(c.scansDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no scans available to export")
		}
		scanID = entries[0].ScanID
	}

	exportedDir, err := stats.ExportScanArtifacts(c.scansDir, scanID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{ScanID: scanID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) ensureSetup(ctx context.Context) (*setup.Setup, error) {
	if c.setup != nil {
		return c.setup, nil
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	s := setup.New(c.logger)
	if _, err := s.Load(ctx, c.store); err != nil {
		return nil, err
	}
	c.setup = s
	return c.setup, nil
}

// basisWeightSamples probes the fresh morphing at every basis point; each
// sample reconstructs one-hot weights with unit sum.
func (c *Client) basisWeightSamples(s *setup.Setup) ([]stats.WeightSample, error) {
	samples := make([]stats.WeightSample, 0, len(s.Benchmarks()))
	for _, b := range s.Benchmarks() {
		theta, err := s.ThetaVector(b.Values)
		if err != nil {
			return nil, err
		}
		weights, err := s.NamedWeights(theta)
		if err != nil {
			return nil, err
		}
		sum := 0.0
		for _, w := range weights {
			sum += w.Weight
		}
		samples = append(samples, stats.WeightSample{Theta: theta, Weights: weights, WeightSum: sum})
	}
	return samples, nil
}

func findBenchmark(benchmarks []model.Benchmark, name string) (model.Benchmark, bool) {
	for _, b := range benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return model.Benchmark{}, false
}
