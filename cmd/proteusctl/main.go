package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"proteus/internal/setup"
	"proteus/internal/stats"
	"proteus/pkg/proteus"
)

func main() {
	_ = godotenv.Load(".env")
	configureLogging()
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configureLogging routes engine logs to stderr, keeping stdout for command
// output. Terminals get the text handler, pipes get JSON.
func configureLogging() {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv("PROTEUS_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "define":
		return runDefine(ctx, args[1:])
	case "status":
		return runStatus(ctx, args[1:])
	case "morph":
		return runMorph(ctx, args[1:])
	case "weights":
		return runWeights(ctx, args[1:])
	case "grid":
		return runGrid(ctx, args[1:])
	case "cards":
		return runCards(ctx, args[1:])
	case "prepare":
		return runPrepare(ctx, args[1:])
	case "scans":
		return runScans(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s path=%s\n", *storeKind, *storePath)
	return nil
}

func runDefine(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("define requires a subcommand: parameter|benchmark|card")
	}
	switch args[0] {
	case "parameter":
		return runDefineParameter(ctx, args[1:])
	case "benchmark":
		return runDefineBenchmark(ctx, args[1:])
	case "card":
		return runDefineCard(ctx, args[1:])
	default:
		return fmt.Errorf("unsupported define subcommand: %s", args[0])
	}
}

func runDefineParameter(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("define parameter", flag.ContinueOnError)
	name := fs.String("name", "", "parameter name (empty assigns parameter_<i>)")
	lhaBlock := fs.String("lha-block", "", "LHA block holding the parameter")
	lhaID := fs.Int("lha-id", 0, "LHA id inside the block")
	maxPower := fs.String("max-power", "", "comma separated max powers per operator configuration (default 2)")
	rangeSpec := fs.String("range", "", "sampling range as min,max (default 0,1)")
	transform := fs.String("transform", "", "optional value transform expression over theta")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	powers, err := parseIntList(*maxPower)
	if err != nil {
		return fmt.Errorf("invalid max-power: %w", err)
	}
	sampling, err := parseRange(*rangeSpec)
	if err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.AddParameter(ctx, proteus.ParameterRequest{
		Name:      *name,
		LHABlock:  *lhaBlock,
		LHAID:     *lhaID,
		MaxPower:  powers,
		Range:     sampling,
		Transform: *transform,
	}); err != nil {
		return err
	}
	fmt.Printf("defined parameter name=%s lha=%s:%d\n", *name, *lhaBlock, *lhaID)
	return nil
}

func runDefineBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("define benchmark", flag.ContinueOnError)
	name := fs.String("name", "", "benchmark name (empty assigns benchmark_<i>)")
	values := fs.String("values", "", "parameter values as name=value pairs, comma separated")
	setDefault := fs.Bool("default", false, "make this the default sampling benchmark")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	point, err := parseAssignments(*values)
	if err != nil {
		return fmt.Errorf("invalid values: %w", err)
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.AddBenchmark(ctx, proteus.BenchmarkRequest{
		Name:       *name,
		Values:     point,
		SetDefault: *setDefault,
	}); err != nil {
		return err
	}
	fmt.Printf("defined benchmark name=%s values=%d default=%t\n", *name, len(point), *setDefault)
	return nil
}

func runDefineCard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("define card", flag.ContinueOnError)
	path := fs.String("path", "", "setup card YAML path")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("setup card path is required")
	}

	card, err := loadSetupCard(*path)
	if err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, p := range card.Parameters {
		if err := client.AddParameter(ctx, p.request()); err != nil {
			return err
		}
	}
	for _, b := range card.Benchmarks {
		if err := client.AddBenchmark(ctx, proteus.BenchmarkRequest{Name: b.Name, Values: b.Values}); err != nil {
			return err
		}
	}
	if card.DefaultBenchmark != "" {
		if err := client.SetDefaultBenchmark(ctx, card.DefaultBenchmark); err != nil {
			return err
		}
	}
	fmt.Printf("defined parameters=%d benchmarks=%d\n", len(card.Parameters), len(card.Benchmarks))
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit status as JSON")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if len(status.Parameters) == 0 {
		fmt.Println("no parameters defined")
		return nil
	}
	for _, p := range status.Parameters {
		fmt.Printf("parameter name=%s lha=%s:%d max_power=%v range=[%g,%g] transform=%q\n",
			p.Name, p.LHABlock, p.LHAID, p.MaxPower, p.Range[0], p.Range[1], p.Transform)
	}
	for _, b := range status.Benchmarks {
		marker := ""
		if b.Name == status.DefaultBenchmark {
			marker = " (default)"
		}
		fmt.Printf("benchmark %s%s\n", setup.FormatBenchmark(status.Parameters, b), marker)
	}
	if status.HasMorphing {
		fmt.Printf("morphing components=%d bases=%d valid=%t\n", status.Components, status.NBases, status.MorphingValid)
	}
	return nil
}

func runMorph(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("morph", flag.ContinueOnError)
	cardPath := fs.String("card", "", "optional scan card YAML path")
	maxPower := fs.String("max-power", "", "comma separated overall power budgets (default 4)")
	includeExisting := fs.Bool("include-existing", false, "keep current benchmarks as fixed basis points")
	trials := fs.Int("trials", 100, "random candidate bases tried per basis")
	testThetas := fs.Int("test-thetas", 100, "validation points scored per candidate")
	bases := fs.Int("bases", 1, "stacked bases in the morphing matrix")
	seed := fs.Int64("seed", seedDefault(), "rng seed")
	workers := fs.Int("workers", 4, "worker count")
	conditionLimit := fs.Float64("condition-limit", 0, "condition number degeneracy limit (0 uses the engine default)")
	scansDir := fs.String("scans-dir", scansDirDefault(), "scan artifacts directory")
	jsonOut := fs.Bool("json", false, "emit scan summary as JSON")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	card, err := loadScanCard(*cardPath)
	if err != nil {
		return err
	}
	req := card.request()
	if *cardPath == "" {
		powers, err := parseIntList(*maxPower)
		if err != nil {
			return fmt.Errorf("invalid max-power: %w", err)
		}
		req = proteus.MorphRequest{
			MaxOverallPower: powers,
			IncludeExisting: *includeExisting,
			NTrials:         *trials,
			NTestThetas:     *testThetas,
			NBases:          *bases,
			Seed:            *seed,
			Workers:         *workers,
			ConditionLimit:  *conditionLimit,
		}
	} else {
		if setFlags["max-power"] {
			powers, err := parseIntList(*maxPower)
			if err != nil {
				return fmt.Errorf("invalid max-power: %w", err)
			}
			req.MaxOverallPower = powers
		}
		if setFlags["include-existing"] {
			req.IncludeExisting = *includeExisting
		}
		if setFlags["trials"] {
			req.NTrials = *trials
		}
		if setFlags["test-thetas"] {
			req.NTestThetas = *testThetas
		}
		if setFlags["bases"] {
			req.NBases = *bases
		}
		if setFlags["seed"] {
			req.Seed = *seed
		}
		if setFlags["workers"] {
			req.Workers = *workers
		}
		if setFlags["condition-limit"] {
			req.ConditionLimit = *conditionLimit
		}
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
		ScansDir:  *scansDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Morph(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("scan completed scan_id=%s components=%d benchmarks=%d trials=%s degenerate_trials=%d elapsed=%s\n",
		summary.ScanID,
		summary.Components,
		len(summary.Benchmarks),
		humanize.Comma(int64(summary.Trials)),
		summary.DegenerateCount,
		summary.Elapsed.Round(time.Millisecond),
	)
	fmt.Printf("best_trial=%d best_score=%.6g best_condition=%.6g score_mean=%.6g score_stddev=%.6g\n",
		summary.BestTrial, summary.BestScore, summary.BestCondition, summary.ScoreMean, summary.ScoreStdDev)
	for _, name := range summary.Benchmarks {
		fmt.Printf("basis benchmark=%s\n", name)
	}
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runWeights(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weights", flag.ContinueOnError)
	point := fs.String("point", "", "parameter point as name=value pairs, comma separated")
	jsonOut := fs.Bool("json", false, "emit weights as JSON")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values, err := parseAssignments(*point)
	if err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	weights, err := client.Weights(ctx, proteus.WeightsRequest{Theta: values})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(weights)
	}

	sum := 0.0
	for _, w := range weights {
		fmt.Printf("benchmark=%s weight=%+.6f\n", w.Benchmark, w.Weight)
		sum += w.Weight
	}
	fmt.Printf("weight_sum=%.6f\n", sum)
	return nil
}

func runGrid(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	resolution := fs.Int("resolution", 25, "grid points per parameter axis")
	out := fs.String("out", "weight_grid.csv", "output CSV path")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Grid(ctx, proteus.GridRequest{Resolution: *resolution, OutPath: *out})
	if err != nil {
		return err
	}
	fmt.Printf("wrote weight grid path=%s rows=%s benchmarks=%d\n",
		summary.Path, humanize.Comma(int64(summary.Rows)), len(summary.Benchmarks))
	return nil
}

func runCards(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cards", flag.ContinueOnError)
	paramTemplate := fs.String("param-template", "", "param card template path")
	reweightTemplate := fs.String("reweight-template", "", "reweight card template path")
	outDir := fs.String("out-dir", "cards", "output directory for exported cards")
	sample := fs.String("sample-benchmark", "", "benchmark to generate events at (default: setup default)")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Cards(ctx, proteus.CardsRequest{
		ParamTemplate:    *paramTemplate,
		ReweightTemplate: *reweightTemplate,
		OutputDir:        *outDir,
		SampleBenchmark:  *sample,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported cards param_card=%s reweight_card=%s sample_benchmark=%s\n",
		summary.ParamCard, summary.ReweightCard, summary.SampleBenchmark)
	return nil
}

func runPrepare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ContinueOnError)
	mgDir := fs.String("mg-dir", "", "MadGraph installation directory")
	procDir := fs.String("proc-dir", "", "process output directory (default ./MG_process)")
	procCard := fs.String("proc-card", "", "optional process card to generate the process from")
	paramTemplate := fs.String("param-template", "", "param card template path")
	reweightTemplate := fs.String("reweight-template", "", "reweight card template path")
	runCards := fs.String("run-cards", "", "comma separated run card paths (empty uses process defaults)")
	pythia8Card := fs.String("pythia8-card", "", "optional Pythia8 card path")
	sampleBenchmarks := fs.String("sample-benchmarks", "", "comma separated sample benchmarks (empty uses all)")
	background := fs.Bool("background", false, "prepare background-only runs without reweighting")
	logDir := fs.String("log-dir", "", "run log directory (default ./logs)")
	tempDir := fs.String("temp-dir", "", "scratch directory for generated command files")
	initialCommand := fs.String("initial-command", "", "shell command to run before MadGraph, e.g. environment setup")
	execute := fs.Bool("execute", false, "execute the runs now instead of writing scripts")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Prepare(ctx, proteus.PrepareRequest{
		MGDirectory:      *mgDir,
		ProcessDirectory: *procDir,
		ProcCard:         *procCard,
		ParamTemplate:    *paramTemplate,
		ReweightTemplate: *reweightTemplate,
		RunCards:         parsePathList(*runCards),
		Pythia8Card:      *pythia8Card,
		SampleBenchmarks: parsePathList(*sampleBenchmarks),
		IsBackground:     *background,
		LogDirectory:     *logDir,
		TempDirectory:    *tempDir,
		InitialCommand:   *initialCommand,
		Execute:          *execute,
	})
	if err != nil {
		return err
	}
	if *execute {
		fmt.Printf("executed runs=%d process_dir=%s\n", summary.Runs, summary.ProcessDir)
		return nil
	}

	fmt.Printf("prepared runs=%d process_dir=%s\n", summary.Runs, summary.ProcessDir)
	for _, script := range summary.Scripts {
		fmt.Printf("run script=%s\n", script)
	}
	fmt.Printf("master_script=%s\n", summary.MasterScript)
	return nil
}

func runScans(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scans", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max scans to list")
	jsonOut := fs.Bool("json", false, "emit scans list as JSON")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Scans(ctx, proteus.ScansRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no scans found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, item := range items {
		created := item.CreatedAtUTC
		if at, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC); err == nil {
			created = humanize.Time(at)
		}
		fmt.Printf("scan_id=%s created=%s components=%d trials=%s bases=%d seed=%d best_score=%.6g best_condition=%.6g degenerate_trials=%d\n",
			item.ScanID,
			created,
			item.Components,
			humanize.Comma(int64(item.NTrials)),
			item.NBases,
			item.Seed,
			item.BestScore,
			item.BestCondition,
			item.DegenerateCount,
		)
	}
	return nil
}

func runReport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	scansDir := fs.String("scans-dir", scansDirDefault(), "scan artifacts directory")
	jsonOut := fs.Bool("json", false, "emit report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := stats.BuildScanReport(*scansDir)
	if err != nil {
		return err
	}
	if report.TotalScans == 0 {
		fmt.Println("no scans found")
		return nil
	}
	path, err := stats.WriteScanReport(*scansDir, report)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("report scans=%d path=%s\n", report.TotalScans, path)
	for _, trend := range report.Trends {
		fmt.Printf("trend components=%d scans=%d mean_best_score=%.6g min_best_score=%.6g best_scan_id=%s degenerate_rate=%.3f\n",
			trend.Components, len(trend.ScanIDs), trend.MeanBestScore, trend.MinBestScore, trend.BestScanID, trend.DegenerateRate)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	scanID := fs.String("scan-id", "", "scan id")
	latest := fs.Bool("latest", false, "export the most recent scan from the scan index")
	outDir := fs.String("out-dir", exportsDirDefault(), "export output directory")
	scansDir := fs.String("scans-dir", scansDirDefault(), "scan artifacts directory")
	storeKind := fs.String("store", storeKindDefault(), "store backend: memory|file|sqlite")
	storePath := fs.String("store-path", storePathDefault(), "store file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scanID != "" && *latest {
		return errors.New("use either --scan-id or --latest, not both")
	}
	if *scanID == "" && !*latest {
		return errors.New("export requires --scan-id or --latest")
	}

	client, err := proteus.New(proteus.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
		ScansDir:  *scansDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, proteus.ExportRequest{
		ScanID: *scanID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported scan_id=%s dir=%s\n", summary.ScanID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: proteusctl <init|define|status|morph|weights|grid|cards|prepare|scans|report|export> [flags]", msg)
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseRange(s string) ([2]float64, error) {
	if strings.TrimSpace(s) == "" {
		return [2]float64{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, fmt.Errorf("range needs exactly two values, got %q", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid range bound %q", parts[0])
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid range bound %q", parts[1])
	}
	return [2]float64{lo, hi}, nil
}

func parseAssignments(s string) (map[string]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("at least one name=value pair is required")
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q, want name=value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q", part)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func parsePathList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
