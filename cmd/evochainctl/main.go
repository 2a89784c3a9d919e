package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"evochain/internal/metrics"
	"evochain/internal/model"
	"evochain/internal/storage"
	evoapi "evochain/pkg/evochain"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evochain.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "summaries":
		return runSummaries(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
	exportsDir   *string
	logLevel     *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", defaultDBPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory"),
		exportsDir:   fs.String("exports-dir", defaultExportsDir, "export destination directory"),
		logLevel:     fs.String("log-level", "warn", "log level: debug|info|warn|error"),
	}
}

func (f clientFlags) client() (*evoapi.Client, error) {
	logger, err := newLogger(*f.logLevel)
	if err != nil {
		return nil, err
	}
	return evoapi.New(evoapi.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   *f.exportsDir,
		Logger:       logger,
	})
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := cf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *cf.storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := cf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *cf.storeKind)
	return nil
}

type runFlags struct {
	fs          *flag.FlagSet
	client      clientFlags
	config      *string
	metricsAddr *string
	genes       geneFlags
	values      map[string]func() any
}

func addRunFlags(fs *flag.FlagSet) *runFlags {
	f := &runFlags{
		fs:          fs,
		client:      addClientFlags(fs),
		config:      fs.String("config", "", "optional run config JSON path"),
		metricsAddr: fs.String("metrics-addr", "", "serve prometheus metrics on this address while running"),
	}
	fs.Var(&f.genes, "gene", "gene as name:kind:min:max with kind int|float|char|bool (repeatable)")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	expr := fs.String("expr", "", "objective expression over gene names and x0..xn")
	cmd := fs.String("cmd", "", "objective command line; {x0}, {name} and {id} are expanded")
	feasibility := fs.String("feasibility", "", "feasibility expression (optional)")
	pop := fs.Int("pop", 100, "population size")
	parents := fs.Int("parents", 0, "parents per generation (0 derives from population and recombination)")
	selection := fs.String("selection", "roulette", "parent selection: roulette|sus")
	survivors := fs.String("survivors", "generational", "survivor selection: generational|roulette|sus")
	mutation := fs.String("mutation", "gaussian", "mutation: gaussian|reset|none")
	sigma := fs.Float64("sigma", 0.1, "gaussian mutation standard deviation")
	resetRate := fs.Float64("reset-rate", 0.1, "per gene redraw probability of reset mutation")
	mutationProb := fs.Float64("mutation-prob", 0.5, "probability of mutating an offspring")
	recombination := fs.String("recombination", "arithmetic", "recombination: arithmetic|uniform|none")
	recombinationProb := fs.Float64("recombination-prob", 1.0, "probability of recombining a pair")
	gens := fs.Int("gens", 100, "maximum generation count")
	plateauWindow := fs.Int("plateau-window", 0, "stop on a best fitness plateau over this many generations (0 disables)")
	plateauFrac := fs.Float64("plateau-frac", 0.01, "relative improvement treated as a plateau")
	seed := fs.Uint64("seed", 1, "rng seed (0 picks one)")
	workers := fs.Int("workers", 0, "fitness worker count (0 uses all CPUs)")
	top := fs.Int("top", 5, "top genotypes to keep")
	individuals := fs.Bool("individuals", false, "write individuals.csv with every evaluated member")
	f.values = map[string]func() any{
		"gene":               func() any { return f.genes },
		"run-id":             func() any { return *runID },
		"expr":               func() any { return *expr },
		"cmd":                func() any { return *cmd },
		"feasibility":        func() any { return *feasibility },
		"pop":                func() any { return *pop },
		"parents":            func() any { return *parents },
		"selection":          func() any { return *selection },
		"survivors":          func() any { return *survivors },
		"mutation":           func() any { return *mutation },
		"sigma":              func() any { return *sigma },
		"reset-rate":         func() any { return *resetRate },
		"mutation-prob":      func() any { return *mutationProb },
		"recombination":      func() any { return *recombination },
		"recombination-prob": func() any { return *recombinationProb },
		"gens":               func() any { return *gens },
		"plateau-window":     func() any { return *plateauWindow },
		"plateau-frac":       func() any { return *plateauFrac },
		"seed":               func() any { return *seed },
		"workers":            func() any { return *workers },
		"top":                func() any { return *top },
		"individuals":        func() any { return *individuals },
	}
	return f
}

// request merges the config file with flags. Without a config file every
// non-empty flag applies; with one, only flags set on the command line
// override it.
func (f *runFlags) request() (evoapi.RunRequest, error) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})
	if set["expr"] && set["cmd"] {
		return evoapi.RunRequest{}, errors.New("use either -expr or -cmd, not both")
	}
	req, err := loadOrDefaultRunRequest(*f.config)
	if err != nil {
		return evoapi.RunRequest{}, err
	}
	if *f.config == "" {
		f.fs.VisitAll(func(fl *flag.Flag) {
			if fl.Value.String() != "" {
				set[fl.Name] = true
			}
		})
	}
	flagValue := make(map[string]any, len(f.values))
	for name, value := range f.values {
		flagValue[name] = value()
	}
	if err := overrideFromFlags(&req, set, flagValue); err != nil {
		return evoapi.RunRequest{}, err
	}
	return req, nil
}

// serveMetrics starts a metrics endpoint when addr is set. The returned
// stop function is always safe to call.
func serveMetrics(addr string, collector *metrics.Collector) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.Serve(ln)
	}()
	fmt.Printf("metrics_addr=%s\n", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	rf := addRunFlags(fs)
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := rf.request()
	if err != nil {
		return err
	}

	collector := metrics.New("evochain")
	if *rf.metricsAddr != "" {
		req.Metrics = collector
	}
	stopMetrics, err := serveMetrics(*rf.metricsAddr, collector)
	if err != nil {
		return err
	}
	defer stopMetrics()

	client, err := rf.client.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(runSummaryJSON{
			RunID:            summary.RunID,
			ArtifactsDir:     summary.ArtifactsDir,
			BestByGeneration: model.Fitnesses(summary.BestByGeneration),
			FinalBestFitness: model.Fitness(summary.FinalBestFitness),
			BestGenotype:     summary.BestGenotype,
			Generations:      summary.Generations,
			Evaluations:      summary.Evaluations,
			StopReason:       summary.StopReason,
		})
	}
	fmt.Printf("run completed run_id=%s generations=%d evaluations=%d stop_reason=%s\n",
		summary.RunID, summary.Generations, summary.Evaluations, summary.StopReason)
	for i, best := range summary.BestByGeneration {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	fmt.Printf("final_best_fitness=%.6f\n", summary.FinalBestFitness)
	fmt.Printf("best_genotype=%s\n", summary.BestGenotype)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	rf := addRunFlags(fs)
	runs := fs.Int("runs", 5, "number of repeated runs")
	goal := fs.String("goal", "", "final best fitness counted as success (optional)")
	outDir := fs.String("out", "", "benchmark report directory (default <artifacts-dir>/benchmarks)")
	jsonOut := fs.Bool("json", false, "emit benchmark report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}
	req, err := rf.request()
	if err != nil {
		return err
	}
	var goalValue *float64
	if strings.TrimSpace(*goal) != "" {
		v, err := strconv.ParseFloat(*goal, 64)
		if err != nil {
			return fmt.Errorf("parse goal: %w", err)
		}
		goalValue = &v
	}

	collector := metrics.New("evochain")
	if *rf.metricsAddr != "" {
		req.Metrics = collector
	}
	stopMetrics, err := serveMetrics(*rf.metricsAddr, collector)
	if err != nil {
		return err
	}
	defer stopMetrics()

	client, err := rf.client.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	bench, err := client.Benchmark(ctx, evoapi.BenchmarkRequest{
		Run:    req,
		Runs:   *runs,
		Goal:   goalValue,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(bench.Report)
	}
	for _, r := range bench.Runs {
		fmt.Printf("run_id=%s generations=%d final_best_fitness=%.6f\n", r.RunID, r.Generations, r.FinalBestFitness)
	}
	report := bench.Report
	fmt.Printf("benchmark_id=%s runs=%d calculable=%d best_mean=%.6f best_std=%.6f best_max=%.6f best_min=%.6f\n",
		bench.ID, len(report.RunIDs), report.Calculable, report.BestMean, report.BestStd, report.BestMax, report.BestMin)
	if report.Goal != nil {
		fmt.Printf("goal=%.6f success_runs=%d success_rate=%.4f\n", *report.Goal, report.SuccessRuns, report.SuccessRate)
	}
	fmt.Printf("benchmark_dir=%s\n", bench.Directory)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}
	client, err := cf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, evoapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID            string        `json:"run_id"`
			CreatedAtUTC     string        `json:"created_at_utc"`
			Objective        string        `json:"objective"`
			Seed             uint64        `json:"seed"`
			PopulationSize   int           `json:"population_size"`
			Generations      int           `json:"generations"`
			FinalBestFitness model.Fitness `json:"final_best_fitness"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem{
				RunID:            item.RunID,
				CreatedAtUTC:     item.CreatedAtUTC,
				Objective:        item.Objective,
				Seed:             item.Seed,
				PopulationSize:   item.Population,
				Generations:      item.Generations,
				FinalBestFitness: model.Fitness(item.FinalBestFitness),
			})
		}
		return writeJSON(out)
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s objective=%q seed=%d pop=%d gens=%d final_best_fitness=%.6f\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Objective,
			item.Seed,
			item.Population,
			item.Generations,
			item.FinalBestFitness,
		)
	}
	return nil
}

type queryFlags struct {
	client  clientFlags
	runID   *string
	latest  *bool
	limit   *int
	jsonOut *bool
}

func addQueryFlags(fs *flag.FlagSet, what string, limit int) queryFlags {
	return queryFlags{
		client:  addClientFlags(fs),
		runID:   fs.String("run-id", "", "run id"),
		latest:  fs.Bool("latest", false, "show "+what+" for the most recent run from run index"),
		limit:   fs.Int("limit", limit, "max entries to print (<=0 for all)"),
		jsonOut: fs.Bool("json", false, "emit "+what+" as JSON"),
	}
}

func (q queryFlags) check(command string) error {
	if *q.runID != "" && *q.latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *q.runID == "" && !*q.latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	if *q.limit < 0 {
		*q.limit = 0
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	q := addQueryFlags(fs, "fitness history", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := q.check("fitness"); err != nil {
		return err
	}
	client, err := q.client.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, evoapi.FitnessHistoryRequest{
		RunID:  *q.runID,
		Latest: *q.latest,
		Limit:  *q.limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(model.Fitnesses(history))
	}
	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	return nil
}

func runSummaries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summaries", flag.ContinueOnError)
	q := addQueryFlags(fs, "generation summaries", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := q.check("summaries"); err != nil {
		return err
	}
	client, err := q.client.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.Summaries(ctx, evoapi.SummariesRequest{
		RunID:  *q.runID,
		Latest: *q.latest,
		Limit:  *q.limit,
	})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no generation summaries")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(summaries)
	}
	for _, s := range summaries {
		fmt.Printf("generation=%d size=%d distinct=%d calculable=%d best=%.6f worst=%.6f mean=%.6f std_dev=%.6f\n",
			s.Generation, s.Size, s.Distinct, s.Calculable, s.Best, s.Worst, s.Mean, s.StdDev)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	q := addQueryFlags(fs, "top genotypes", 5)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := q.check("top"); err != nil {
		return err
	}
	client, err := q.client.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.TopGenotypes(ctx, evoapi.TopGenotypesRequest{
		RunID:  *q.runID,
		Latest: *q.latest,
		Limit:  *q.limit,
	})
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top genotypes")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(top)
	}
	for _, item := range top {
		fmt.Printf("rank=%d generation=%d fitness=%.6f values=%s\n",
			item.Rank, item.Generation, item.Fitness, strings.Join(item.Values, " "))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", "", "export destination (default -exports-dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}
	client, err := cf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, evoapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

type runSummaryJSON struct {
	RunID            string          `json:"run_id"`
	ArtifactsDir     string          `json:"artifacts_dir"`
	BestByGeneration []model.Fitness `json:"best_by_generation"`
	FinalBestFitness model.Fitness   `json:"final_best_fitness"`
	BestGenotype     string          `json:"best_genotype"`
	Generations      int             `json:"generations"`
	Evaluations      int             `json:"evaluations"`
	StopReason       string          `json:"stop_reason"`
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: evochainctl <init|reset|run|benchmark|runs|fitness|summaries|top|export> [flags]", msg)
}
