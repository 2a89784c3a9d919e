package evochain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
	"evochain/internal/metrics"
	"evochain/internal/model"
	"evochain/internal/objective"
	"evochain/internal/platform"
	"evochain/internal/stats"
	"evochain/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evochain.db"
	defaultRunsLimit    = 20
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store    storage.Store
	polis    *platform.Polis
	compiler *objective.Compiler
	logger   *slog.Logger

	artifactsDir string
	exportsDir   string
}

// CommandObjective scores genotypes by running an external program. See
// objective.Command for the argument templates.
type CommandObjective struct {
	Path         string
	Args         []string
	Incalculable string
	FailOnError  bool
}

type RunRequest struct {
	RunID string
	Genes []model.GeneSpec
	// Objective is an expression over the gene names and x0..xn. Exactly
	// one of Objective and Command is required.
	Objective   string
	Command     *CommandObjective
	Feasibility string

	Population int
	// Parents defaults to the number of parents whose offspring refill one
	// generation.
	Parents int
	// Selection is roulette or sus. Survivors is generational, roulette or
	// sus.
	Selection string
	Survivors string

	// Mutation is gaussian, reset or none. Sigma is the gaussian step,
	// ResetRate the per gene redraw chance of reset. A nil probability
	// takes the default; zero disables the operator.
	Mutation            string
	MutationSigma       float64
	ResetRate           float64
	MutationProbability *float64
	// Recombination is arithmetic, uniform or none.
	Recombination            string
	RecombinationProbability *float64

	Generations     int
	PlateauWindow   int
	PlateauFraction float64
	SampleAttempts  int

	Seed             uint64
	Workers          int
	TopK             int
	WriteIndividuals bool
	Metrics          *metrics.Collector
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	BestGenotype     string
	Generations      int
	Evaluations      int
	StopReason       string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Objective        string
	Seed             uint64
	Population       int
	Generations      int
	FinalBestFitness float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type SummariesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type TopGenotypesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	compiler, err := objective.NewCompiler(0)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		compiler:     compiler,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Reset wipes the store. Artifact directories are left in place.
func (c *Client) Reset(ctx context.Context) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := applyRunDefaults(&req); err != nil {
		return RunSummary{}, err
	}
	template, names, err := buildTemplate(req.Genes)
	if err != nil {
		return RunSummary{}, err
	}
	score, objectiveName, err := c.buildObjective(req, names)
	if err != nil {
		return RunSummary{}, err
	}
	constraint := genotype.Satisfied
	if req.Feasibility != "" {
		constraint, err = c.compiler.Constraint(req.Feasibility, names)
		if err != nil {
			return RunSummary{}, err
		}
	}

	fitnessOpts := []fitness.Option{
		fitness.WithConstraint(constraint),
		fitness.WithWorkers(req.Workers),
		fitness.WithLogger(c.logger),
	}
	if req.Metrics != nil {
		fitnessOpts = append(fitnessOpts, fitness.WithObserver(req.Metrics))
	}
	ff, err := fitness.New(score, fitnessOpts...)
	if err != nil {
		return RunSummary{}, err
	}

	parents, err := selectionFromName(req.Selection, ff)
	if err != nil {
		return RunSummary{}, err
	}
	survivors, err := survivorsFromName(req.Survivors, ff)
	if err != nil {
		return RunSummary{}, err
	}
	variation, err := variationFromRequest(req)
	if err != nil {
		return RunSummary{}, err
	}
	terminate := evo.MaxIterations(req.Generations)
	if req.PlateauWindow > 0 {
		terminate = evo.AnyOf(terminate, evo.MaxFitnessImprovement(ff, req.PlateauWindow, req.PlateauFraction))
	}
	var hooks []evo.GenerationHook
	if req.Metrics != nil {
		hooks = append(hooks, req.Metrics.GenerationHook(ff))
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	result, err := p.RunEvolution(ctx, platform.EvolutionConfig{
		RunID: req.RunID,
		Record: model.RunRecord{
			Genes:         append([]model.GeneSpec(nil), req.Genes...),
			Objective:     objectiveName,
			Feasibility:   req.Feasibility,
			Selection:     req.Selection,
			Survivors:     req.Survivors,
			Mutation:      req.Mutation,
			Recombination: req.Recombination,
		},
		Fitness: ff,
		Populators: evo.Populators{
			Initial: evo.RandomPopulation(template, constraint, evo.RandomOptions{
				Workers:     req.Workers,
				MaxAttempts: req.SampleAttempts,
			}),
			Parents:   parents,
			Survivors: survivors,
		},
		Variation:      variation,
		PopulationSize: req.Population,
		ParentsSize:    req.Parents,
		Terminate:      terminate,
		Seed:           req.Seed,
		TopK:           req.TopK,
		Hooks:          hooks,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:           result.Record,
		BestByGeneration: result.BestByGeneration,
		FinalBestFitness: result.BestFinalFitness,
		Summaries:        result.Summaries,
		TopGenotypes:     result.TopGenotypes,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if req.WriteIndividuals {
		if err := stats.WriteIndividuals(ctx, runDir, ff, result.History); err != nil {
			return RunSummary{}, err
		}
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntry(result.Record)); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            result.Record.ID,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.BestFinalFitness,
		BestGenotype:     result.Record.BestGenotype,
		Generations:      result.Record.Generations,
		Evaluations:      result.Record.CacheSize,
		StopReason:       result.Record.StopReason,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Objective:        e.Objective,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			FinalBestFitness: float64(e.FinalBestFitness),
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory returns the best fitness per generation of a run, read
// from the store and, failing that, from the run's artifacts.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if err := checkQuery(req.RunID, req.Latest, req.Limit); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadFitnessHistory(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Summaries(ctx context.Context, req SummariesRequest) ([]model.GenerationSummary, error) {
	if err := checkQuery(req.RunID, req.Latest, req.Limit); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "summaries")
	if err != nil {
		return nil, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	summaries, ok, err := c.store.GetGenerationSummaries(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		summaries, ok, err = stats.ReadGenerationSummaries(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("generation summaries not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}
	return append([]model.GenerationSummary(nil), summaries...), nil
}

func (c *Client) TopGenotypes(ctx context.Context, req TopGenotypesRequest) ([]model.TopGenotypeRecord, error) {
	if err := checkQuery(req.RunID, req.Latest, req.Limit); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "top genotypes")
	if err != nil {
		return nil, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	top, ok, err := c.store.GetTopGenotypes(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, ok, err = stats.ReadTopGenotypes(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("top genotypes not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	return append([]model.TopGenotypeRecord(nil), top...), nil
}

func checkQuery(runID string, latest bool, limit int) error {
	if runID != "" && latest {
		return errors.New("use either run id or latest")
	}
	if limit < 0 {
		return errors.New("limit must be >= 0")
	}
	return nil
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func (c *Client) buildObjective(req RunRequest, names []string) (fitness.ScoreFunc, string, error) {
	switch {
	case req.Objective != "" && req.Command != nil:
		return nil, "", errors.New("use either an objective expression or a command")
	case req.Objective != "":
		score, err := c.compiler.Objective(req.Objective, names)
		if err != nil {
			return nil, "", err
		}
		return score, req.Objective, nil
	case req.Command != nil:
		cmd := objective.Command{
			Path:         req.Command.Path,
			Args:         append([]string(nil), req.Command.Args...),
			Names:        names,
			Incalculable: req.Command.Incalculable,
			FailOnError:  req.Command.FailOnError,
		}
		if cmd.Path == "" {
			return nil, "", errors.New("command path is required")
		}
		return cmd.Score, strings.TrimSpace(cmd.Path + " " + strings.Join(cmd.Args, " ")), nil
	default:
		return nil, "", errors.New("objective expression or command is required")
	}
}

func newRunID() string {
	return "run-" + uuid.NewString()
}
