package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
	"evochain/internal/model"
	"evochain/internal/random"
	"evochain/internal/stats"
	"evochain/internal/storage"
)

const defaultTopK = 5

type Config struct {
	Store  storage.Store
	Logger *slog.Logger
}

type StopReason string

const (
	// StopReasonCompleted means the termination condition held.
	StopReasonCompleted StopReason = "completed"
	// StopReasonStopped means StopRun ended the run early. The generations
	// created until then are still persisted.
	StopReasonStopped StopReason = "stopped"
)

var errRunStopped = errors.New("run stopped")

type EvolutionConfig struct {
	RunID string
	// Record carries the descriptive fields of the run: genes, objective,
	// operator names. Outcome fields are filled in by RunEvolution.
	Record         model.RunRecord
	Fitness        fitness.Function
	Populators     evo.Populators
	Variation      evo.Variation
	PopulationSize int
	ParentsSize    int
	Terminate      evo.TerminationCondition
	// Seed 0 picks a random seed; the seed used is recorded either way.
	Seed  uint64
	TopK  int
	Hooks []evo.GenerationHook
}

type EvolutionResult struct {
	Record           model.RunRecord
	History          evo.History
	BestByGeneration []float64
	Summaries        []model.GenerationSummary
	BestFinalFitness float64
	Best             *genotype.Genotype
	TopGenotypes     []model.TopGenotypeRecord
	StopReason       StopReason
}

// Polis owns the store and the runs in flight.
type Polis struct {
	store  storage.Store
	logger *slog.Logger

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelCauseFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Polis{
		store:  cfg.Store,
		logger: logger,
		runs:   make(map[string]context.CancelCauseFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

// Reset stops active runs and wipes the store.
func (p *Polis) Reset(ctx context.Context) error {
	p.Stop()
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	if err := p.store.Reset(ctx); err != nil {
		return err
	}
	return p.Init(ctx)
}

// Stop ends every active run and marks the polis uninitialized.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.runs {
		cancel(errRunStopped)
		delete(p.runs, id)
	}
	p.started = false
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store { return p.store }

// ActiveRuns lists the ids of runs in flight.
func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.runs))
	for id := range p.runs {
		out = append(out, id)
	}
	return out
}

// StopRun ends the run with the given id after its current generation.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel(errRunStopped)
	return nil
}

func (p *Polis) registerRun(runID string, cancel context.CancelCauseFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

// RunEvolution runs one evolution to completion and persists its record,
// best fitness history, generation summaries and top genotypes.
func (p *Polis) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.Terminate == nil {
		return EvolutionResult{}, fmt.Errorf("termination condition is required")
	}
	if cfg.Fitness.Cache() == nil {
		return EvolutionResult{}, fmt.Errorf("fitness function is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	creator, err := evo.NewGenerationCreator(cfg.Populators, evo.CreatorOptions{
		Variation:      cfg.Variation,
		GenerationSize: cfg.PopulationSize,
		ParentsSize:    cfg.ParentsSize,
	}, random.New(seed))
	if err != nil {
		return EvolutionResult{}, err
	}
	evolution, err := evo.NewEvolution(creator, cfg.Terminate)
	if err != nil {
		return EvolutionResult{}, err
	}
	logger := p.logger.With("run_id", runID)
	evolution.Logger = logger
	evolution.Hooks = cfg.Hooks

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if err := p.registerRun(runID, cancel); err != nil {
		return EvolutionResult{}, err
	}
	defer p.unregisterRun(runID)

	logger.Info("run started", "population", cfg.PopulationSize, "parents", cfg.ParentsSize, "seed", seed)
	start := time.Now()
	reason := StopReasonCompleted
	history, err := evolution.Run(runCtx)
	if err != nil {
		if ctx.Err() != nil || !errors.Is(context.Cause(runCtx), errRunStopped) {
			return EvolutionResult{}, err
		}
		reason = StopReasonStopped
	}

	summaries, err := stats.Summarize(ctx, cfg.Fitness, history)
	if err != nil {
		return EvolutionResult{}, err
	}
	top, err := stats.TopGenotypes(ctx, cfg.Fitness, history, cfg.TopK)
	if err != nil {
		return EvolutionResult{}, err
	}
	bestByGeneration := stats.BestByGeneration(summaries)
	result := EvolutionResult{
		History:          history,
		BestByGeneration: bestByGeneration,
		Summaries:        summaries,
		BestFinalFitness: fitness.Max(bestByGeneration),
		TopGenotypes:     top,
		StopReason:       reason,
	}
	if best, ok := bestOf(ctx, cfg.Fitness, history); ok {
		result.Best = best
	}

	record := cfg.Record
	record.VersionedRecord = storage.Versioned()
	record.ID = runID
	record.CreatedAtUTC = model.Timestamp(time.Now())
	record.Seed = seed
	record.PopulationSize = cfg.PopulationSize
	record.ParentsSize = cfg.ParentsSize
	record.Generations = len(history)
	record.BestFitness = model.Fitness(result.BestFinalFitness)
	if result.Best != nil {
		record.BestGenotype = result.Best.ValueString()
	}
	record.CacheSize = cfg.Fitness.Size()
	record.StopReason = string(reason)
	result.Record = record

	if err := p.persist(ctx, result); err != nil {
		return EvolutionResult{}, err
	}
	logger.Info("run finished",
		"generations", record.Generations,
		"best_fitness", result.BestFinalFitness,
		"evaluated", record.CacheSize,
		"stop_reason", reason,
		"elapsed", time.Since(start),
	)
	return result, nil
}

func (p *Polis) persist(ctx context.Context, result EvolutionResult) error {
	runID := result.Record.ID
	if err := p.store.SaveRun(ctx, result.Record); err != nil {
		return err
	}
	if err := p.store.SaveFitnessHistory(ctx, runID, result.BestByGeneration); err != nil {
		return err
	}
	if err := p.store.SaveGenerationSummaries(ctx, runID, result.Summaries); err != nil {
		return err
	}
	return p.store.SaveTopGenotypes(ctx, runID, result.TopGenotypes)
}

// bestOf finds the best calculable genotype over the whole history.
func bestOf(ctx context.Context, ff fitness.Function, history evo.History) (*genotype.Genotype, bool) {
	var best *genotype.Genotype
	bestFitness := fitness.Incalculable
	for _, p := range history {
		g, f, err := ff.Best(ctx, p)
		if err != nil || g == nil {
			continue
		}
		if best == nil || f > bestFitness {
			best, bestFitness = g, f
		}
	}
	return best, best != nil
}
