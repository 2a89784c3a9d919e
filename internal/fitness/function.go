// Package fitness scores genotypes and memoizes the results.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"evochain/internal/genotype"
)

// ScoreFunc computes the fitness of one genotype. Higher is better. It may
// return Incalculable. It must be safe for concurrent use.
type ScoreFunc func(ctx context.Context, g *genotype.Genotype) (float64, error)

// Pure adapts a side effect free scoring function.
func Pure(fn func(*genotype.Genotype) float64) ScoreFunc {
	return func(_ context.Context, g *genotype.Genotype) (float64, error) {
		return fn(g), nil
	}
}

// Observer receives evaluation events.
type Observer interface {
	CacheHit()
	CacheMiss()
	Evaluated(elapsed time.Duration, value float64, err error)
}

var errScorePanicked = errors.New("score function panicked")

// Function is a handle on a scoring function and its cache. Copies share
// the cache.
type Function struct {
	score    ScoreFunc
	workers  int
	logger   *slog.Logger
	observer Observer
	cache    *Cache
}

type Option func(*Function)

// WithConstraint scores infeasible genotypes as Incalculable without
// invoking the scoring function.
func WithConstraint(c genotype.Constraint) Option {
	return func(f *Function) {
		if c == nil {
			return
		}
		score := f.score
		f.score = func(ctx context.Context, g *genotype.Genotype) (float64, error) {
			if !c(g) {
				return Incalculable, nil
			}
			return score(ctx, g)
		}
	}
}

// WithWorkers bounds concurrent score computations in EvaluatePopulation.
// Values <= 0 select runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(f *Function) { f.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Function) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(f *Function) { f.observer = o }
}

// New wraps score. Options apply in order; feasibility composition happens
// here, once.
func New(score ScoreFunc, opts ...Option) (Function, error) {
	if score == nil {
		return Function{}, fmt.Errorf("score function is required")
	}
	f := Function{
		score:  score,
		logger: slog.New(slog.DiscardHandler),
		cache:  NewCache(),
	}
	for _, opt := range opts {
		opt(&f)
	}
	if f.workers <= 0 {
		f.workers = runtime.NumCPU()
	}
	return f, nil
}

// Size reports the number of cached fitness values.
func (f Function) Size() int { return f.cache.Len() }

// Cache exposes the shared cache.
func (f Function) Cache() *Cache { return f.cache }

// Workers reports the evaluation concurrency bound.
func (f Function) Workers() int { return f.workers }

// WithFreshCache returns a copy of f that no longer shares its cache.
func (f Function) WithFreshCache() Function {
	f.cache = NewCache()
	return f
}

// Evaluate returns the fitness of g, computing it at most once per distinct
// genotype across every copy of f.
func (f Function) Evaluate(ctx context.Context, g *genotype.Genotype) (float64, error) {
	e, owner := f.cache.claim(g)
	if !owner {
		f.hit(g)
		return e.wait(ctx)
	}
	f.miss(g)
	f.compute(ctx, g, e)
	return e.value, e.err
}

// EvaluatePopulation returns the fitness of every member of p in order.
// Distinct uncached genotypes are scored concurrently, bounded by the
// worker count. All outstanding work completes before it returns.
func (f Function) EvaluatePopulation(ctx context.Context, p genotype.Population) ([]float64, error) {
	entries := make([]*entry, len(p))
	workers := pool.New().WithErrors().WithMaxGoroutines(f.workers)
	claimed := 0
	for i, g := range p {
		e, owner := f.cache.claim(g)
		entries[i] = e
		if !owner {
			f.hit(g)
			continue
		}
		f.miss(g)
		claimed++
		workers.Go(func() error {
			if err := ctx.Err(); err != nil {
				f.cache.resolve(e, Incalculable, err)
				return err
			}
			f.compute(ctx, g, e)
			return e.err
		})
	}
	if claimed > 0 {
		f.logger.Debug("fitness batch dispatched", "population", len(p), "computations", claimed, "workers", f.workers)
	}
	poolErr := workers.Wait()

	out := make([]float64, len(p))
	var waitErrs []error
	for i, e := range entries {
		v, err := e.wait(ctx)
		if err != nil {
			waitErrs = append(waitErrs, fmt.Errorf("genotype %d: %w", i, err))
			continue
		}
		out[i] = v
	}
	if poolErr != nil {
		return nil, fmt.Errorf("evaluate population: %w", poolErr)
	}
	if len(waitErrs) > 0 {
		return nil, fmt.Errorf("evaluate population: %w", errors.Join(waitErrs...))
	}
	return out, nil
}

func (f Function) compute(ctx context.Context, g *genotype.Genotype, e *entry) {
	start := time.Now()
	resolved := false
	defer func() {
		if !resolved {
			f.cache.resolve(e, Incalculable, errScorePanicked)
		}
	}()
	v, err := f.score(ctx, g)
	if err == nil && math.IsNaN(v) {
		v = Incalculable
	}
	if err != nil {
		err = fmt.Errorf("score %s: %w", g.ValueString(), err)
		v = Incalculable
	}
	f.cache.resolve(e, v, err)
	resolved = true
	if f.observer != nil {
		f.observer.Evaluated(time.Since(start), v, err)
	}
	if err != nil {
		f.logger.Debug("fitness calculation failed", "genotype", g.ValueString(), "error", err)
		return
	}
	f.logger.Debug("fitness calculated", "genotype", g.ValueString(), "fitness", v, "elapsed", time.Since(start))
}

func (f Function) hit(g *genotype.Genotype) {
	if f.observer != nil {
		f.observer.CacheHit()
	}
	f.logger.Debug("fitness cache hit", "hash", g.Hash())
}

func (f Function) miss(g *genotype.Genotype) {
	if f.observer != nil {
		f.observer.CacheMiss()
	}
	f.logger.Debug("fitness cache miss", "hash", g.Hash())
}
