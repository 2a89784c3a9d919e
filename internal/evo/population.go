package evo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"evochain/internal/eaerr"
	"evochain/internal/genotype"
	"evochain/internal/random"
)

// InitialPopulation creates the first generation.
type InitialPopulation func(ctx context.Context, rng *rand.Rand, size int) (genotype.Population, error)

// SurvivorSelector picks the next generation of size members from the
// current generation and its offspring.
type SurvivorSelector func(ctx context.Context, rng *rand.Rand, size int, generation, offspring genotype.Population) (genotype.Population, error)

// RandomOptions tunes RandomPopulation.
type RandomOptions struct {
	// Workers bounds concurrent sampling. <= 0 selects runtime.NumCPU.
	Workers int
	// MaxAttempts bounds redraws per member. 0 retries until the
	// constraint accepts or ctx is done.
	MaxAttempts int
}

// RandomPopulation samples members by resetting copies of template until
// constraint accepts them. Members are sampled concurrently, each from its
// own stream split off rng, so a seed reproduces the population.
func RandomPopulation(template *genotype.Genotype, constraint genotype.Constraint, opts RandomOptions) InitialPopulation {
	if constraint == nil {
		constraint = genotype.Satisfied
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return func(ctx context.Context, rng *rand.Rand, size int) (genotype.Population, error) {
		if template == nil {
			return nil, fmt.Errorf("random population: template genotype is required")
		}
		if size < 0 {
			return nil, fmt.Errorf("random population size %d: %w", size, eaerr.ErrInvalidArgument)
		}
		streams := random.SplitN(rng, size)
		out := make(genotype.Population, size)
		tasks := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
		for i := range out {
			tasks.Go(func(ctx context.Context) error {
				g := template.Clone()
				for attempt := 1; ; attempt++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					if constraint(g.RandomReset(streams[i])) {
						out[i] = g
						return nil
					}
					if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
						return fmt.Errorf("member %d: no feasible genotype after %d attempts: %w", i, attempt, eaerr.ErrInvalidArgument)
					}
				}
			})
		}
		if err := tasks.Wait(); err != nil {
			return nil, fmt.Errorf("random population: %w", err)
		}
		return out, nil
	}
}

// GenerationalSurvivorSelection replaces the generation by its offspring.
// Both must hold exactly size members.
func GenerationalSurvivorSelection(_ context.Context, _ *rand.Rand, size int, generation, offspring genotype.Population) (genotype.Population, error) {
	if len(generation) != size || len(offspring) != size {
		return nil, fmt.Errorf("generational survivor selection: generation %d and offspring %d must both be %d: %w",
			len(generation), len(offspring), size, eaerr.ErrInvalidArgument)
	}
	return offspring, nil
}

// Adapter turns a parent selector into a survivor selector drawing from the
// union of generation and offspring.
func Adapter(selector ParentSelector) SurvivorSelector {
	return func(ctx context.Context, rng *rand.Rand, size int, generation, offspring genotype.Population) (genotype.Population, error) {
		union := make(genotype.Population, 0, len(generation)+len(offspring))
		union = append(union, generation...)
		union = append(union, offspring...)
		return selector(ctx, rng, size, union)
	}
}
