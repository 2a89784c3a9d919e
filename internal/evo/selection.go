package evo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"evochain/internal/eaerr"
	"evochain/internal/genotype"
)

// ParentSelector draws lambda members of p. Members may repeat; every
// returned genotype is an independent copy.
type ParentSelector func(ctx context.Context, rng *rand.Rand, lambda int, p genotype.Population) (genotype.Population, error)

func checkDraw(lambda int, p genotype.Population) error {
	if lambda < 0 {
		return fmt.Errorf("lambda %d must be >= 0: %w", lambda, eaerr.ErrInvalidArgument)
	}
	if lambda > 0 && len(p) == 0 {
		return fmt.Errorf("select %d from empty population: %w", lambda, eaerr.ErrInvalidArgument)
	}
	return nil
}

func cumulative(ctx context.Context, spf ProbabilitiesFunc, p genotype.Population) ([]float64, error) {
	ps, err := spf(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(ps) != len(p) {
		return nil, fmt.Errorf("%d probabilities for %d genotypes: %w", len(ps), len(p), eaerr.ErrInvalidArgument)
	}
	return CumulativeProbabilities(ps)
}

// RouletteWheel draws lambda independent uniform numbers and picks the
// first member whose cumulative probability exceeds each.
func RouletteWheel(spf ProbabilitiesFunc) ParentSelector {
	return func(ctx context.Context, rng *rand.Rand, lambda int, p genotype.Population) (genotype.Population, error) {
		if err := checkDraw(lambda, p); err != nil {
			return nil, fmt.Errorf("roulette wheel: %w", err)
		}
		if lambda == 0 {
			return genotype.Population{}, nil
		}
		c, err := cumulative(ctx, spf, p)
		if err != nil {
			return nil, fmt.Errorf("roulette wheel: %w", err)
		}
		out := make(genotype.Population, lambda)
		for k := range out {
			u := rng.Float64()
			i := sort.Search(len(c), func(i int) bool { return c[i] > u })
			out[k] = p[i].Clone()
		}
		return out, nil
	}
}

// StochasticUniversalSampling places lambda evenly spaced pointers after a
// single random offset in [0, 1/lambda) and walks the cumulative
// distribution once. The result is shuffled.
func StochasticUniversalSampling(spf ProbabilitiesFunc) ParentSelector {
	return func(ctx context.Context, rng *rand.Rand, lambda int, p genotype.Population) (genotype.Population, error) {
		if err := checkDraw(lambda, p); err != nil {
			return nil, fmt.Errorf("stochastic universal sampling: %w", err)
		}
		if lambda == 0 {
			return genotype.Population{}, nil
		}
		c, err := cumulative(ctx, spf, p)
		if err != nil {
			return nil, fmt.Errorf("stochastic universal sampling: %w", err)
		}
		step := 1 / float64(lambda)
		r0 := rng.Float64() * step
		out := make(genotype.Population, 0, lambda)
		i := 0
		for j := 0; j < lambda; j++ {
			r := r0 + float64(j)*step
			for i < len(c)-1 && c[i] <= r {
				i++
			}
			out = append(out, p[i].Clone())
		}
		rng.Shuffle(len(out), func(a, b int) { out[a], out[b] = out[b], out[a] })
		return out, nil
	}
}
