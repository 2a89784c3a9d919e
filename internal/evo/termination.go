package evo

import (
	"context"
	"fmt"

	"evochain/internal/eaerr"
	"evochain/internal/fitness"
)

// TerminationCondition is consulted before each generation with the number
// of generations produced so far.
type TerminationCondition func(ctx context.Context, i int, history History) (bool, error)

// MaxIterations stops after n generations.
func MaxIterations(n int) TerminationCondition {
	return func(_ context.Context, i int, _ History) (bool, error) {
		return i >= n, nil
	}
}

// MaxFitnessImprovement stops once the best fitness of the last n
// generations has stayed within frac of the overall best, relative to the
// whole history's range of best values:
//
//	(max(best) - min(best[last n])) / (max(best) - min(best)) <= frac
//
// A history with a single best value counts as a plateau.
func MaxFitnessImprovement(ff fitness.Function, n int, frac float64) TerminationCondition {
	return func(ctx context.Context, _ int, history History) (bool, error) {
		if n < 1 {
			return false, fmt.Errorf("plateau window %d must be >= 1: %w", n, eaerr.ErrInvalidArgument)
		}
		if len(history) <= n {
			return false, nil
		}
		best, err := ff.GenerationsMax(ctx, history)
		if err != nil {
			return false, err
		}
		hi, lo := fitness.Max(best), fitness.Min(best)
		if !fitness.IsCalculable(hi) {
			return false, fmt.Errorf("max fitness improvement: %w", eaerr.ErrNoCalculableFitness)
		}
		if hi == lo {
			return true, nil
		}
		recent := fitness.Min(best[len(best)-n:])
		if !fitness.IsCalculable(recent) {
			return false, nil
		}
		return (hi-recent)/(hi-lo) <= frac, nil
	}
}

// AnyOf stops as soon as one condition does.
func AnyOf(conds ...TerminationCondition) TerminationCondition {
	return func(ctx context.Context, i int, history History) (bool, error) {
		for _, cond := range conds {
			stop, err := cond(ctx, i, history)
			if err != nil || stop {
				return stop, err
			}
		}
		return false, nil
	}
}
