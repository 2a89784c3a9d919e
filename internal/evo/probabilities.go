// Package evo implements selection, variation and the generational loop of
// the evolutionary algorithm.
package evo

import (
	"context"
	"fmt"
	"math"

	"evochain/internal/eaerr"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

// ProbabilitiesFunc assigns each member of a population its selection
// probability. The result sums to 1 within numerical error.
type ProbabilitiesFunc func(ctx context.Context, p genotype.Population) ([]float64, error)

// FitnessProportional is windowed fitness proportional selection over the
// fitness values of ff.
func FitnessProportional(ff fitness.Function) ProbabilitiesFunc {
	return func(ctx context.Context, p genotype.Population) ([]float64, error) {
		fs, err := ff.EvaluatePopulation(ctx, p)
		if err != nil {
			return nil, err
		}
		return ProportionalProbabilities(fs)
	}
}

// ProportionalProbabilities windows fs by its calculable minimum and adds
// 1/n to every calculable value, so equally fit members keep a positive
// probability. Incalculable members get probability 0.
func ProportionalProbabilities(fs []float64) ([]float64, error) {
	cal, err := fitness.SelectCalculable(fs, true)
	if err != nil {
		return nil, fmt.Errorf("fitness proportional selection: %w", err)
	}
	min := fitness.Min(cal)
	n := float64(len(cal))
	delta := 1 / n
	sum := -n*min + 1
	for _, f := range cal {
		sum += f
	}
	out := make([]float64, len(fs))
	for i, f := range fs {
		if !fitness.IsCalculable(f) {
			continue
		}
		out[i] = (f - min + delta) / sum
	}
	return out, nil
}

// CumulativeProbabilities returns the running sum of ps with the last value
// set to exactly 1. A total further than 1% from 1 fails.
func CumulativeProbabilities(ps []float64) ([]float64, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("cumulative probabilities of empty vector: %w", eaerr.ErrInvalidArgument)
	}
	out := make([]float64, len(ps))
	total := 0.0
	for i, p := range ps {
		total += p
		out[i] = total
	}
	if math.IsNaN(total) || total <= 0.99 || total >= 1.01 {
		return nil, fmt.Errorf("cumulative probability total %v: %w", total, eaerr.ErrNumericInvariant)
	}
	out[len(out)-1] = 1
	return out, nil
}
