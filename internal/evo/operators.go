package evo

import (
	"fmt"
	"math/rand/v2"

	"golang.org/x/exp/constraints"

	"evochain/internal/eaerr"
	"evochain/internal/genotype"
	"evochain/internal/random"
)

// GaussianMutation adds N(0, sigma) noise to every T valued gene, clamped
// into the gene's constraint. Other genes are copied unchanged.
func GaussianMutation[T constraints.Float](sigma float64) Mutation {
	return func(rng *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
		child := g.Clone()
		for i := 0; i < child.Len(); i++ {
			n, ok := child.At(i).(*genotype.Number[T])
			if !ok {
				continue
			}
			v := T(random.Normal(rng, float64(n.Value()), sigma))
			if err := n.SetValue(n.Constraints().Clamp(v)); err != nil {
				return nil, err
			}
		}
		return genotype.Population{child}, nil
	}
}

// ResetMutation redraws each gene within its constraint with probability
// perGene.
func ResetMutation(perGene float64) Mutation {
	return func(rng *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
		child := g.Clone()
		for i := 0; i < child.Len(); i++ {
			if random.Success(rng, perGene) {
				child.At(i).RandomReset(rng)
			}
		}
		return genotype.Population{child}, nil
	}
}

// ArithmeticRecombination yields one child whose numeric genes sit at the
// midpoint of the parents' genes. Genes that cannot be averaged come from
// a. Parents must have the same length, gene types and constraints.
func ArithmeticRecombination(_ *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("arithmetic recombination of lengths %d and %d: %w", a.Len(), b.Len(), eaerr.ErrInvalidArgument)
	}
	genes := make([]genotype.Gene, a.Len())
	for i := range genes {
		x, y := a.At(i), b.At(i)
		avg, ok := x.(genotype.Averager)
		if !ok {
			if x.Type() != y.Type() {
				return nil, fmt.Errorf("gene %d: %s and %s: %w", i, x.Type(), y.Type(), eaerr.ErrTypeMismatch)
			}
			genes[i] = x
			continue
		}
		m, err := avg.Average(y)
		if err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		genes[i] = m
	}
	return genotype.Population{genotype.New(genes...)}, nil
}

// UniformCrossover yields two children that swap each gene position with
// probability 1/2.
func UniformCrossover(rng *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("uniform crossover of lengths %d and %d: %w", a.Len(), b.Len(), eaerr.ErrInvalidArgument)
	}
	left := make([]genotype.Gene, a.Len())
	right := make([]genotype.Gene, a.Len())
	for i := range left {
		x, y := a.At(i), b.At(i)
		if x.Type() != y.Type() {
			return nil, fmt.Errorf("gene %d: %s and %s: %w", i, x.Type(), y.Type(), eaerr.ErrTypeMismatch)
		}
		if random.Success(rng, 0.5) {
			x, y = y, x
		}
		left[i], right[i] = x, y
	}
	return genotype.Population{genotype.New(left...), genotype.New(right...)}, nil
}
