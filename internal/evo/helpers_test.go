package evo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

func realGenotype(t *testing.T, xs ...float64) *genotype.Genotype {
	t.Helper()
	genes := make([]genotype.Gene, len(xs))
	for i, x := range xs {
		n, err := genotype.NewNumber(x, -10.0, 10.0)
		require.NoError(t, err)
		genes[i] = n
	}
	return genotype.New(genes...)
}

func firstReal(t *testing.T, g *genotype.Genotype) float64 {
	t.Helper()
	v, err := genotype.ValueAt[float64](g, 0)
	require.NoError(t, err)
	return v
}

func fixedProbabilities(ps ...float64) ProbabilitiesFunc {
	return func(context.Context, genotype.Population) ([]float64, error) {
		return append([]float64(nil), ps...), nil
	}
}

func firstGeneScore(t *testing.T) fitness.Function {
	t.Helper()
	ff, err := fitness.New(fitness.Pure(func(g *genotype.Genotype) float64 {
		v, _ := genotype.ValueAt[float64](g, 0)
		return v
	}))
	require.NoError(t, err)
	return ff
}
