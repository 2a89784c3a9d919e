package evo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evochain/internal/eaerr"
	"evochain/internal/genotype"
	"evochain/internal/random"
)

func sixReals(t *testing.T) genotype.Population {
	var p genotype.Population
	for i := 0; i < 6; i++ {
		p = append(p, realGenotype(t, float64(i)))
	}
	return p
}

func TestVariationSizes(t *testing.T) {
	rng := random.New(1)

	out, err := NewVariation(nil, ArithmeticRecombination).Apply(rng, sixReals(t))
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 0.5, firstReal(t, out[0]))

	out, err = Variation{}.Apply(rng, sixReals(t))
	require.NoError(t, err)
	assert.Len(t, out, 6)

	_, err = Variation{}.Apply(rng, sixReals(t)[:5])
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
}

func TestVariationRejectsBadRecombination(t *testing.T) {
	three := func(_ *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
		return genotype.Population{a, b, a}, nil
	}
	_, err := NewVariation(nil, three).Pair(random.New(1), realGenotype(t, 1), realGenotype(t, 2))
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
}

func TestVariationMutatesEveryChild(t *testing.T) {
	toNine := func(_ *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
		c := g.Clone()
		n, err := genotype.As[float64](c, 0)
		if err != nil {
			return nil, err
		}
		return genotype.Population{c, g}, n.SetValue(9)
	}
	out, err := NewVariation(toNine, nil).Apply(random.New(1), sixReals(t))
	require.NoError(t, err)
	require.Len(t, out, 6)
	for _, g := range out {
		assert.Equal(t, 9.0, firstReal(t, g))
	}
}

func TestStochasticMutation(t *testing.T) {
	calls := 0
	m := func(_ *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
		calls++
		return genotype.Population{g.Clone()}, nil
	}
	rng := random.New(2)
	g := realGenotype(t, 3)

	out, err := StochasticMutation(m, 0)(rng, g)
	require.NoError(t, err)
	assert.True(t, out[0].Equal(g))
	assert.Zero(t, calls)

	_, err = StochasticMutation(m, 1)(rng, g)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStochasticRecombinationPassthrough(t *testing.T) {
	rng := random.New(3)
	a, b := realGenotype(t, 1), realGenotype(t, 3)

	out, err := StochasticRecombination(UniformCrossover, 0)(rng, a, b)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Equal(a))
	assert.True(t, out[1].Equal(b))

	picked := map[float64]int{}
	for i := 0; i < 200; i++ {
		out, err := StochasticRecombination(ArithmeticRecombination, 0)(rng, a, b)
		require.NoError(t, err)
		require.Len(t, out, 1)
		picked[firstReal(t, out[0])]++
	}
	assert.Zero(t, picked[2])
	assert.Greater(t, picked[1], 50)
	assert.Greater(t, picked[3], 50)

	out, err = StochasticRecombination(ArithmeticRecombination, 1)(rng, a, b)
	require.NoError(t, err)
	assert.Equal(t, 2.0, firstReal(t, out[0]))
}

func TestGaussianMutationStaysInBounds(t *testing.T) {
	rng := random.New(4)
	flag := genotype.BoolOf(true)
	g := genotype.New(realGenotype(t, 9.9).At(0), flag)
	m := GaussianMutation[float64](5)
	for i := 0; i < 1000; i++ {
		out, err := m(rng, g)
		require.NoError(t, err)
		v := firstReal(t, out[0])
		require.True(t, v >= -10 && v <= 10)
		b, err := out[0].BoolAt(1)
		require.NoError(t, err)
		require.True(t, b)
	}
	assert.Equal(t, 9.9, firstReal(t, g))
}

func TestResetMutation(t *testing.T) {
	rng := random.New(6)
	g := realGenotype(t, 1, 2)
	out, err := ResetMutation(0)(rng, g)
	require.NoError(t, err)
	assert.True(t, out[0].Equal(g))

	out, err = ResetMutation(1)(rng, g)
	require.NoError(t, err)
	assert.False(t, out[0].Equal(g))
}

func TestRecombinationChecksShape(t *testing.T) {
	rng := random.New(7)
	_, err := ArithmeticRecombination(rng, realGenotype(t, 1), realGenotype(t, 1, 2))
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)

	n, err := genotype.NewNumber(1.0, -1.0, 1.0)
	require.NoError(t, err)
	_, err = ArithmeticRecombination(rng, realGenotype(t, 1), genotype.New(n))
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)

	_, err = UniformCrossover(rng, realGenotype(t, 1), genotype.New(genotype.BoolOf(true)))
	require.ErrorIs(t, err, eaerr.ErrTypeMismatch)

	mixed := func(x float64, b bool) *genotype.Genotype {
		return genotype.New(realGenotype(t, x).At(0), genotype.BoolOf(b))
	}
	out, err := ArithmeticRecombination(rng, mixed(2, true), mixed(4, false))
	require.NoError(t, err)
	assert.Equal(t, 3.0, firstReal(t, out[0]))
	flag, err := out[0].BoolAt(1)
	require.NoError(t, err)
	assert.True(t, flag)
}
