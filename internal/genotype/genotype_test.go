package genotype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evochain/internal/eaerr"
	"evochain/internal/interval"
	"evochain/internal/random"
)

func mustNumber[T interval.Number](t *testing.T, v, min, max T) *Number[T] {
	t.Helper()
	n, err := NewNumber(v, min, max)
	require.NoError(t, err)
	return n
}

func sample(t *testing.T) *Genotype {
	t.Helper()
	return New(
		mustNumber(t, 42, 0, 99),
		mustNumber(t, Char('c'), Char('a'), Char('z')),
		mustNumber(t, 0.42, 0.0, 1.0),
	)
}

func TestNumberRejectsOutOfRange(t *testing.T) {
	_, err := NewNumber(100, 0, 99)
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)

	_, err = NewNumber(1, 5, 0)
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)

	n := mustNumber(t, 5, 0, 10)
	require.ErrorIs(t, n.SetValue(11), eaerr.ErrInvalidArgument)
	assert.Equal(t, 5, n.Value())

	require.ErrorIs(t, n.SetConstraints(interval.Must(6, 9)), eaerr.ErrInvalidArgument)
	assert.Equal(t, interval.Must(0, 10), n.Constraints())
	require.NoError(t, n.SetConstraints(interval.Must(5, 5)))
}

func TestNumberInStartsAtMidpoint(t *testing.T) {
	assert.Equal(t, 0.0, NewNumberIn(interval.Must(-10.0, 10.0)).Value())
	assert.Equal(t, 50, NewNumberIn(interval.Must(0, 100)).Value())
}

func TestRandomResetStaysInBounds(t *testing.T) {
	rng := random.New(1)
	g := New(
		mustNumber(t, 0, -3, 3),
		mustNumber(t, 1.0, -10.0, 10.0),
		mustNumber(t, Char('m'), Char('a'), Char('z')),
		mustNumber[uint8](t, 7, 0, 255),
		BoolOf(false),
	)
	for i := 0; i < 10000; i++ {
		g.RandomReset(rng)
		a, err := ValueAt[int](g, 0)
		require.NoError(t, err)
		require.True(t, a >= -3 && a <= 3)
		b, err := ValueAt[float64](g, 1)
		require.NoError(t, err)
		require.True(t, b >= -10 && b < 10)
		c, err := ValueAt[Char](g, 2)
		require.NoError(t, err)
		require.True(t, c >= 'a' && c <= 'z')
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := sample(t)
	c := g.Clone()
	require.True(t, g.Equal(c))

	n, err := As[int](c, 0)
	require.NoError(t, err)
	require.NoError(t, n.SetValue(7))

	v, err := ValueAt[int](g, 0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.False(t, g.Equal(c))
}

func TestNewCopiesGenes(t *testing.T) {
	gene := mustNumber(t, 1, 0, 9)
	g := New(gene)
	require.NoError(t, gene.SetValue(2))
	v, err := ValueAt[int](g, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestEqualityRequiresSameType(t *testing.T) {
	asChar := New(mustNumber(t, Char('a'), Char('a'), Char('z')))
	asInt := New(mustNumber[int32](t, 'a', 'a', 'z'))
	assert.False(t, asChar.Equal(asInt))

	_, err := asChar.At(0).Compare(asInt.At(0))
	require.ErrorIs(t, err, eaerr.ErrTypeMismatch)

	narrow := New(mustNumber(t, 42, 0, 50))
	wide := New(mustNumber(t, 42, 0, 99))
	assert.False(t, narrow.Equal(wide))
}

func TestCompare(t *testing.T) {
	lo, hi := mustNumber(t, 1, 0, 9), mustNumber(t, 5, 0, 9)
	c, err := lo.Compare(hi)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = BoolOf(true).Compare(BoolOf(false))
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestHashConsistentWithEqual(t *testing.T) {
	a, b := sample(t), sample(t)
	require.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	pos := New(mustNumber(t, 0.0, -1.0, 1.0))
	neg := New(mustNumber(t, math.Copysign(0, -1), -1.0, 1.0))
	require.True(t, pos.Equal(neg))
	assert.Equal(t, pos.Hash(), neg.Hash())

	swapped := New(mustNumber(t, 2, 0, 9), mustNumber(t, 1, 0, 9))
	ordered := New(mustNumber(t, 1, 0, 9), mustNumber(t, 2, 0, 9))
	assert.NotEqual(t, swapped.Hash(), ordered.Hash())
}

func TestStringForms(t *testing.T) {
	g := sample(t)
	assert.Equal(t, "[ 42 in [0, 99] c in [a, z] 0.42 in [0, 1] ]", g.String())
	assert.Equal(t, "42 c 0.42", g.ValueString())
	assert.Equal(t, "[ ]", New().String())
	assert.Equal(t, "true in [false, true]", BoolOf(true).String())
}

func TestTypedAccessMismatch(t *testing.T) {
	g := sample(t)
	_, err := ValueAt[float64](g, 0)
	require.ErrorIs(t, err, eaerr.ErrTypeMismatch)
	_, err = ValueAt[int](g, 9)
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
	_, err = g.BoolAt(0)
	require.ErrorIs(t, err, eaerr.ErrTypeMismatch)

	f, err := g.Float(1)
	require.NoError(t, err)
	assert.Equal(t, float64('c'), f)
}

func TestFromValues(t *testing.T) {
	g, err := FromValues(3, 2.5, Char('x'), true, uint16(9))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []any{3, 2.5, Char('x'), true, uint16(9)}, g.Values())

	n, err := As[int](g, 0)
	require.NoError(t, err)
	assert.Equal(t, interval.Natural[int](), n.Constraints())

	_, err = FromValues("nope")
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
	_, err = FromValues(math.Inf(1))
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
}

func TestBoolGene(t *testing.T) {
	_, err := NewBool(false, true, false)
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
	_, err = NewBool(false, true, true)
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)

	fixed, err := NewBool(true, true, true)
	require.NoError(t, err)
	rng := random.New(3)
	for i := 0; i < 100; i++ {
		fixed.RandomReset(rng)
		require.True(t, fixed.Value())
	}
}

func TestAverage(t *testing.T) {
	a, b := mustNumber(t, -2.0, -10.0, 10.0), mustNumber(t, 4.0, -10.0, 10.0)
	m, err := a.Average(b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Interface())

	_, err = a.Average(mustNumber(t, 4.0, -5.0, 5.0))
	require.ErrorIs(t, err, eaerr.ErrInvalidArgument)
	_, err = a.Average(mustNumber(t, 4, -5, 5))
	require.ErrorIs(t, err, eaerr.ErrTypeMismatch)
}

func TestPopulationDistinctAndConstraints(t *testing.T) {
	g := sample(t)
	p := Population{g, g.Clone(), New(mustNumber(t, 1, 0, 9))}
	assert.Equal(t, 2, p.Distinct())

	positive := func(g *Genotype) bool {
		v, err := ValueAt[int](g, 0)
		return err == nil && v > 0
	}
	small := func(g *Genotype) bool {
		v, err := ValueAt[int](g, 0)
		return err == nil && v < 10
	}
	c := All(positive, nil, small)
	assert.True(t, c(p[2]))
	assert.False(t, c(p[0]))
	assert.True(t, All()(p[0]))
	assert.True(t, Satisfied(nil))
}
