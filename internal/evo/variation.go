package evo

import (
	"fmt"
	"math/rand/v2"

	"evochain/internal/eaerr"
	"evochain/internal/genotype"
	"evochain/internal/random"
)

// Mutation maps one genotype to offspring. Variation keeps the first.
type Mutation func(rng *rand.Rand, g *genotype.Genotype) (genotype.Population, error)

// Recombination maps two parents to one or two offspring.
type Recombination func(rng *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error)

func UnaryIdentity(_ *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
	return genotype.Population{g.Clone()}, nil
}

func BinaryIdentity(_ *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
	return genotype.Population{a.Clone(), b.Clone()}, nil
}

// StochasticMutation applies m with probability p and passes the genotype
// through otherwise.
func StochasticMutation(m Mutation, p float64) Mutation {
	return func(rng *rand.Rand, g *genotype.Genotype) (genotype.Population, error) {
		if random.Success(rng, p) {
			return m(rng, g)
		}
		return genotype.Population{g.Clone()}, nil
	}
}

// StochasticRecombination always runs r, then keeps its result with
// probability p. Otherwise both parents pass through when r yields two
// offspring, or one parent chosen by a fair coin when r yields one.
func StochasticRecombination(r Recombination, p float64) Recombination {
	return func(rng *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
		res, err := r(rng, a, b)
		if err != nil {
			return nil, err
		}
		if random.Success(rng, p) {
			return res, nil
		}
		if len(res) == 2 {
			return genotype.Population{a.Clone(), b.Clone()}, nil
		}
		if random.Success(rng, 0.5) {
			return genotype.Population{a.Clone()}, nil
		}
		return genotype.Population{b.Clone()}, nil
	}
}

// Variation recombines pairs of parents and mutates every offspring. A nil
// operator acts as the identity.
type Variation struct {
	Mutate    Mutation
	Recombine Recombination
}

func NewVariation(m Mutation, r Recombination) Variation {
	return Variation{Mutate: m, Recombine: r}
}

// Pair varies one couple of parents, yielding one or two offspring.
func (v Variation) Pair(rng *rand.Rand, a, b *genotype.Genotype) (genotype.Population, error) {
	recombine := v.Recombine
	if recombine == nil {
		recombine = BinaryIdentity
	}
	mutate := v.Mutate
	if mutate == nil {
		mutate = UnaryIdentity
	}
	children, err := recombine(rng, a, b)
	if err != nil {
		return nil, fmt.Errorf("recombine: %w", err)
	}
	if len(children) != 1 && len(children) != 2 {
		return nil, fmt.Errorf("recombination yielded %d offspring, want 1 or 2: %w", len(children), eaerr.ErrInvalidArgument)
	}
	out := make(genotype.Population, 0, len(children))
	for _, child := range children {
		mutated, err := mutate(rng, child)
		if err != nil {
			return nil, fmt.Errorf("mutate: %w", err)
		}
		if len(mutated) == 0 {
			return nil, fmt.Errorf("mutation yielded no offspring: %w", eaerr.ErrInvalidArgument)
		}
		out = append(out, mutated[0])
	}
	return out, nil
}

// Apply varies consecutive pairs of p. The result holds len(p)/2 members
// when recombination yields one child per pair, len(p) when it yields two.
func (v Variation) Apply(rng *rand.Rand, p genotype.Population) (genotype.Population, error) {
	if len(p)%2 != 0 {
		return nil, fmt.Errorf("variation of odd population size %d: %w", len(p), eaerr.ErrInvalidArgument)
	}
	out := make(genotype.Population, 0, len(p))
	for i := 0; i < len(p); i += 2 {
		children, err := v.Pair(rng, p[i], p[i+1])
		if err != nil {
			return nil, fmt.Errorf("variation of pair %d: %w", i/2, err)
		}
		out = append(out, children...)
	}
	return out, nil
}
