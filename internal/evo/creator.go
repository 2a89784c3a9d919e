package evo

import (
	"context"
	"fmt"
	"math/rand/v2"

	"evochain/internal/genotype"
)

// Populators are the three population producing steps of a generation.
type Populators struct {
	Initial   InitialPopulation
	Parents   ParentSelector
	Survivors SurvivorSelector
}

type CreatorOptions struct {
	Variation      Variation
	GenerationSize int
	ParentsSize    int
}

// GenerationCreator produces successive generations. The first call to
// Next builds the initial population; each later call selects parents from
// the current generation, varies them and selects survivors.
type GenerationCreator struct {
	populators Populators
	opts       CreatorOptions
	rng        *rand.Rand

	started bool
	current genotype.Population
}

func NewGenerationCreator(populators Populators, opts CreatorOptions, rng *rand.Rand) (*GenerationCreator, error) {
	if populators.Initial == nil {
		return nil, fmt.Errorf("initial population is required")
	}
	if populators.Parents == nil {
		return nil, fmt.Errorf("parent selection is required")
	}
	if populators.Survivors == nil {
		return nil, fmt.Errorf("survivor selection is required")
	}
	if opts.GenerationSize <= 0 {
		return nil, fmt.Errorf("generation size must be > 0")
	}
	if opts.ParentsSize <= 0 {
		return nil, fmt.Errorf("parents size must be > 0")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &GenerationCreator{populators: populators, opts: opts, rng: rng}, nil
}

// Current returns the latest generation, nil before the first Next.
func (c *GenerationCreator) Current() genotype.Population {
	return c.current
}

func (c *GenerationCreator) Next(ctx context.Context) (genotype.Population, error) {
	if !c.started {
		p, err := c.populators.Initial(ctx, c.rng, c.opts.GenerationSize)
		if err != nil {
			return nil, fmt.Errorf("initial population: %w", err)
		}
		c.current, c.started = p, true
		return p, nil
	}
	parents, err := c.populators.Parents(ctx, c.rng, c.opts.ParentsSize, c.current)
	if err != nil {
		return nil, fmt.Errorf("parent selection: %w", err)
	}
	offspring, err := c.opts.Variation.Apply(c.rng, parents)
	if err != nil {
		return nil, err
	}
	next, err := c.populators.Survivors(ctx, c.rng, c.opts.GenerationSize, c.current, offspring)
	if err != nil {
		return nil, fmt.Errorf("survivor selection: %w", err)
	}
	c.current = next
	return next, nil
}
