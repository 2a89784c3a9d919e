package fitness

import (
	"context"

	"evochain/internal/genotype"
)

// PopulationMax returns the best calculable fitness in p.
func (f Function) PopulationMax(ctx context.Context, p genotype.Population) (float64, error) {
	fs, err := f.EvaluatePopulation(ctx, p)
	if err != nil {
		return Incalculable, err
	}
	return Max(fs), nil
}

// PopulationMin returns the worst calculable fitness in p.
func (f Function) PopulationMin(ctx context.Context, p genotype.Population) (float64, error) {
	fs, err := f.EvaluatePopulation(ctx, p)
	if err != nil {
		return Incalculable, err
	}
	return Min(fs), nil
}

// GenerationsMax returns the best fitness of each generation.
func (f Function) GenerationsMax(ctx context.Context, history []genotype.Population) ([]float64, error) {
	out := make([]float64, len(history))
	for i, p := range history {
		v, err := f.PopulationMax(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// GenerationsMin returns the worst fitness of each generation.
func (f Function) GenerationsMin(ctx context.Context, history []genotype.Population) ([]float64, error) {
	out := make([]float64, len(history))
	for i, p := range history {
		v, err := f.PopulationMin(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Best returns the member of p with the highest calculable fitness.
func (f Function) Best(ctx context.Context, p genotype.Population) (*genotype.Genotype, float64, error) {
	fs, err := f.EvaluatePopulation(ctx, p)
	if err != nil {
		return nil, Incalculable, err
	}
	idx := ArgMax(fs)
	if idx < 0 {
		return nil, Incalculable, nil
	}
	return p[idx], fs[idx], nil
}
