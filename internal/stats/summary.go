package stats

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
	"evochain/internal/model"
	"evochain/internal/storage"
)

// Summarize aggregates every generation of history. Fitness values are read
// through ff, so an evaluated history costs no new computations.
func Summarize(ctx context.Context, ff fitness.Function, history evo.History) ([]model.GenerationSummary, error) {
	out := make([]model.GenerationSummary, 0, len(history))
	for i, p := range history {
		fs, err := ff.EvaluatePopulation(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, SummarizeGeneration(i, p, fs))
	}
	return out, nil
}

// SummarizeGeneration aggregates one generation given its fitness vector.
func SummarizeGeneration(generation int, p genotype.Population, fs []float64) model.GenerationSummary {
	summary := model.GenerationSummary{
		VersionedRecord: storage.Versioned(),
		Generation:      generation,
		Size:            len(p),
		Distinct:        p.Distinct(),
		Best:            model.Fitness(fitness.Incalculable),
		Worst:           model.Fitness(fitness.Incalculable),
		Mean:            model.Fitness(fitness.Incalculable),
		StdDev:          model.Fitness(fitness.Incalculable),
	}
	cal, _ := fitness.SelectCalculable(fs, false)
	summary.Calculable = len(cal)
	if len(cal) == 0 {
		return summary
	}
	mean, std := stat.MeanStdDev(cal, nil)
	if len(cal) == 1 {
		std = 0
	}
	summary.Best = model.Fitness(floats.Max(cal))
	summary.Worst = model.Fitness(floats.Min(cal))
	summary.Mean = model.Fitness(mean)
	summary.StdDev = model.Fitness(std)
	return summary
}

// BestByGeneration extracts the best fitness column of summaries.
func BestByGeneration(summaries []model.GenerationSummary) []float64 {
	out := make([]float64, len(summaries))
	for i, s := range summaries {
		out[i] = float64(s.Best)
	}
	return out
}

// TopGenotypes ranks the k best distinct calculable genotypes seen anywhere
// in history. Each keeps the generation it first appeared in.
func TopGenotypes(ctx context.Context, ff fitness.Function, history evo.History, k int) ([]model.TopGenotypeRecord, error) {
	type candidate struct {
		g          *genotype.Genotype
		fitness    float64
		generation int
	}
	var seen genotype.Population
	index := map[uint64][]int{}
	var candidates []candidate
	for gen, p := range history {
		fs, err := ff.EvaluatePopulation(ctx, p)
		if err != nil {
			return nil, err
		}
		for i, g := range p {
			if !fitness.IsCalculable(fs[i]) {
				continue
			}
			h := g.Hash()
			dup := false
			for _, j := range index[h] {
				if seen[j].Equal(g) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			index[h] = append(index[h], len(seen))
			seen = append(seen, g)
			candidates = append(candidates, candidate{g: g, fitness: fs[i], generation: gen})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].fitness > candidates[j].fitness
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]model.TopGenotypeRecord, len(candidates))
	for i, c := range candidates {
		values := make([]string, c.g.Len())
		for j := range values {
			values[j] = c.g.At(j).ValueString()
		}
		out[i] = model.TopGenotypeRecord{
			VersionedRecord: storage.Versioned(),
			Rank:            i + 1,
			Generation:      c.generation,
			Fitness:         model.Fitness(c.fitness),
			Values:          values,
			Genotype:        c.g.String(),
		}
	}
	return out, nil
}
