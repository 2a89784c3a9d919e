package storage

import (
	"math"

	"evochain/internal/model"
)

func sampleRun(id, created string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		CreatedAtUTC:    created,
		Seed:            42,
		Genes:           []model.GeneSpec{{Name: "x", Kind: "float", Min: -10, Max: 10}},
		Objective:       "sin(2 * x)",
		PopulationSize:  20,
		ParentsSize:     40,
		Selection:       "roulette",
		Survivors:       "generational",
		Mutation:        "gaussian",
		Recombination:   "arithmetic",
		Generations:     5,
		BestFitness:     0.99,
		StopReason:      "iterations",
	}
}

func sampleSummaries() []model.GenerationSummary {
	return []model.GenerationSummary{
		{VersionedRecord: Versioned(), Generation: 0, Size: 20, Distinct: 20, Calculable: 19, Best: 0.8, Worst: 0.1, Mean: 0.4, StdDev: 0.2},
		{VersionedRecord: Versioned(), Generation: 1, Size: 20, Distinct: 12, Calculable: 0, Best: model.Fitness(math.Inf(-1))},
	}
}

func sampleTop() []model.TopGenotypeRecord {
	return []model.TopGenotypeRecord{
		{VersionedRecord: Versioned(), Rank: 1, Generation: 4, Fitness: 0.99, Values: []string{"0.78"}, Genotype: "[ 0.78 in [-10, 10] ]"},
	}
}
