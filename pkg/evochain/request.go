package evochain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
	"evochain/internal/model"
)

const (
	defaultPopulation      = 100
	defaultGenerations     = 100
	defaultMutationSigma   = 0.1
	defaultResetRate       = 0.1
	defaultMutationProb    = 0.5
	defaultRecombineProb   = 1.0
	defaultPlateauFraction = 0.01
	defaultSampleAttempts  = 10000
)

func applyRunDefaults(req *RunRequest) error {
	if len(req.Genes) == 0 {
		return errors.New("at least one gene is required")
	}
	if req.RunID == "" {
		req.RunID = newRunID()
	}
	if req.Population <= 0 {
		req.Population = defaultPopulation
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.Selection == "" {
		req.Selection = "roulette"
	}
	if req.Survivors == "" {
		req.Survivors = "generational"
	}
	if req.Mutation == "" {
		req.Mutation = "gaussian"
	}
	if req.MutationSigma <= 0 {
		req.MutationSigma = defaultMutationSigma
	}
	if req.ResetRate <= 0 {
		req.ResetRate = defaultResetRate
	}
	if req.MutationProbability == nil {
		p := defaultMutationProb
		req.MutationProbability = &p
	}
	if req.Recombination == "" {
		req.Recombination = "arithmetic"
	}
	if req.RecombinationProbability == nil {
		p := defaultRecombineProb
		req.RecombinationProbability = &p
	}
	if req.PlateauWindow > 0 && req.PlateauFraction <= 0 {
		req.PlateauFraction = defaultPlateauFraction
	}
	if req.SampleAttempts <= 0 {
		req.SampleAttempts = defaultSampleAttempts
	}
	if req.Parents <= 0 {
		// One child per pair needs twice the parents to refill a generation.
		req.Parents = req.Population
		if req.Recombination == "arithmetic" {
			req.Parents = 2 * req.Population
		}
	}
	for _, p := range []float64{*req.MutationProbability, *req.RecombinationProbability} {
		if p < 0 || p > 1 {
			return fmt.Errorf("operator probability must be in [0, 1], got %v", p)
		}
	}
	if req.ResetRate > 1 {
		return errors.New("reset rate must be <= 1")
	}
	if req.Parents%2 != 0 {
		return fmt.Errorf("parents must be even, got %d", req.Parents)
	}
	if req.PlateauWindow < 0 {
		return errors.New("plateau window must be >= 0")
	}
	return nil
}

// buildTemplate turns gene specs into the template genotype sampled by the
// initial population, and the names genes are bound to in objectives.
func buildTemplate(specs []model.GeneSpec) (*genotype.Genotype, []string, error) {
	genes := make([]genotype.Gene, 0, len(specs))
	names := make([]string, len(specs))
	for i, spec := range specs {
		g, err := geneFromSpec(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("gene %d: %w", i, err)
		}
		genes = append(genes, g)
		names[i] = spec.Name
	}
	return genotype.New(genes...), names, nil
}

func geneFromSpec(spec model.GeneSpec) (genotype.Gene, error) {
	switch strings.ToLower(spec.Kind) {
	case "float", "":
		return gene(genotype.NewNumber(spec.Min, spec.Min, spec.Max))
	case "int":
		lo, hi, err := integralBounds(spec)
		if err != nil {
			return nil, err
		}
		return gene(genotype.NewNumber(int(lo), int(lo), int(hi)))
	case "char":
		lo, hi, err := integralBounds(spec)
		if err != nil {
			return nil, err
		}
		if lo < 0 || hi > math.MaxInt32 {
			return nil, fmt.Errorf("char bounds [%v, %v] out of range", spec.Min, spec.Max)
		}
		return gene(genotype.NewNumber(genotype.Char(lo), genotype.Char(lo), genotype.Char(hi)))
	case "bool":
		lo, hi := spec.Min != 0, spec.Max != 0
		if spec.Min == 0 && spec.Max == 0 {
			hi = true
		}
		return gene(genotype.NewBool(lo, lo, hi))
	default:
		return nil, fmt.Errorf("unsupported gene kind: %s", spec.Kind)
	}
}

func gene[G genotype.Gene](g G, err error) (genotype.Gene, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}

func integralBounds(spec model.GeneSpec) (float64, float64, error) {
	lo, hi := math.Ceil(spec.Min), math.Floor(spec.Max)
	if lo > hi {
		return 0, 0, fmt.Errorf("no integer in [%v, %v]", spec.Min, spec.Max)
	}
	if lo < math.MinInt64 || hi > math.MaxInt64 {
		return 0, 0, fmt.Errorf("bounds [%v, %v] overflow int", spec.Min, spec.Max)
	}
	return lo, hi, nil
}

func selectionFromName(name string, ff fitness.Function) (evo.ParentSelector, error) {
	switch name {
	case "roulette":
		return evo.RouletteWheel(evo.FitnessProportional(ff)), nil
	case "sus":
		return evo.StochasticUniversalSampling(evo.FitnessProportional(ff)), nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

func survivorsFromName(name string, ff fitness.Function) (evo.SurvivorSelector, error) {
	if name == "generational" {
		return evo.GenerationalSurvivorSelection, nil
	}
	selector, err := selectionFromName(name, ff)
	if err != nil {
		return nil, fmt.Errorf("unsupported survivor selection: %s", name)
	}
	return evo.Adapter(selector), nil
}

func variationFromRequest(req RunRequest) (evo.Variation, error) {
	var mutate evo.Mutation
	switch req.Mutation {
	case "gaussian":
		mutate = evo.GaussianMutation[float64](req.MutationSigma)
	case "reset":
		mutate = evo.ResetMutation(req.ResetRate)
	case "none":
		mutate = evo.UnaryIdentity
	default:
		return evo.Variation{}, fmt.Errorf("unsupported mutation: %s", req.Mutation)
	}
	var recombine evo.Recombination
	switch req.Recombination {
	case "arithmetic":
		recombine = evo.ArithmeticRecombination
	case "uniform":
		recombine = evo.UniformCrossover
	case "none":
		recombine = evo.BinaryIdentity
	default:
		return evo.Variation{}, fmt.Errorf("unsupported recombination: %s", req.Recombination)
	}
	return evo.NewVariation(
		evo.StochasticMutation(mutate, *req.MutationProbability),
		evo.StochasticRecombination(recombine, *req.RecombinationProbability),
	), nil
}
