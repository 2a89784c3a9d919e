package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"evochain/internal/model"
	evoapi "evochain/pkg/evochain"
)

func loadRunRequestFromConfig(path string) (evoapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evoapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return evoapi.RunRequest{}, err
	}

	var req evoapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if genes, ok := raw["genes"].([]any); ok {
		specs, err := asGeneSpecs(genes)
		if err != nil {
			return evoapi.RunRequest{}, err
		}
		req.Genes = specs
	}
	if v, ok := asString(raw["objective"]); ok {
		req.Objective = v
	}
	if cmd, ok := raw["command"].(map[string]any); ok {
		req.Command = asCommand(cmd)
	}
	if v, ok := asString(raw["feasibility"]); ok {
		req.Feasibility = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["parents"]); ok {
		req.Parents = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asString(raw["survivors"]); ok {
		req.Survivors = v
	}
	if v, ok := asString(raw["mutation"]); ok {
		req.Mutation = v
	}
	if v, ok := asFloat64(raw["mutation_sigma"]); ok {
		req.MutationSigma = v
	}
	if v, ok := asFloat64(raw["reset_rate"]); ok {
		req.ResetRate = v
	}
	if v, ok := asFloat64(raw["mutation_probability"]); ok {
		req.MutationProbability = &v
	}
	if v, ok := asString(raw["recombination"]); ok {
		req.Recombination = v
	}
	if v, ok := asFloat64(raw["recombination_probability"]); ok {
		req.RecombinationProbability = &v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["plateau_window"]); ok {
		req.PlateauWindow = v
	}
	if v, ok := asFloat64(raw["plateau_fraction"]); ok {
		req.PlateauFraction = v
	}
	if v, ok := asInt(raw["sample_attempts"]); ok {
		req.SampleAttempts = v
	}
	if v, ok := asUint64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt(raw["top_k"]); ok {
		req.TopK = v
	}
	if v, ok := asBool(raw["write_individuals"]); ok {
		req.WriteIndividuals = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (evoapi.RunRequest, error) {
	if configPath == "" {
		return evoapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return evoapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func asGeneSpecs(items []any) ([]model.GeneSpec, error) {
	out := make([]model.GeneSpec, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("gene %d: expected object", i)
		}
		var spec model.GeneSpec
		spec.Name, _ = asString(m["name"])
		spec.Kind, _ = asString(m["kind"])
		lo, err := asBound(m["min"], spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("gene %d min: %w", i, err)
		}
		hi, err := asBound(m["max"], spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("gene %d max: %w", i, err)
		}
		spec.Min, spec.Max = lo, hi
		out = append(out, spec)
	}
	return out, nil
}

// asBound reads a gene bound. Char bounds may be given as one character
// strings, bool bounds as true/false.
func asBound(v any, kind string) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		if kind == "char" && utf8.RuneCountInString(x) == 1 {
			r, _ := utf8.DecodeRuneInString(x)
			return float64(r), nil
		}
		return strconv.ParseFloat(x, 64)
	default:
		f, ok := asFloat64(v)
		if !ok {
			return 0, fmt.Errorf("unsupported bound %v", v)
		}
		return f, nil
	}
}

func asCommand(m map[string]any) *evoapi.CommandObjective {
	cmd := &evoapi.CommandObjective{}
	cmd.Path, _ = asString(m["path"])
	if args, ok := m["args"].([]any); ok {
		for _, a := range args {
			if s, ok := asString(a); ok {
				cmd.Args = append(cmd.Args, s)
			}
		}
	}
	cmd.Incalculable, _ = asString(m["incalculable"])
	cmd.FailOnError, _ = asBool(m["fail_on_error"])
	return cmd
}

// parseGeneFlag reads name:kind:min:max. The name may be empty.
func parseGeneFlag(value string) (model.GeneSpec, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return model.GeneSpec{}, fmt.Errorf("gene %q: want name:kind:min:max", value)
	}
	spec := model.GeneSpec{Name: parts[0], Kind: parts[1]}
	lo, err := asBound(parts[2], spec.Kind)
	if err != nil {
		return model.GeneSpec{}, fmt.Errorf("gene %q min: %w", value, err)
	}
	hi, err := asBound(parts[3], spec.Kind)
	if err != nil {
		return model.GeneSpec{}, fmt.Errorf("gene %q max: %w", value, err)
	}
	spec.Min, spec.Max = lo, hi
	return spec, nil
}

type geneFlags []model.GeneSpec

func (g *geneFlags) String() string {
	parts := make([]string, len(*g))
	for i, spec := range *g {
		parts[i] = fmt.Sprintf("%s:%s:%v:%v", spec.Name, spec.Kind, spec.Min, spec.Max)
	}
	return strings.Join(parts, ",")
}

func (g *geneFlags) Set(value string) error {
	spec, err := parseGeneFlag(value)
	if err != nil {
		return err
	}
	*g = append(*g, spec)
	return nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *evoapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "gene":
			req.Genes = append([]model.GeneSpec(nil), v.(geneFlags)...)
		case "expr":
			req.Objective = v.(string)
			req.Command = nil
		case "cmd":
			fields := strings.Fields(v.(string))
			if len(fields) == 0 {
				return fmt.Errorf("cmd must name a program")
			}
			req.Command = &evoapi.CommandObjective{Path: fields[0], Args: fields[1:]}
			req.Objective = ""
		case "feasibility":
			req.Feasibility = v.(string)
		case "pop":
			req.Population = v.(int)
		case "parents":
			req.Parents = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "survivors":
			req.Survivors = v.(string)
		case "mutation":
			req.Mutation = v.(string)
		case "sigma":
			req.MutationSigma = v.(float64)
		case "reset-rate":
			req.ResetRate = v.(float64)
		case "mutation-prob":
			p := v.(float64)
			req.MutationProbability = &p
		case "recombination":
			req.Recombination = v.(string)
		case "recombination-prob":
			p := v.(float64)
			req.RecombinationProbability = &p
		case "gens":
			req.Generations = v.(int)
		case "plateau-window":
			req.PlateauWindow = v.(int)
		case "plateau-frac":
			req.PlateauFraction = v.(float64)
		case "seed":
			req.Seed = v.(uint64)
		case "workers":
			req.Workers = v.(int)
		case "top":
			req.TopK = v.(int)
		case "individuals":
			req.WriteIndividuals = v.(bool)
		}
	}
	return nil
}
