package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"evochain/internal/model"
	evoapi "evochain/pkg/evochain"
)

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	payload := map[string]any{
		"run_id": "cfg-run",
		"genes": []any{
			map[string]any{"name": "x", "kind": "float", "min": -1.5, "max": 2},
			map[string]any{"name": "c", "kind": "char", "min": "a", "max": "z"},
			map[string]any{"name": "b", "kind": "bool", "min": false, "max": true},
		},
		"command": map[string]any{
			"path":          "./score.sh",
			"args":          []any{"{x}", "{c}", "{id}"},
			"incalculable":  "nope",
			"fail_on_error": true,
		},
		"feasibility":               "x > 0",
		"population":                40,
		"parents":                   80,
		"selection":                 "sus",
		"survivors":                 "roulette",
		"mutation":                  "gaussian",
		"mutation_sigma":            0.3,
		"mutation_probability":      0.25,
		"recombination":             "uniform",
		"recombination_probability": 0.9,
		"generations":               60,
		"plateau_window":            10,
		"plateau_fraction":          0.05,
		"seed":                      77,
		"workers":                   3,
		"top_k":                     7,
		"write_individuals":         true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.RunID != "cfg-run" || req.Seed != 77 || req.Workers != 3 || req.TopK != 7 || !req.WriteIndividuals {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	want := []model.GeneSpec{
		{Name: "x", Kind: "float", Min: -1.5, Max: 2},
		{Name: "c", Kind: "char", Min: 'a', Max: 'z'},
		{Name: "b", Kind: "bool", Min: 0, Max: 1},
	}
	if len(req.Genes) != len(want) {
		t.Fatalf("unexpected genes: %+v", req.Genes)
	}
	for i := range want {
		if req.Genes[i] != want[i] {
			t.Fatalf("gene %d: expected %+v, got %+v", i, want[i], req.Genes[i])
		}
	}
	if req.Command == nil || req.Command.Path != "./score.sh" || len(req.Command.Args) != 3 || !req.Command.FailOnError || req.Command.Incalculable != "nope" {
		t.Fatalf("unexpected command: %+v", req.Command)
	}
	if req.Population != 40 || req.Parents != 80 || req.Selection != "sus" || req.Survivors != "roulette" {
		t.Fatalf("unexpected selection fields: %+v", req)
	}
	if req.MutationProbability == nil || req.RecombinationProbability == nil {
		t.Fatalf("expected operator probabilities to be set: %+v", req)
	}
	if req.MutationSigma != 0.3 || *req.MutationProbability != 0.25 || req.Recombination != "uniform" || *req.RecombinationProbability != 0.9 {
		t.Fatalf("unexpected variation fields: %+v", req)
	}
	if req.Generations != 60 || req.PlateauWindow != 10 || req.PlateauFraction != 0.05 || req.Feasibility != "x > 0" {
		t.Fatalf("unexpected termination fields: %+v", req)
	}
}

func TestLoadRunRequestRejectsBadGene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	if err := os.WriteFile(path, []byte(`{"genes": [{"kind": "float", "min": "low"}]}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected bad bound error")
	}
	if _, err := loadOrDefaultRunRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing config error")
	}
}

func TestParseGeneFlag(t *testing.T) {
	spec, err := parseGeneFlag("letter:char:a:f")
	if err != nil {
		t.Fatalf("parse gene: %v", err)
	}
	if spec.Name != "letter" || spec.Kind != "char" || spec.Min != 'a' || spec.Max != 'f' {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	spec, err = parseGeneFlag(":int:-3:7")
	if err != nil || spec.Name != "" || spec.Min != -3 || spec.Max != 7 {
		t.Fatalf("unexpected spec: %+v err=%v", spec, err)
	}
	for _, bad := range []string{"x:int:1", "x:int:one:2", "x:float:0:2:3"} {
		if _, err := parseGeneFlag(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestOverrideFromFlags(t *testing.T) {
	req := evoapi.RunRequest{Objective: "x", Population: 10, Generations: 5}
	set := map[string]bool{"cmd": true, "gens": true, "seed": true, "gene": true}
	values := map[string]any{
		"cmd":  "./score --x {x}",
		"gens": 9,
		"pop":  99,
		"seed": uint64(4),
		"gene": geneFlags{{Name: "x", Kind: "float", Min: 0, Max: 1}},
	}
	if err := overrideFromFlags(&req, set, values); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Objective != "" || req.Command == nil || req.Command.Path != "./score" || len(req.Command.Args) != 2 {
		t.Fatalf("expected command to replace expression: %+v", req)
	}
	if req.Generations != 9 || req.Population != 10 || req.Seed != 4 || len(req.Genes) != 1 {
		t.Fatalf("unexpected override result: %+v", req)
	}
	if err := overrideFromFlags(&req, map[string]bool{"cmd": true}, map[string]any{"cmd": "  "}); err == nil {
		t.Fatal("expected empty command error")
	}
}
