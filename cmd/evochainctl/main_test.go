package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evochain/internal/stats"
)

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func sineArgs(command, artifactsDir string) []string {
	return []string{
		command,
		"--store", "memory",
		"--artifacts-dir", artifactsDir,
		"--gene", "x:float:0:3",
		"--expr", "sin(2 * x)",
		"--pop", "20",
		"--gens", "5",
		"--seed", "11",
		"--workers", "2",
	}
}

func TestRunCommandCreatesArtifacts(t *testing.T) {
	artifactsDir := filepath.Join(t.TempDir(), "runs")
	out, err := captureStdout(func() error {
		return run(context.Background(), append(sineArgs("run", artifactsDir), "--individuals"))
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "run completed run_id=") || !strings.Contains(out, "final_best_fitness=") {
		t.Fatalf("unexpected run output: %s", out)
	}

	entries, err := stats.ListRunIndex(artifactsDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	runID := entries[0].RunID
	for _, file := range []string{"config.json", "fitness_history.json", "generation_summaries.json", "top_genotypes.json", "individuals.csv"} {
		if _, err := os.Stat(filepath.Join(artifactsDir, runID, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}
	cfg, ok, err := stats.ReadRunConfig(artifactsDir, runID)
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if cfg.Seed != 11 || cfg.PopulationSize != 20 || cfg.ParentsSize != 40 || cfg.Objective != "sin(2 * x)" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestReadCommandsUseArtifacts(t *testing.T) {
	base := t.TempDir()
	artifactsDir := filepath.Join(base, "runs")
	if _, err := captureStdout(func() error {
		return run(context.Background(), sineArgs("run", artifactsDir))
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}

	common := []string{"--store", "memory", "--artifacts-dir", artifactsDir}

	out, err := captureStdout(func() error {
		return run(context.Background(), append([]string{"runs"}, common...))
	})
	if err != nil || !strings.Contains(out, `objective="sin(2 * x)"`) {
		t.Fatalf("runs command: err=%v out=%s", err, out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), append([]string{"fitness", "--latest"}, common...))
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	if got := strings.Count(out, "best_fitness="); got != 5 {
		t.Fatalf("expected 5 generations, got %d: %s", got, out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), append([]string{"fitness", "--latest", "--json"}, common...))
	})
	if err != nil {
		t.Fatalf("fitness json: %v", err)
	}
	var history []float64
	if err := json.Unmarshal([]byte(out), &history); err != nil || len(history) != 5 {
		t.Fatalf("decode fitness json: err=%v history=%v", err, history)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), append([]string{"summaries", "--latest", "--limit", "2"}, common...))
	})
	if err != nil || strings.Count(out, "generation=") != 2 || !strings.Contains(out, "size=20") {
		t.Fatalf("summaries command: err=%v out=%s", err, out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), append([]string{"top", "--latest", "--limit", "3"}, common...))
	})
	if err != nil || !strings.HasPrefix(out, "rank=1 ") || strings.Count(out, "rank=") != 3 {
		t.Fatalf("top command: err=%v out=%s", err, out)
	}

	exportsDir := filepath.Join(base, "exports")
	out, err = captureStdout(func() error {
		return run(context.Background(), append([]string{"export", "--latest", "--exports-dir", exportsDir}, common...))
	})
	if err != nil || !strings.Contains(out, "exported run_id=") {
		t.Fatalf("export command: err=%v out=%s", err, out)
	}
	entries, err := os.ReadDir(exportsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one exported run: err=%v entries=%d", err, len(entries))
	}
}

func TestRunCommandConfigWithFlagOverrides(t *testing.T) {
	base := t.TempDir()
	artifactsDir := filepath.Join(base, "runs")
	configPath := filepath.Join(base, "run.json")
	payload := map[string]any{
		"genes": []any{
			map[string]any{"name": "n", "kind": "int", "min": -5, "max": 5},
		},
		"objective":   "n",
		"population":  10,
		"generations": 8,
		"mutation":    "reset",
		"seed":        5,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "memory",
			"--artifacts-dir", artifactsDir,
			"--config", configPath,
			"--gens", "3",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "generations=3") {
		t.Fatalf("expected gens flag to override config: %s", out)
	}
	entries, err := stats.ListRunIndex(artifactsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list run index: err=%v entries=%d", err, len(entries))
	}
	cfg, _, err := stats.ReadRunConfig(artifactsDir, entries[0].RunID)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if cfg.Seed != 5 || cfg.PopulationSize != 10 || cfg.Mutation != "reset" || cfg.Generations != 3 {
		t.Fatalf("unexpected merged config: %+v", cfg)
	}
}

func TestBenchmarkCommandWritesReport(t *testing.T) {
	artifactsDir := filepath.Join(t.TempDir(), "runs")
	args := append(sineArgs("benchmark", artifactsDir), "--runs", "2", "--goal", "-2", "--gens", "2")
	out, err := captureStdout(func() error {
		return run(context.Background(), args)
	})
	if err != nil {
		t.Fatalf("benchmark command: %v", err)
	}
	if !strings.Contains(out, "success_runs=2") {
		t.Fatalf("unexpected benchmark output: %s", out)
	}
	var dir string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "benchmark_dir=") {
			dir = strings.TrimPrefix(line, "benchmark_dir=")
		}
	}
	report, ok, err := stats.ReadBenchmarkReport(dir)
	if err != nil || !ok || len(report.RunIDs) != 2 {
		t.Fatalf("read benchmark report from %q: ok=%t err=%v", dir, ok, err)
	}
}

func TestCommandErrors(t *testing.T) {
	artifactsDir := filepath.Join(t.TempDir(), "runs")
	cases := map[string][]string{
		"missing command": {},
		"unknown command": {"evolve"},
		"expr and cmd":    append(sineArgs("run", artifactsDir), "--cmd", "echo 1"),
		"bad gene":        {"run", "--gene", "x:float:0"},
		"bad log level":   append(sineArgs("run", artifactsDir), "--log-level", "loud"),
		"fitness target":  {"fitness", "--artifacts-dir", artifactsDir},
		"both targets":    {"top", "--run-id", "a", "--latest", "--artifacts-dir", artifactsDir},
		"export target":   {"export", "--artifacts-dir", artifactsDir},
		"bad runs limit":  {"runs", "--limit", "0", "--artifacts-dir", artifactsDir},
		"bad goal":        append(sineArgs("benchmark", artifactsDir), "--goal", "high"),
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := captureStdout(func() error {
				return run(context.Background(), args)
			}); err == nil {
				t.Fatalf("expected %s to fail", name)
			}
		})
	}
}

func TestRunsCommandWithoutRuns(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--artifacts-dir", filepath.Join(t.TempDir(), "runs")})
	})
	if err != nil || !strings.Contains(out, "no runs found") {
		t.Fatalf("runs command: err=%v out=%s", err, out)
	}
}
