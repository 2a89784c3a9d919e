package evochain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"evochain/internal/stats"
)

type BenchmarkRequest struct {
	Run  RunRequest
	Runs int
	// Goal marks a run successful once its final best fitness reaches it.
	Goal   *float64
	OutDir string
}

type BenchmarkSummary struct {
	ID        string
	Directory string
	Runs      []RunSummary
	Report    stats.BenchmarkReport
}

// Benchmark repeats one run configuration. A non-zero seed is offset by the
// repetition index so every repetition is reproducible on its own.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if req.Runs <= 0 {
		return BenchmarkSummary{}, errors.New("benchmark runs must be > 0")
	}
	id := "bench-" + uuid.NewString()
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(c.artifactsDir, "benchmarks")
	}
	dir := filepath.Join(outDir, id)

	summary := BenchmarkSummary{ID: id, Directory: filepath.Clean(dir)}
	runIDs := make([]string, 0, req.Runs)
	finalBest := make([]float64, 0, req.Runs)
	for i := 0; i < req.Runs; i++ {
		run := req.Run
		run.RunID = fmt.Sprintf("%s-%d", id, i)
		if run.Seed != 0 {
			run.Seed += uint64(i)
		}
		result, err := c.Run(ctx, run)
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("benchmark run %d: %w", i, err)
		}
		summary.Runs = append(summary.Runs, result)
		runIDs = append(runIDs, result.RunID)
		finalBest = append(finalBest, result.FinalBestFitness)
	}

	summary.Report = stats.BuildBenchmarkReport(runIDs, finalBest, req.Goal)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BenchmarkSummary{}, err
	}
	if err := stats.WriteBenchmarkReport(dir, summary.Report); err != nil {
		return BenchmarkSummary{}, err
	}
	return summary, nil
}
