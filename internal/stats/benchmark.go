package stats

import (
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"evochain/internal/fitness"
	"evochain/internal/model"
)

const benchmarkFile = "benchmark_summary.json"

// BenchmarkReport aggregates repeated runs of one configuration.
type BenchmarkReport struct {
	RunIDs      []string        `json:"run_ids"`
	FinalBest   []model.Fitness `json:"final_best"`
	Goal        *float64        `json:"goal,omitempty"`
	SuccessRuns int             `json:"success_runs"`
	SuccessRate float64         `json:"success_rate"`
	BestMean    float64         `json:"best_mean"`
	BestStd     float64         `json:"best_std"`
	BestMax     float64         `json:"best_max"`
	BestMin     float64         `json:"best_min"`
	Calculable  int             `json:"calculable_runs"`
}

// BuildBenchmarkReport summarizes the final best fitness of each run. With
// goal set a run succeeds once its final best reaches it.
func BuildBenchmarkReport(runIDs []string, finalBest []float64, goal *float64) BenchmarkReport {
	report := BenchmarkReport{
		RunIDs:    append([]string(nil), runIDs...),
		FinalBest: model.Fitnesses(finalBest),
		Goal:      goal,
	}
	cal, _ := fitness.SelectCalculable(finalBest, false)
	report.Calculable = len(cal)
	if len(cal) == 0 {
		return report
	}
	report.BestMean, report.BestStd = stat.MeanStdDev(cal, nil)
	if len(cal) == 1 {
		report.BestStd = 0
	}
	report.BestMax = floats.Max(cal)
	report.BestMin = floats.Min(cal)
	if goal != nil {
		for _, f := range cal {
			if f >= *goal {
				report.SuccessRuns++
			}
		}
		report.SuccessRate = float64(report.SuccessRuns) / float64(len(finalBest))
	}
	return report
}

func WriteBenchmarkReport(dir string, report BenchmarkReport) error {
	return writeJSON(filepath.Join(dir, benchmarkFile), report)
}

func ReadBenchmarkReport(dir string) (BenchmarkReport, bool, error) {
	var report BenchmarkReport
	ok, err := readJSON(filepath.Join(dir, benchmarkFile), &report)
	return report, ok, err
}
