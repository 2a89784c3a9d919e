package storage

import (
	"context"

	"evochain/internal/model"
)

// Store persists evolution run results. It never holds engine state: runs
// are written once finished and read back for reporting only.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationSummaries(ctx context.Context, runID string, summaries []model.GenerationSummary) error
	GetGenerationSummaries(ctx context.Context, runID string) ([]model.GenerationSummary, bool, error)
	SaveTopGenotypes(ctx context.Context, runID string, top []model.TopGenotypeRecord) error
	GetTopGenotypes(ctx context.Context, runID string) ([]model.TopGenotypeRecord, bool, error)
}
