package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"evochain/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	history     map[string][]float64
	summaries   map[string][]model.GenerationSummary
	topGenotype map[string][]model.TopGenotypeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.resetLocked()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.resetLocked()
	return nil
}

func (s *MemoryStore) resetLocked() {
	s.runs = make(map[string]model.RunRecord)
	s.history = make(map[string][]float64)
	s.summaries = make(map[string][]model.GenerationSummary)
	s.topGenotype = make(map[string][]model.TopGenotypeRecord)
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	run.Genes = append([]model.GeneSpec(nil), run.Genes...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return model.RunRecord{}, false, err
	}
	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	run.Genes = append([]model.GeneSpec(nil), run.Genes...)
	return run, true, nil
}

// ListRuns returns runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.Genes = append([]model.GeneSpec(nil), run.Genes...)
		out = append(out, run)
	}
	sortRuns(out)
	return out, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationSummaries(_ context.Context, runID string, summaries []model.GenerationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	s.summaries[runID] = append([]model.GenerationSummary(nil), summaries...)
	return nil
}

func (s *MemoryStore) GetGenerationSummaries(_ context.Context, runID string) ([]model.GenerationSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	summaries, ok := s.summaries[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationSummary(nil), summaries...), true, nil
}

func (s *MemoryStore) SaveTopGenotypes(_ context.Context, runID string, top []model.TopGenotypeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	s.topGenotype[runID] = cloneTop(top)
	return nil
}

func (s *MemoryStore) GetTopGenotypes(_ context.Context, runID string) ([]model.TopGenotypeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	top, ok := s.topGenotype[runID]
	if !ok {
		return nil, false, nil
	}
	return cloneTop(top), true, nil
}

func cloneTop(top []model.TopGenotypeRecord) []model.TopGenotypeRecord {
	out := append([]model.TopGenotypeRecord(nil), top...)
	for i := range out {
		out[i].Values = append([]string(nil), out[i].Values...)
	}
	return out
}

func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}
