package storage

import (
	"context"
	"math"
	"testing"
)

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), sampleRun("r1", "2026-01-01T00:00:00Z")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := sampleRun("r1", "2026-01-01T00:00:00Z")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	run.Genes[0].Name = "mutated"

	loaded, ok, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if loaded.Genes[0].Name != "x" || loaded.Objective != "sin(2 * x)" {
		t.Fatalf("unexpected run: %+v", loaded)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, run := range []struct{ id, at string }{
		{"old", "2026-01-01T00:00:00Z"},
		{"new", "2026-03-01T00:00:00Z"},
		{"mid", "2026-02-01T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, sampleRun(run.id, run.at)); err != nil {
			t.Fatalf("save run %s: %v", run.id, err)
		}
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "new" || runs[2].ID != "old" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestMemoryStoreFitnessHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []float64{0.1, 0.2, 0.3}
	if err := store.SaveFitnessHistory(ctx, "run-1", input); err != nil {
		t.Fatalf("save history: %v", err)
	}
	output, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted fitness history")
	}
	if len(output) != len(input) || output[2] != input[2] {
		t.Fatalf("unexpected history: %+v", output)
	}
}

func TestMemoryStoreSummariesAndTopRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveGenerationSummaries(ctx, "run-1", sampleSummaries()); err != nil {
		t.Fatalf("save summaries: %v", err)
	}
	summaries, ok, err := store.GetGenerationSummaries(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get summaries: ok=%t err=%v", ok, err)
	}
	if len(summaries) != 2 || !math.IsInf(float64(summaries[1].Best), -1) {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	if err := store.SaveTopGenotypes(ctx, "run-1", sampleTop()); err != nil {
		t.Fatalf("save top: %v", err)
	}
	top, ok, err := store.GetTopGenotypes(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get top: ok=%t err=%v", ok, err)
	}
	top[0].Values[0] = "changed"
	again, _, _ := store.GetTopGenotypes(ctx, "run-1")
	if again[0].Values[0] != "0.78" {
		t.Fatalf("expected stored values to be copied, got %+v", again)
	}
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("r1", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "r1"); !ok {
		t.Fatal("expected init to keep existing runs")
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store after reset, got %d runs", len(runs))
	}
}
