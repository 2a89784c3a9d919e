//go:build sqlite

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFitnessCommandSQLiteReadsPersistedHistory(t *testing.T) {
	base := t.TempDir()
	artifactsDir := filepath.Join(base, "runs")
	dbPath := filepath.Join(base, "evochain.db")
	args := append(sineArgs("run", artifactsDir), "--run-id", "sqlite-run")
	args[2] = "sqlite"
	args = append(args, "--db-path", dbPath)
	if _, err := captureStdout(func() error {
		return run(context.Background(), args)
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}

	// Removing the artifacts proves the history comes from the database.
	if err := os.RemoveAll(filepath.Join(artifactsDir, "sqlite-run")); err != nil {
		t.Fatalf("remove artifacts: %v", err)
	}
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"fitness",
			"--store", "sqlite",
			"--db-path", dbPath,
			"--artifacts-dir", artifactsDir,
			"--run-id", "sqlite-run",
		})
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	if got := strings.Count(out, "best_fitness="); got != 5 {
		t.Fatalf("expected 5 generations, got %d: %s", got, out)
	}

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"reset", "--store", "sqlite", "--db-path", dbPath})
	}); err != nil {
		t.Fatalf("reset command: %v", err)
	}
	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"fitness",
			"--store", "sqlite",
			"--db-path", dbPath,
			"--artifacts-dir", artifactsDir,
			"--run-id", "sqlite-run",
		})
	}); err == nil {
		t.Fatal("expected history to be gone after reset")
	}
}
