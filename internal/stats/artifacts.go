package stats

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	individualsFile = "individuals.csv"
)

var exportFiles = []string{"config.json", "fitness_history.json", "generation_summaries.json", "top_genotypes.json"}

type RunArtifacts struct {
	Config           model.RunRecord           `json:"config"`
	BestByGeneration []float64                 `json:"best_by_generation"`
	FinalBestFitness float64                   `json:"final_best_fitness"`
	Summaries        []model.GenerationSummary `json:"generation_summaries"`
	TopGenotypes     []model.TopGenotypeRecord `json:"top_genotypes"`
}

type fitnessHistoryFile struct {
	BestByGeneration []model.Fitness `json:"best_by_generation"`
	FinalBestFitness model.Fitness   `json:"final_best_fitness"`
}

type RunIndexEntry struct {
	RunID            string        `json:"run_id"`
	Objective        string        `json:"objective"`
	PopulationSize   int           `json:"population_size"`
	Generations      int           `json:"generations"`
	Seed             uint64        `json:"seed"`
	FinalBestFitness model.Fitness `json:"final_best_fitness"`
	CreatedAtUTC     string        `json:"created_at_utc"`
}

// IndexEntry derives the index line of a run record.
func IndexEntry(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:            run.ID,
		Objective:        run.Objective,
		PopulationSize:   run.PopulationSize,
		Generations:      run.Generations,
		Seed:             run.Seed,
		FinalBestFitness: run.BestFitness,
		CreatedAtUTC:     run.CreatedAtUTC,
	}
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if err := sanitizeRunID(artifacts.Config.ID); err != nil {
		return "", err
	}

	runDir := filepath.Join(baseDir, artifacts.Config.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), fitnessHistoryFile{
		BestByGeneration: model.Fitnesses(artifacts.BestByGeneration),
		FinalBestFitness: model.Fitness(artifacts.FinalBestFitness),
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_summaries.json"), artifacts.Summaries); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "top_genotypes.json"), artifacts.TopGenotypes); err != nil {
		return "", err
	}

	return runDir, nil
}

// WriteIndividuals writes one CSV row per member of every generation:
// generation, gene values, fitness. Incalculable fitness is left empty.
func WriteIndividuals(ctx context.Context, runDir string, ff fitness.Function, history evo.History) error {
	file, err := os.Create(filepath.Join(runDir, individualsFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	width := 0
	if len(history) > 0 && len(history[0]) > 0 {
		width = history[0][0].Len()
	}
	header := []string{"generation"}
	for i := 0; i < width; i++ {
		header = append(header, "x"+strconv.Itoa(i))
	}
	header = append(header, "fitness")
	if err := writer.Write(header); err != nil {
		return err
	}
	for gen, p := range history {
		fs, err := ff.EvaluatePopulation(ctx, p)
		if err != nil {
			return err
		}
		for i, g := range p {
			row := make([]string, 0, g.Len()+2)
			row = append(row, strconv.Itoa(gen))
			for j := 0; j < g.Len(); j++ {
				row = append(row, g.At(j).ValueString())
			}
			if fitness.IsCalculable(fs[i]) {
				row = append(row, strconv.FormatFloat(fs[i], 'g', -1, 64))
			} else {
				row = append(row, "")
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadIndividuals returns the rows written by WriteIndividuals, header
// first.
func ReadIndividuals(baseDir, runID string) ([][]string, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, individualsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// readRunIndex returns the index in append order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appended entries win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if err := sanitizeRunID(runID); err != nil {
		return "", err
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range exportFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	individualsPath := filepath.Join(src, individualsFile)
	if _, err := os.Stat(individualsPath); err == nil {
		if err := copyFile(individualsPath, filepath.Join(dst, individualsFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (model.RunRecord, bool, error) {
	var cfg model.RunRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, "config.json"), &cfg)
	return cfg, ok, err
}

func ReadFitnessHistory(baseDir, runID string) ([]float64, bool, error) {
	var history fitnessHistoryFile
	ok, err := readJSON(filepath.Join(baseDir, runID, "fitness_history.json"), &history)
	return model.Floats(history.BestByGeneration), ok, err
}

func ReadTopGenotypes(baseDir, runID string) ([]model.TopGenotypeRecord, bool, error) {
	var top []model.TopGenotypeRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, "top_genotypes.json"), &top)
	return top, ok, err
}

func ReadGenerationSummaries(baseDir, runID string) ([]model.GenerationSummary, bool, error) {
	var summaries []model.GenerationSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, "generation_summaries.json"), &summaries)
	return summaries, ok, err
}

func readJSON(path string, into any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// sanitizeRunID rejects ids that would escape the artifacts directory.
func sanitizeRunID(runID string) error {
	if strings.TrimSpace(runID) == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}
