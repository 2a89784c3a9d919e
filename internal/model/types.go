package model

import (
	"encoding/json"
	"math"
	"time"
)

// TimestampLayout is fixed width so stored timestamps order lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp formats t in UTC with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Fitness is a float64 that survives JSON: incalculable and other
// non-finite values encode as null and decode as -Inf.
type Fitness float64

func (f Fitness) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Fitness) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Fitness(math.Inf(-1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Fitness(v)
	return nil
}

// Fitnesses converts a float vector for persistence.
func Fitnesses(fs []float64) []Fitness {
	out := make([]Fitness, len(fs))
	for i, f := range fs {
		out[i] = Fitness(f)
	}
	return out
}

// Floats converts persisted fitness values back.
func Floats(fs []Fitness) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = float64(f)
	}
	return out
}

// GeneSpec describes one gene position of a run's template genotype.
type GeneSpec struct {
	Name string  `json:"name,omitempty"`
	Kind string  `json:"kind"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type RunRecord struct {
	VersionedRecord
	ID             string     `json:"id"`
	CreatedAtUTC   string     `json:"created_at_utc"`
	Seed           uint64     `json:"seed"`
	Genes          []GeneSpec `json:"genes"`
	Objective      string     `json:"objective"`
	Feasibility    string     `json:"feasibility,omitempty"`
	PopulationSize int        `json:"population_size"`
	ParentsSize    int        `json:"parents_size"`
	Selection      string     `json:"selection"`
	Survivors      string     `json:"survivors"`
	Mutation       string     `json:"mutation"`
	Recombination  string     `json:"recombination"`
	Generations    int        `json:"generations"`
	BestFitness    Fitness    `json:"best_fitness"`
	BestGenotype   string     `json:"best_genotype,omitempty"`
	CacheSize      int        `json:"cache_size"`
	StopReason     string     `json:"stop_reason"`
}

// GenerationSummary aggregates the fitness of one generation.
type GenerationSummary struct {
	VersionedRecord
	Generation int     `json:"generation"`
	Size       int     `json:"size"`
	Distinct   int     `json:"distinct"`
	Calculable int     `json:"calculable"`
	Best       Fitness `json:"best"`
	Worst      Fitness `json:"worst"`
	Mean       Fitness `json:"mean"`
	StdDev     Fitness `json:"std_dev"`
}

// TopGenotypeRecord is one of the best genotypes found by a run.
type TopGenotypeRecord struct {
	VersionedRecord
	Rank       int      `json:"rank"`
	Generation int      `json:"generation"`
	Fitness    Fitness  `json:"fitness"`
	Values     []string `json:"values"`
	Genotype   string   `json:"genotype"`
}
