package storage

import (
	"encoding/json"
	"errors"

	"evochain/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the record header for the current schema and codec.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(model.Fitnesses(history))
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []model.Fitness
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return model.Floats(history), nil
}

func EncodeGenerationSummaries(summaries []model.GenerationSummary) ([]byte, error) {
	return json.Marshal(summaries)
}

func DecodeGenerationSummaries(data []byte) ([]model.GenerationSummary, error) {
	var summaries []model.GenerationSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, err
	}
	for _, s := range summaries {
		if err := checkVersion(s.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func EncodeTopGenotypes(top []model.TopGenotypeRecord) ([]byte, error) {
	return json.Marshal(top)
}

func DecodeTopGenotypes(data []byte) ([]model.TopGenotypeRecord, error) {
	var top []model.TopGenotypeRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for _, record := range top {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return top, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
