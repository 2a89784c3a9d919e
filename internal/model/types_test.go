package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestTimestampOrdersLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	whole := Timestamp(base)
	fraction := Timestamp(base.Add(100 * time.Millisecond))
	if whole != "2026-03-01T12:00:05.000000000Z" {
		t.Fatalf("unexpected timestamp %q", whole)
	}
	if !(whole < fraction) {
		t.Fatalf("expected %q to sort before %q", whole, fraction)
	}
	local := time.Date(2026, 3, 1, 14, 0, 5, 0, time.FixedZone("x", 2*60*60))
	if Timestamp(local) != whole {
		t.Fatalf("expected UTC normalization, got %q", Timestamp(local))
	}
}

func TestFitnessJSONHandlesIncalculable(t *testing.T) {
	data, err := json.Marshal([]Fitness{1.5, Fitness(math.Inf(-1)), Fitness(math.NaN())})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1.5,null,null]" {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded []Fitness
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded[0] != 1.5 {
		t.Fatalf("expected 1.5, got %v", decoded[0])
	}
	if !math.IsInf(float64(decoded[1]), -1) {
		t.Fatalf("expected -Inf, got %v", decoded[1])
	}
}

func TestFitnessConversionsRoundTrip(t *testing.T) {
	in := []float64{1, math.Inf(-1), 3}
	out := Floats(Fitnesses(in))
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}
