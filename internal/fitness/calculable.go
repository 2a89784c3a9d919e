package fitness

import (
	"fmt"
	"math"

	"evochain/internal/eaerr"
)

// Incalculable is the fitness of genotypes that could not be scored or are
// infeasible. It orders below every calculable value.
var Incalculable = math.Inf(-1)

// IsCalculable reports whether f is a usable fitness value. NaN is treated
// as incalculable.
func IsCalculable(f float64) bool {
	return !math.IsInf(f, -1) && !math.IsNaN(f)
}

// SelectCalculable returns the calculable values of fs in order. With
// requireNonEmpty set an all-incalculable input fails.
func SelectCalculable(fs []float64, requireNonEmpty bool) ([]float64, error) {
	out := make([]float64, 0, len(fs))
	for _, f := range fs {
		if IsCalculable(f) {
			out = append(out, f)
		}
	}
	if requireNonEmpty && len(out) == 0 {
		return nil, fmt.Errorf("%d fitness values: %w", len(fs), eaerr.ErrNoCalculableFitness)
	}
	return out, nil
}

// Max returns the largest calculable value, or Incalculable when none is.
func Max(fs []float64) float64 {
	best := Incalculable
	for _, f := range fs {
		if IsCalculable(f) && f > best {
			best = f
		}
	}
	return best
}

// Min returns the smallest calculable value, or Incalculable when none is.
func Min(fs []float64) float64 {
	worst, found := 0.0, false
	for _, f := range fs {
		if !IsCalculable(f) {
			continue
		}
		if !found || f < worst {
			worst, found = f, true
		}
	}
	if !found {
		return Incalculable
	}
	return worst
}

// ArgMax returns the index of the largest calculable value, or -1.
func ArgMax(fs []float64) int {
	idx, best := -1, Incalculable
	for i, f := range fs {
		if IsCalculable(f) && (idx < 0 || f > best) {
			idx, best = i, f
		}
	}
	return idx
}
