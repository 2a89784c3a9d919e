// Package random wraps math/rand/v2 sources for the evolution engine.
//
// Every consumer takes an explicit *rand.Rand. Workers that run in parallel
// get their own stream from Split so a fixed seed reproduces a run.
package random

import (
	"math"
	"math/rand/v2"

	"evochain/internal/interval"
)

const streamSalt = 0x9e3779b97f4a7c15

// New returns a PCG backed source. Seed 0 picks a random seed.
func New(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^streamSalt))
}

// Split derives an independent child stream from rng.
func Split(rng *rand.Rand) *rand.Rand {
	return rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
}

// SplitN derives n child streams in order.
func SplitN(rng *rand.Rand, n int) []*rand.Rand {
	out := make([]*rand.Rand, n)
	for i := range out {
		out[i] = Split(rng)
	}
	return out
}

// Success reports true with probability p.
func Success(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// Uniform draws from [lo, hi] for integers and [lo, hi) for floats.
// lo == hi returns lo. Callers guarantee lo <= hi.
func Uniform[T interval.Number](rng *rand.Rand, lo, hi T) T {
	if lo >= hi {
		return lo
	}
	if interval.IsFloat[T]() {
		return uniformFloat(rng, lo, hi)
	}
	span := uint64(hi) - uint64(lo)
	var off uint64
	if span == math.MaxUint64 {
		off = rng.Uint64()
	} else {
		off = rng.Uint64N(span + 1)
	}
	return T(uint64(lo) + off)
}

func uniformFloat[T interval.Number](rng *rand.Rand, lo, hi T) T {
	span := hi - lo
	if math.IsInf(float64(span), 0) {
		// Halves have equal width so a fair coin keeps the draw uniform.
		mid := interval.Midpoint(lo, hi)
		if rng.IntN(2) == 0 {
			return uniformFloat(rng, lo, mid)
		}
		return uniformFloat(rng, mid, hi)
	}
	for {
		v := lo + T(rng.Float64())*span
		if v < hi {
			return v
		}
	}
}

// Bool draws a fair coin unless lo == hi.
func Bool(rng *rand.Rand, lo, hi bool) bool {
	if lo == hi {
		return lo
	}
	return rng.IntN(2) == 1
}

// Normal draws from N(mean, sd).
func Normal(rng *rand.Rand, mean, sd float64) float64 {
	return mean + rng.NormFloat64()*sd
}

// Index returns a uniform index in [0, n).
func Index(rng *rand.Rand, n int) int {
	return rng.IntN(n)
}
