// Package interval provides closed intervals over ordered scalar types.
package interval

import (
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"

	"evochain/internal/eaerr"
)

// Number is the set of scalar types genes can carry.
type Number interface {
	constraints.Integer | constraints.Float
}

// Interval is the closed range [min, max] with min <= max.
type Interval[T constraints.Ordered] struct {
	min T
	max T
}

// New returns [min, max]. It fails when min > max or either bound is NaN.
func New[T constraints.Ordered](min, max T) (Interval[T], error) {
	if min != min || max != max {
		return Interval[T]{}, fmt.Errorf("interval bounds must not be NaN: %w", eaerr.ErrInvalidArgument)
	}
	if min > max {
		return Interval[T]{}, fmt.Errorf("interval [%v, %v] has min > max: %w", min, max, eaerr.ErrInvalidArgument)
	}
	return Interval[T]{min: min, max: max}, nil
}

// Must is New for bounds known to be valid; it panics otherwise.
func Must[T constraints.Ordered](min, max T) Interval[T] {
	iv, err := New(min, max)
	if err != nil {
		panic(err)
	}
	return iv
}

// Point returns [v, v].
func Point[T constraints.Ordered](v T) Interval[T] {
	return Interval[T]{min: v, max: v}
}

func (iv Interval[T]) Min() T { return iv.min }
func (iv Interval[T]) Max() T { return iv.max }

// Contains reports min <= v <= max.
func (iv Interval[T]) Contains(v T) bool {
	return iv.min <= v && v <= iv.max
}

// Clamp moves v to the nearest bound when it lies outside.
func (iv Interval[T]) Clamp(v T) T {
	if v < iv.min {
		return iv.min
	}
	if v > iv.max {
		return iv.max
	}
	return v
}

func (iv Interval[T]) Equal(other Interval[T]) bool {
	return iv.min == other.min && iv.max == other.max
}

func (iv Interval[T]) String() string {
	return fmt.Sprintf("[%v, %v]", iv.min, iv.max)
}

// Natural returns the full representable range of T: lowest to max for
// integers, -MaxFloat to MaxFloat for floats.
func Natural[T Number]() Interval[T] {
	var zero T
	typ := reflect.TypeOf(zero)
	lo := reflect.New(typ).Elem()
	hi := reflect.New(typ).Elem()
	bits := typ.Bits()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		lo.SetInt(int64(-1) << (bits - 1))
		hi.SetInt(int64(^uint64(0) >> (65 - bits)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		hi.SetUint(^uint64(0) >> (64 - bits))
	case reflect.Float32:
		lo.SetFloat(-math.MaxFloat32)
		hi.SetFloat(math.MaxFloat32)
	case reflect.Float64:
		lo.SetFloat(-math.MaxFloat64)
		hi.SetFloat(math.MaxFloat64)
	}
	return Interval[T]{min: lo.Interface().(T), max: hi.Interface().(T)}
}

// IsFloat reports whether T is a floating point type.
func IsFloat[T Number]() bool {
	return T(1)/T(2) != 0
}

// Midpoint returns the value halfway between a and b without overflowing.
// Integer midpoints round to one of the two nearest integers.
func Midpoint[T Number](a, b T) T {
	if IsFloat[T]() {
		return a/2 + b/2
	}
	ha, hb := a/2, b/2
	ra, rb := a-ha*2, b-hb*2
	return ha + hb + (ra+rb)/2
}

// Center returns the midpoint of iv.
func Center[T Number](iv Interval[T]) T {
	return Midpoint(iv.min, iv.max)
}
