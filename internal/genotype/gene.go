package genotype

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"reflect"

	"evochain/internal/eaerr"
	"evochain/internal/interval"
	"evochain/internal/random"
)

// Gene is one constrained, typed position of a genotype.
//
// The set of implementations is closed: Number and Bool.
type Gene interface {
	fmt.Stringer
	// ValueString renders the value alone.
	ValueString() string
	Type() reflect.Type
	Interface() any
	// RandomReset draws a new value uniformly from the gene's constraint.
	RandomReset(rng *rand.Rand)
	Clone() Gene
	Equal(other Gene) bool
	// Compare orders genes of the same concrete type by value.
	Compare(other Gene) (int, error)
	Hash() uint64

	sealed()
}

// Averager is implemented by genes that can produce the midpoint of two
// alleles.
type Averager interface {
	Average(other Gene) (Gene, error)
}

// Char is a character valued gene type. It hashes and orders like rune but
// is a distinct type, so a Char gene never equals an int32 gene.
type Char rune

func (c Char) String() string { return string(rune(c)) }

// Number is a gene over an integer, float or Char value.
type Number[T interval.Number] struct {
	value  T
	bounds interval.Interval[T]
}

// NewNumber returns a gene holding v constrained to [min, max].
func NewNumber[T interval.Number](v, min, max T) (*Number[T], error) {
	bounds, err := interval.New(min, max)
	if err != nil {
		return nil, err
	}
	if !bounds.Contains(v) {
		return nil, fmt.Errorf("value %v outside %v: %w", v, bounds, eaerr.ErrInvalidArgument)
	}
	return &Number[T]{value: v, bounds: bounds}, nil
}

// NewNumberIn returns a gene constrained to bounds, starting at its midpoint.
func NewNumberIn[T interval.Number](bounds interval.Interval[T]) *Number[T] {
	return &Number[T]{value: interval.Center(bounds), bounds: bounds}
}

// NumberOf returns a gene holding v with the natural range of T.
func NumberOf[T interval.Number](v T) (*Number[T], error) {
	bounds := interval.Natural[T]()
	if !bounds.Contains(v) {
		return nil, fmt.Errorf("value %v outside %v: %w", v, bounds, eaerr.ErrInvalidArgument)
	}
	return &Number[T]{value: v, bounds: bounds}, nil
}

func (n *Number[T]) Value() T                          { return n.value }
func (n *Number[T]) Constraints() interval.Interval[T] { return n.bounds }

// SetValue fails, leaving the gene unchanged, when v violates the constraint.
func (n *Number[T]) SetValue(v T) error {
	if !n.bounds.Contains(v) {
		return fmt.Errorf("value %v outside %v: %w", v, n.bounds, eaerr.ErrInvalidArgument)
	}
	n.value = v
	return nil
}

// SetConstraints fails when the current value lies outside bounds.
func (n *Number[T]) SetConstraints(bounds interval.Interval[T]) error {
	if !bounds.Contains(n.value) {
		return fmt.Errorf("value %v outside new constraint %v: %w", n.value, bounds, eaerr.ErrInvalidArgument)
	}
	n.bounds = bounds
	return nil
}

func (n *Number[T]) RandomReset(rng *rand.Rand) {
	n.value = random.Uniform(rng, n.bounds.Min(), n.bounds.Max())
}

func (n *Number[T]) Clone() Gene {
	c := *n
	return &c
}

func (n *Number[T]) Equal(other Gene) bool {
	o, ok := other.(*Number[T])
	return ok && n.value == o.value && n.bounds.Equal(o.bounds)
}

func (n *Number[T]) Compare(other Gene) (int, error) {
	o, ok := other.(*Number[T])
	if !ok {
		return 0, fmt.Errorf("compare %s with %s: %w", n.Type(), other.Type(), eaerr.ErrTypeMismatch)
	}
	return cmp.Compare(n.value, o.value), nil
}

// Average returns a gene at the midpoint of both values. Both genes must
// share type and constraint.
func (n *Number[T]) Average(other Gene) (Gene, error) {
	o, ok := other.(*Number[T])
	if !ok {
		return nil, fmt.Errorf("average %s with %s: %w", n.Type(), other.Type(), eaerr.ErrTypeMismatch)
	}
	if !n.bounds.Equal(o.bounds) {
		return nil, fmt.Errorf("average across constraints %v and %v: %w", n.bounds, o.bounds, eaerr.ErrInvalidArgument)
	}
	return &Number[T]{value: interval.Midpoint(n.value, o.value), bounds: n.bounds}, nil
}

func (n *Number[T]) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(n.Type().String()))
	var buf [8]byte
	for _, v := range [...]T{n.value, n.bounds.Min(), n.bounds.Max()} {
		binary.LittleEndian.PutUint64(buf[:], scalarBits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

func (n *Number[T]) Type() reflect.Type  { return reflect.TypeFor[T]() }
func (n *Number[T]) Interface() any      { return n.value }
func (n *Number[T]) String() string      { return fmt.Sprintf("%v in %v", n.value, n.bounds) }
func (n *Number[T]) ValueString() string { return fmt.Sprint(n.value) }
func (n *Number[T]) sealed()             {}

func scalarBits[T interval.Number](v T) uint64 {
	if interval.IsFloat[T]() {
		f := float64(v)
		if f == 0 {
			// -0 and +0 compare equal so they must hash equal.
			f = 0
		}
		return math.Float64bits(f)
	}
	return uint64(v)
}

// Bool is a gene over false < true.
type Bool struct {
	value bool
	min   bool
	max   bool
}

// NewBool returns a gene holding v constrained to [min, max].
func NewBool(v, min, max bool) (*Bool, error) {
	if min && !max {
		return nil, fmt.Errorf("bool interval [true, false] has min > max: %w", eaerr.ErrInvalidArgument)
	}
	b := &Bool{min: min, max: max}
	if err := b.SetValue(v); err != nil {
		return nil, err
	}
	return b, nil
}

// BoolOf returns a gene holding v constrained to [false, true].
func BoolOf(v bool) *Bool {
	return &Bool{value: v, max: true}
}

func (b *Bool) Value() bool { return b.value }
func (b *Bool) Min() bool   { return b.min }
func (b *Bool) Max() bool   { return b.max }

func (b *Bool) SetValue(v bool) error {
	if (!v && b.min) || (v && !b.max) {
		return fmt.Errorf("value %t outside [%t, %t]: %w", v, b.min, b.max, eaerr.ErrInvalidArgument)
	}
	b.value = v
	return nil
}

func (b *Bool) RandomReset(rng *rand.Rand) {
	b.value = random.Bool(rng, b.min, b.max)
}

func (b *Bool) Clone() Gene {
	c := *b
	return &c
}

func (b *Bool) Equal(other Gene) bool {
	o, ok := other.(*Bool)
	return ok && *b == *o
}

func (b *Bool) Compare(other Gene) (int, error) {
	o, ok := other.(*Bool)
	if !ok {
		return 0, fmt.Errorf("compare %s with %s: %w", b.Type(), other.Type(), eaerr.ErrTypeMismatch)
	}
	return cmp.Compare(boolBit(b.value), boolBit(o.value)), nil
}

func (b *Bool) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte("bool"))
	h.Write([]byte{byte(boolBit(b.value)), byte(boolBit(b.min)), byte(boolBit(b.max))})
	return h.Sum64()
}

func (b *Bool) Type() reflect.Type  { return reflect.TypeFor[bool]() }
func (b *Bool) Interface() any      { return b.value }
func (b *Bool) String() string      { return fmt.Sprintf("%t in [%t, %t]", b.value, b.min, b.max) }
func (b *Bool) ValueString() string { return fmt.Sprint(b.value) }
func (b *Bool) sealed()             {}

func boolBit(v bool) int {
	if v {
		return 1
	}
	return 0
}
