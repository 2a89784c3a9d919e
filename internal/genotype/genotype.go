// Package genotype models candidate solutions as ordered chains of
// heterogeneously typed, constrained genes.
package genotype

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"strings"

	"evochain/internal/eaerr"
	"evochain/internal/interval"
)

// Genotype exclusively owns its genes. Two genotypes are the same genotype
// when they are structurally equal.
type Genotype struct {
	genes []Gene
}

// New returns a genotype holding copies of genes.
func New(genes ...Gene) *Genotype {
	out := make([]Gene, len(genes))
	for i, g := range genes {
		out[i] = g.Clone()
	}
	return &Genotype{genes: out}
}

// FromValues wraps every value in a gene with its type's natural range.
// Supported values are the built in integer and float types, Char, bool
// and existing genes.
func FromValues(values ...any) (*Genotype, error) {
	genes := make([]Gene, 0, len(values))
	for i, v := range values {
		g, err := geneOf(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		genes = append(genes, g)
	}
	return &Genotype{genes: genes}, nil
}

func geneOf(v any) (Gene, error) {
	switch x := v.(type) {
	case Gene:
		return x.Clone(), nil
	case bool:
		return BoolOf(x), nil
	case Char:
		return natural(x)
	case int:
		return natural(x)
	case int8:
		return natural(x)
	case int16:
		return natural(x)
	case int32:
		return natural(x)
	case int64:
		return natural(x)
	case uint:
		return natural(x)
	case uint8:
		return natural(x)
	case uint16:
		return natural(x)
	case uint32:
		return natural(x)
	case uint64:
		return natural(x)
	case float32:
		return natural(x)
	case float64:
		return natural(x)
	default:
		return nil, fmt.Errorf("unsupported gene type %T: %w", v, eaerr.ErrInvalidArgument)
	}
}

func natural[T interval.Number](v T) (Gene, error) {
	g, err := NumberOf(v)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Genotype) Len() int { return len(g.genes) }

// At returns the gene at i. The gene stays owned by g.
func (g *Genotype) At(i int) Gene { return g.genes[i] }

// Genes returns the genes in order. The slice is a copy; the genes are not.
func (g *Genotype) Genes() []Gene {
	return append([]Gene(nil), g.genes...)
}

// As returns the numeric gene at i typed as T.
func As[T interval.Number](g *Genotype, i int) (*Number[T], error) {
	if i < 0 || i >= len(g.genes) {
		return nil, fmt.Errorf("gene index %d out of range [0, %d): %w", i, len(g.genes), eaerr.ErrInvalidArgument)
	}
	n, ok := g.genes[i].(*Number[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("gene %d is %s, not %T: %w", i, g.genes[i].Type(), zero, eaerr.ErrTypeMismatch)
	}
	return n, nil
}

// ValueAt returns the value of the numeric gene at i typed as T.
func ValueAt[T interval.Number](g *Genotype, i int) (T, error) {
	n, err := As[T](g, i)
	if err != nil {
		var zero T
		return zero, err
	}
	return n.Value(), nil
}

// BoolAt returns the value of the bool gene at i.
func (g *Genotype) BoolAt(i int) (bool, error) {
	if i < 0 || i >= len(g.genes) {
		return false, fmt.Errorf("gene index %d out of range [0, %d): %w", i, len(g.genes), eaerr.ErrInvalidArgument)
	}
	b, ok := g.genes[i].(*Bool)
	if !ok {
		return false, fmt.Errorf("gene %d is %s, not bool: %w", i, g.genes[i].Type(), eaerr.ErrTypeMismatch)
	}
	return b.Value(), nil
}

// Float returns the gene at i converted to float64. Bool genes map to 0/1.
func (g *Genotype) Float(i int) (float64, error) {
	if i < 0 || i >= len(g.genes) {
		return 0, fmt.Errorf("gene index %d out of range [0, %d): %w", i, len(g.genes), eaerr.ErrInvalidArgument)
	}
	return toFloat(g.genes[i].Interface())
}

// Values returns every gene value in order.
func (g *Genotype) Values() []any {
	out := make([]any, len(g.genes))
	for i, gene := range g.genes {
		out[i] = gene.Interface()
	}
	return out
}

// Clone returns a deep copy of g.
func (g *Genotype) Clone() *Genotype {
	return New(g.genes...)
}

func (g *Genotype) Equal(other *Genotype) bool {
	if g == other {
		return true
	}
	if other == nil || len(g.genes) != len(other.genes) {
		return false
	}
	for i := range g.genes {
		if !g.genes[i].Equal(other.genes[i]) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (g *Genotype) Hash() uint64 {
	var h uint64
	for i, gene := range g.genes {
		h ^= bits.RotateLeft64(gene.Hash(), i%64)
	}
	return h
}

// RandomReset redraws every gene within its own constraint and returns g.
func (g *Genotype) RandomReset(rng *rand.Rand) *Genotype {
	for _, gene := range g.genes {
		gene.RandomReset(rng)
	}
	return g
}

// String renders every gene with its constraint: "[ 42 in [0, 99] ]".
func (g *Genotype) String() string {
	var b strings.Builder
	b.WriteString("[ ")
	for _, gene := range g.genes {
		b.WriteString(gene.String())
		b.WriteByte(' ')
	}
	b.WriteByte(']')
	return b.String()
}

// ValueString renders values only, space separated.
func (g *Genotype) ValueString() string {
	parts := make([]string, len(g.genes))
	for i, gene := range g.genes {
		parts[i] = gene.ValueString()
	}
	return strings.Join(parts, " ")
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case Char:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("gene value %T is not numeric: %w", v, eaerr.ErrTypeMismatch)
	}
}
