package genotype

import "strings"

// Population is an ordered multiset of genotypes.
type Population []*Genotype

// Clone deep copies every member.
func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i, g := range p {
		out[i] = g.Clone()
	}
	return out
}

// Distinct counts structurally distinct members.
func (p Population) Distinct() int {
	seen := make(map[uint64][]*Genotype, len(p))
	n := 0
	for _, g := range p {
		h := g.Hash()
		dup := false
		for _, s := range seen[h] {
			if s.Equal(g) {
				dup = true
				break
			}
		}
		if !dup {
			seen[h] = append(seen[h], g)
			n++
		}
	}
	return n
}

func (p Population) String() string {
	lines := make([]string, len(p))
	for i, g := range p {
		lines[i] = g.String()
	}
	return strings.Join(lines, "\n")
}

// Constraint is a feasibility predicate over genotypes.
type Constraint func(*Genotype) bool

// Satisfied accepts every genotype.
func Satisfied(*Genotype) bool { return true }

// All accepts a genotype only when every non-nil constraint does.
func All(cs ...Constraint) Constraint {
	active := make([]Constraint, 0, len(cs))
	for _, c := range cs {
		if c != nil {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return Satisfied
	}
	return func(g *Genotype) bool {
		for _, c := range active {
			if !c(g) {
				return false
			}
		}
		return true
	}
}
