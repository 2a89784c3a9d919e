// Package eaerr holds the sentinel errors shared by the evolution engine.
//
// Operations wrap these with fmt.Errorf("...: %w", ...) so callers can
// match them with errors.Is regardless of the context added on the way up.
package eaerr

import "errors"

var (
	// ErrInvalidArgument reports a caller supplied value that violates a
	// precondition: an inverted interval, a value outside its constraint,
	// mismatched population sizes, an odd population given to pairwise
	// variation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoCalculableFitness reports a population in which no member has a
	// calculable fitness while one was required.
	ErrNoCalculableFitness = errors.New("no calculable fitness")
	// ErrNumericInvariant reports a probability vector whose total drifted
	// more than 1% away from 1.
	ErrNumericInvariant = errors.New("numeric invariant violated")
	// ErrTypeMismatch reports a gene accessed or compared as the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")
)
