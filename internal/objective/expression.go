// Package objective builds fitness functions and feasibility constraints
// from arithmetic expressions and external commands.
package objective

import (
	"context"
	"fmt"
	"math"

	"github.com/PaesslerAG/gval"
	lru "github.com/hashicorp/golang-lru"

	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

const defaultCompiledCacheSize = 128

// Language is gval's full language plus the usual math functions.
var Language = gval.NewLanguage(
	gval.Full(),
	gval.Function("sin", math.Sin),
	gval.Function("cos", math.Cos),
	gval.Function("tan", math.Tan),
	gval.Function("exp", math.Exp),
	gval.Function("log", math.Log),
	gval.Function("sqrt", math.Sqrt),
	gval.Function("abs", math.Abs),
	gval.Function("pow", math.Pow),
	gval.Function("floor", math.Floor),
	gval.Function("min", math.Min),
	gval.Function("max", math.Max),
	gval.Constant("pi", math.Pi),
)

// Compiler turns expressions into evaluables and keeps recently compiled
// ones.
type Compiler struct {
	compiled *lru.Cache
}

func NewCompiler(size int) (*Compiler, error) {
	if size <= 0 {
		size = defaultCompiledCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create expression cache: %w", err)
	}
	return &Compiler{compiled: cache}, nil
}

func (c *Compiler) compile(expr string) (gval.Evaluable, error) {
	if cached, ok := c.compiled.Get(expr); ok {
		return cached.(gval.Evaluable), nil
	}
	eval, err := Language.NewEvaluable(expr)
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", expr, err)
	}
	c.compiled.Add(expr, eval)
	return eval, nil
}

// Objective returns a score function evaluating expr with gene i bound to
// names[i] and to x<i>. Evaluation errors and non-finite results score as
// Incalculable.
func (c *Compiler) Objective(expr string, names []string) (fitness.ScoreFunc, error) {
	eval, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, g *genotype.Genotype) (float64, error) {
		params, err := Parameters(g, names)
		if err != nil {
			return fitness.Incalculable, err
		}
		v, err := eval.EvalFloat64(ctx, params)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return fitness.Incalculable, nil
		}
		return v, nil
	}, nil
}

// Constraint returns a feasibility predicate. Genotypes on which expr fails
// to evaluate are infeasible.
func (c *Compiler) Constraint(expr string, names []string) (genotype.Constraint, error) {
	eval, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	return func(g *genotype.Genotype) bool {
		params, err := Parameters(g, names)
		if err != nil {
			return false
		}
		ok, err := eval.EvalBool(context.Background(), params)
		return err == nil && ok
	}, nil
}

// Parameters binds every gene value to x<i> and, when given, names[i].
// Numeric genes are exposed as float64, bool genes as bool.
func Parameters(g *genotype.Genotype, names []string) (map[string]any, error) {
	params := make(map[string]any, 2*g.Len())
	for i := 0; i < g.Len(); i++ {
		var v any
		if b, err := g.BoolAt(i); err == nil {
			v = b
		} else {
			f, err := g.Float(i)
			if err != nil {
				return nil, err
			}
			v = f
		}
		params[fmt.Sprintf("x%d", i)] = v
		if i < len(names) && names[i] != "" {
			params[names[i]] = v
		}
	}
	return params, nil
}
