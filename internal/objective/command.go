package objective

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

// DefaultIncalculableMarker is the output that reports a failed calculation.
const DefaultIncalculableMarker = "Calculations failed."

// Execute runs name with args and returns its standard output and standard
// error. Standard input is empty.
func Execute(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("run %s: %w", name, err)
	}
	return stdout.String(), stderr.String(), err
}

// Command scores genotypes by running an external program once per distinct
// genotype. Arguments may reference {x0}, {x1}... and gene names in braces;
// {id} expands to a fresh identifier per invocation, usable for scratch
// file names. The program prints its fitness on standard output, or
// Incalculable to report a failure.
type Command struct {
	Path         string
	Args         []string
	Names        []string
	Incalculable string
	// FailOnError turns a non-zero exit into an error instead of an
	// incalculable score.
	FailOnError bool
}

// Score implements fitness.ScoreFunc.
func (c Command) Score(ctx context.Context, g *genotype.Genotype) (float64, error) {
	if c.Path == "" {
		return fitness.Incalculable, fmt.Errorf("command path is required")
	}
	args, err := c.expand(g)
	if err != nil {
		return fitness.Incalculable, err
	}
	stdout, stderr, err := Execute(ctx, c.Path, args...)
	if err != nil {
		if ctx.Err() != nil {
			return fitness.Incalculable, ctx.Err()
		}
		if c.FailOnError {
			return fitness.Incalculable, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
		}
		return fitness.Incalculable, nil
	}
	out := strings.TrimSpace(stdout)
	marker := c.Incalculable
	if marker == "" {
		marker = DefaultIncalculableMarker
	}
	if out == marker {
		return fitness.Incalculable, nil
	}
	v, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return fitness.Incalculable, fmt.Errorf("parse %s output %q: %w", c.Path, out, err)
	}
	return v, nil
}

func (c Command) expand(g *genotype.Genotype) ([]string, error) {
	params, err := Parameters(g, c.Names)
	if err != nil {
		return nil, err
	}
	pairs := []string{"{id}", uuid.NewString()}
	for name, v := range params {
		pairs = append(pairs, "{"+name+"}", formatParam(v))
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = r.Replace(a)
	}
	return out, nil
}

func formatParam(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
