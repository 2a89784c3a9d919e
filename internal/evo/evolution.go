package evo

import (
	"context"
	"fmt"
	"log/slog"

	"evochain/internal/genotype"
)

// History holds every generation in creation order.
type History []genotype.Population

// Last returns the latest generation, nil for an empty history.
func (h History) Last() genotype.Population {
	if len(h) == 0 {
		return nil
	}
	return h[len(h)-1]
}

// GenerationHook observes generation i right after it is created. An error
// stops the run.
type GenerationHook func(ctx context.Context, i int, p genotype.Population) error

// Evolution drives a creator until its termination condition holds.
type Evolution struct {
	Creator   *GenerationCreator
	Terminate TerminationCondition
	Logger    *slog.Logger
	Hooks     []GenerationHook
}

func NewEvolution(creator *GenerationCreator, terminate TerminationCondition) (*Evolution, error) {
	if creator == nil {
		return nil, fmt.Errorf("generation creator is required")
	}
	if terminate == nil {
		return nil, fmt.Errorf("termination condition is required")
	}
	return &Evolution{Creator: creator, Terminate: terminate}, nil
}

// Run returns every generation created. On error the generations created so
// far are returned with it.
func (e *Evolution) Run(ctx context.Context) (History, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var history History
	for i := 0; ; i++ {
		stop, err := e.Terminate(ctx, i, history)
		if err != nil {
			return history, fmt.Errorf("termination check at generation %d: %w", i, err)
		}
		if stop {
			logger.Debug("evolution terminated", "generations", i)
			return history, nil
		}
		if err := ctx.Err(); err != nil {
			return history, err
		}
		p, err := e.Creator.Next(ctx)
		if err != nil {
			return history, fmt.Errorf("generation %d: %w", i, err)
		}
		history = append(history, p)
		logger.Debug("generation created", "generation", i, "size", len(p))
		for _, hook := range e.Hooks {
			if err := hook(ctx, i, p); err != nil {
				return history, fmt.Errorf("generation %d hook: %w", i, err)
			}
		}
	}
}
