package ai

import (
	"context"
	"errors"
)

// Chain tries each available generator in order. Exhausted credits stop
// the chain since the caller has to act on them.
type Chain struct {
	generators []TextGenerator
}

func NewChain(generators ...TextGenerator) *Chain {
	kept := make([]TextGenerator, 0, len(generators))
	for _, generator := range generators {
		if generator != nil {
			kept = append(kept, generator)
		}
	}
	return &Chain{generators: kept}
}

func (c *Chain) Available() bool {
	for _, generator := range c.generators {
		if generator.Available() {
			return true
		}
	}
	return false
}

func (c *Chain) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	var errs []error
	for _, generator := range c.generators {
		if !generator.Available() {
			continue
		}
		result, err := generator.Generate(ctx, request)
		if err == nil {
			return result, nil
		}
		if IsCreditsExhausted(err) || ctx.Err() != nil {
			return GenerateResult{}, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return GenerateResult{}, ErrProviderUnavailable
	}
	return GenerateResult{}, errors.Join(errs...)
}
