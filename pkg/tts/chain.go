package tts

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain implements Provider by trying multiple providers in order.
// The first successful provider wins; if all fail, returns an aggregate error.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain that tries providers in order.
// At least one provider is required.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Voices returns the union of all provider voices, in provider order.
// Voice IDs already seen are skipped.
func (c *Chain) Voices(ctx context.Context) ([]Voice, error) {
	var (
		voices []Voice
		errs   []error
	)
	seen := make(map[string]bool)
	for i, p := range c.providers {
		vs, err := p.Voices(ctx)
		if err != nil {
			errs = append(errs, err)
			c.logger.Warn("voice enumeration failed", "provider_index", i, "error", err)
			continue
		}
		for _, v := range vs {
			if !seen[v.ID] {
				seen[v.ID] = true
				voices = append(voices, v)
			}
		}
	}
	if len(voices) == 0 && len(errs) > 0 {
		return nil, &ChainError{Errors: errs}
	}
	return voices, nil
}

// Synthesize tries each provider that knows the requested voice.
// A provider that does not list the voice is tried with its own first voice.
func (c *Chain) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		preq := req
		if vs, err := p.Voices(ctx); err == nil && len(vs) > 0 {
			if _, ok := FindVoice(vs, req.Voice); !ok {
				preq.Voice = vs[0].ID
			}
		}

		result, err := p.Synthesize(ctx, preq)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider_index", i,
					"chars", len(req.Text),
				)
			}
			return result, nil
		}

		errs = append(errs, err)
		c.logger.Warn("provider failed, trying next",
			"provider_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Close closes all providers.
func (c *Chain) Close() error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
