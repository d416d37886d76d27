package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juanan28s/flextranslator/pkg/provider/oneshot"
)

// ErrAllModelsFailed is returned by [GeneratorFallback.Generate] when every
// chained model fails or sits behind an open breaker.
var ErrAllModelsFailed = errors.New("resilience: every translation model failed")

// FallbackConfig configures the per-model circuit breaker created for each
// entry in a [GeneratorFallback].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// chainedModel pairs a generator with its dedicated breaker.
type chainedModel struct {
	name    string
	gen     oneshot.Generator
	breaker *CircuitBreaker
}

// GeneratorFallback implements [oneshot.Generator] across a chain of models.
// The primary is tried first; when it fails or its breaker is open, the
// fallbacks are tried in registration order. Each model's breaker trips
// independently, so a benched primary stops costing a round trip on every
// translation while a fallback carries the traffic.
//
// Build the chain before first use; AddFallback is not safe to call
// concurrently with Generate.
type GeneratorFallback struct {
	models []chainedModel
	cfg    FallbackConfig
}

var _ oneshot.Generator = (*GeneratorFallback)(nil)

// NewGeneratorFallback creates a chain with primary as the preferred model.
func NewGeneratorFallback(primary oneshot.Generator, primaryName string, cfg FallbackConfig) *GeneratorFallback {
	f := &GeneratorFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback appends a model to the end of the chain.
func (f *GeneratorFallback) AddFallback(name string, g oneshot.Generator) {
	f.add(name, g)
}

func (f *GeneratorFallback) add(name string, g oneshot.Generator) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.models = append(f.models, chainedModel{
		name:    name,
		gen:     g,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Generate sends the request to the first model in the chain whose breaker
// admits it and which answers successfully. Returns [ErrAllModelsFailed]
// wrapping the last error when the whole chain is exhausted.
func (f *GeneratorFallback) Generate(ctx context.Context, content string, att *oneshot.Attachment, systemInstruction string) (string, error) {
	var lastErr error
	for i := range f.models {
		m := &f.models[i]
		var response string
		err := m.breaker.Execute(func() error {
			var genErr error
			response, genErr = m.gen.Generate(ctx, content, att, systemInstruction)
			return genErr
		})
		if err == nil {
			return response, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping benched translation model", "model", m.name)
		} else {
			slog.Warn("translation model failed, trying next",
				"model", m.name, "error", err)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllModelsFailed, lastErr)
}
