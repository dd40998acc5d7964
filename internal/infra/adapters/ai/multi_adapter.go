// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.GenerationProvider = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes each request to a provider by model name.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.GenerationProvider
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiAIAdapter does not inject any default model; it only knows a default provider.
// Each provider adapter is responsible for its own default model.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.GenerationProvider,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	clean := make(map[string]adapter.GenerationProvider, len(byProvider))
	for k, v := range byProvider {
		if v != nil {
			clean[strings.ToLower(k)] = v
		}
	}
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      clean,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) Name() string { return m.defaultProvider }

// Available reports whether the default route can serve requests.
func (m *MultiAIAdapter) Available() bool {
	a := m.byProvider[m.defaultProvider]
	return a != nil && a.Available()
}

func (m *MultiAIAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAIAdapter) pick(model string) adapter.GenerationProvider {
	if a := m.byProvider[m.resolveProvider(model)]; a != nil && a.Available() {
		return a
	}
	if a := m.byProvider[m.defaultProvider]; a != nil && a.Available() {
		return a
	}
	return nil
}

func (m *MultiAIAdapter) GenerateStream(ctx context.Context, req adapter.GenerateRequest) (adapter.ProviderStream, error) {
	a := m.pick(req.Model)
	if a == nil {
		return nil, fmt.Errorf("no provider for model %q: %w", req.Model, domain.ErrProviderUnavailable)
	}
	if a.Name() != m.resolveProvider(req.Model) && req.Model != "" {
		// Fallen back to the default provider; let it pick its own model.
		req.Model = ""
	}
	return a.GenerateStream(ctx, req)
}
