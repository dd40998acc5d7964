// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"

	"google.golang.org/genai"

	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.GenerationProvider = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Available() bool { return g != nil && g.client != nil }

// GenerateStream pulls the first response before returning so that rate
// limiting and auth failures surface here instead of mid-stream.
func (g *GeminiAdapter) GenerateStream(ctx context.Context, req adapter.GenerateRequest) (adapter.ProviderStream, error) {
	cfg := &genai.GenerateContentConfig{}
	if n := req.MaxTokens; n > 0 {
		cfg.MaxOutputTokens = int32(n)
	} else if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}

	seq := g.client.Models.GenerateContentStream(ctx, modelOrDefault(req.Model, g.defaultModel), genai.Text(req.Prompt), cfg)
	return openPulled(ctx, g.Name(), seq)
}

// pulledStream adapts an iter.Seq2 to ProviderStream.
type pulledStream[T any] struct {
	provider string
	next     func() (T, error, bool)
	stop     func()
	pending  *T
	once     sync.Once
}

func openPulled[T any](ctx context.Context, provider string, seq iter.Seq2[T, error]) (adapter.ProviderStream, error) {
	next, stop := iter.Pull2(seq)
	first, err, ok := next()
	if err != nil {
		stop()
		return nil, toProviderError(provider, err)
	}
	s := &pulledStream[T]{provider: provider, next: next, stop: stop}
	if ok {
		s.pending = &first
	}
	return s, nil
}

func (s *pulledStream[T]) Recv(ctx context.Context) (any, error) {
	if s.pending != nil {
		v := *s.pending
		s.pending = nil
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, ok := s.next()
	if !ok {
		return nil, io.EOF
	}
	if err != nil {
		return nil, toProviderError(s.provider, err)
	}
	return v, nil
}

func (s *pulledStream[T]) Close() error {
	s.once.Do(s.stop)
	return nil
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
