package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.GenerationProvider = (*NoopAIAdapter)(nil)

// NoopAIAdapter streams canned output for local/dev runs without provider keys.
type NoopAIAdapter struct {
	delay time.Duration
}

func NewNoopAIAdapter(delay time.Duration) *NoopAIAdapter {
	return &NoopAIAdapter{delay: delay}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) Available() bool { return true }

func (a *NoopAIAdapter) GenerateStream(ctx context.Context, req adapter.GenerateRequest) (adapter.ProviderStream, error) {
	var body string
	if strings.Contains(req.Prompt, "JSON array") {
		body = `[{"title":"Noop idea","angle":"dev","format":"blog","keyword":"noop"}]`
	} else if strings.Contains(req.Prompt, "JSON object") {
		body = `{"h1":"Noop outline","sections":[{"h2":"Intro","h3":[]}],"faq":[],"relatedKeywords":[]}`
	} else {
		body = fmt.Sprintf("# Noop draft\n\nThis is placeholder content generated without a provider (%d prompt chars).\n\n"+
			"**SEO_TITLE:** Noop draft\n**META_DESCRIPTION:** Placeholder content for local development.", len(req.Prompt))
	}
	return &noopStream{words: strings.SplitAfter(body, " "), delay: a.delay}, nil
}

type noopStream struct {
	words []string
	delay time.Duration
}

func (s *noopStream) Recv(ctx context.Context) (any, error) {
	if len(s.words) == 0 {
		return nil, io.EOF
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	w := s.words[0]
	s.words = s.words[1:]
	return w, nil
}

func (s *noopStream) Close() error { return nil }
