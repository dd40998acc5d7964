package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// GenerateRequest is one prompt sent to a provider.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

// ProviderStream yields raw provider chunks in arrival order.
// Recv returns io.EOF after the last chunk. Chunk shape is provider specific;
// callers normalize it into a Fragment.
type ProviderStream interface {
	Recv(ctx context.Context) (any, error)
	Close() error
}

// GenerationProvider is the port for streaming LLM generation.
type GenerationProvider interface {
	Name() string
	// Available reports whether the provider has what it needs (keys, client) to serve calls.
	Available() bool
	// GenerateStream opens a stream. Errors that happen before the first chunk
	// (auth, rate limiting, overload) are returned here, not from Recv.
	GenerateStream(ctx context.Context, req GenerateRequest) (ProviderStream, error)
}

// Fragment is the normalized text of one chunk: either Text or Empty.
type Fragment struct {
	text string
	ok   bool
}

func TextFragment(s string) Fragment { return Fragment{text: s, ok: s != ""} }

func EmptyFragment() Fragment { return Fragment{} }

// Text returns the fragment text and false when the chunk carried nothing usable.
func (f Fragment) Text() (string, bool) { return f.text, f.ok }

func (f Fragment) IsEmpty() bool { return !f.ok }

// ProviderError is the normalized failure of a provider call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string // provider status/code field, e.g. RESOURCE_EXHAUSTED
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

var retryableCodes = map[string]struct{}{
	"RESOURCE_EXHAUSTED":  {},
	"UNAVAILABLE":         {},
	"RATE_LIMIT_EXCEEDED": {},
	"SERVER_OVERLOADED":   {},
	"OVERLOADED":          {},
	"OVERLOADED_ERROR":    {},
	"429":                 {},
	"503":                 {},
}

// Retryable reports rate limiting or transient overload (429/503 or their code equivalents).
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable {
		return true
	}
	code := strings.ToUpper(strings.TrimSpace(e.Code))
	_, ok := retryableCodes[code]
	return ok
}
