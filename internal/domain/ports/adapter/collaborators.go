package adapter

import (
	"context"

	"content-studio/internal/domain/model"
)

// IdentityResolver turns an opaque credential into an owner id.
// An empty credential resolves to anonymous ("", nil).
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (ownerID string, err error)
}

// QuotaPolicy answers whether a subject may start another job of a kind.
// Consume counts the attempt when it is allowed; Refund takes one back for a
// job that was never created.
type QuotaPolicy interface {
	Consume(ctx context.Context, subject string, kind model.JobKind) (allowed bool, err error)
	Refund(ctx context.Context, subject string, kind model.JobKind) error
}

// PromptInput is everything a prompt builder needs.
type PromptInput struct {
	Kind    model.JobKind
	Input   model.GenerationInput
	Context string // optional website context
}

// PromptBuilder is a pure function from parameters to a provider request.
type PromptBuilder interface {
	Build(in PromptInput) (GenerateRequest, error)
}

// ContextFetcher extracts plain text from a website to enrich prompts.
type ContextFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TokenCounter estimates prompt tokens for metrics.
type TokenCounter interface {
	Count(text string) int
}

// Permit is one unit of provider concurrency. Release may be called more than once.
type Permit interface {
	Release()
}

// ConcurrencyLimiter bounds in-flight provider calls.
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context) (Permit, error)
}
