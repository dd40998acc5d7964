// File: internal/usecase/relay.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/logging"
	"content-studio/internal/infra/metrics"
)

const descriptionFallbackLen = 155

// StreamRelay drives one job from generating to a terminal state while
// forwarding provider output to the client.
type StreamRelay struct {
	jobs     repository.GenerationJobRepository
	provider adapter.GenerationProvider
	limiter  adapter.ConcurrencyLimiter
	retrier  *Retrier
	prompts  adapter.PromptBuilder
	fetcher  adapter.ContextFetcher // optional
	tokens   adapter.TokenCounter   // optional
	log      *zerolog.Logger

	now             func() time.Time
	finalizeTimeout time.Duration
}

type RelayDeps struct {
	Jobs     repository.GenerationJobRepository
	Provider adapter.GenerationProvider
	Limiter  adapter.ConcurrencyLimiter
	Retrier  *Retrier
	Prompts  adapter.PromptBuilder
	Fetcher  adapter.ContextFetcher
	Tokens   adapter.TokenCounter
}

func NewStreamRelay(d RelayDeps, logger *zerolog.Logger) *StreamRelay {
	if d.Retrier == nil {
		d.Retrier = NewRetrier(DefaultRetryPolicy())
	}
	l := logger.With().Str("component", "StreamRelay").Logger()
	return &StreamRelay{
		jobs:            d.Jobs,
		provider:        d.Provider,
		limiter:         d.Limiter,
		retrier:         d.Retrier,
		prompts:         d.Prompts,
		fetcher:         d.Fetcher,
		tokens:          d.Tokens,
		log:             &l,
		now:             time.Now,
		finalizeTimeout: 5 * time.Second,
	}
}

// outbound wraps the sink. The first failed Send marks the client as gone
// and cancels the job context so the provider call stops.
type outbound struct {
	sink   EventSink
	cancel context.CancelFunc
	gone   bool
}

var errClientGone = errors.New("client disconnected")

func (o *outbound) send(ctx context.Context, ev Event) error {
	if o.gone {
		return errClientGone
	}
	if err := o.sink.Send(ctx, ev); err != nil {
		o.gone = true
		o.cancel()
		return fmt.Errorf("%w: %v", errClientGone, err)
	}
	return nil
}

// streamCloser closes a provider stream once.
type streamCloser struct {
	s    adapter.ProviderStream
	once sync.Once
}

func (c *streamCloser) close() {
	c.once.Do(func() { _ = c.s.Close() })
}

// Run streams job to sink. job must already be persisted in generating state.
// Run always leaves the job terminal, sends at most one terminal event and
// closes sink, whatever happens inside.
func (r *StreamRelay) Run(ctx context.Context, job *model.GenerationJob, sink EventSink) {
	start := r.now()
	ctx = logging.WithJobID(ctx, job.ID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &outbound{sink: sink, cancel: cancel}
	var buf strings.Builder
	var res Metadata
	var runErr error

	defer func() {
		if rec := recover(); rec != nil {
			logging.With(ctx, r.log).Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("relay panicked")
			runErr = fmt.Errorf("internal error: %v", rec)
		}
		r.finish(ctx, job, out, buf.String(), res, runErr, start)
		if err := sink.Close(); err != nil {
			logging.With(ctx, r.log).Debug().Err(err).Msg("close event sink")
		}
	}()

	res, runErr = r.relay(ctx, job, out, &buf)
}

func (r *StreamRelay) relay(ctx context.Context, job *model.GenerationJob, out *outbound, buf *strings.Builder) (Metadata, error) {
	log := logging.With(ctx, r.log)
	if err := out.send(ctx, IDEvent(job.Kind, job.ID)); err != nil {
		return Metadata{}, err
	}

	siteContext := ""
	if job.Input.WebsiteURL != "" && r.fetcher != nil {
		if err := out.send(ctx, InfoEvent("analyzing website context")); err != nil {
			return Metadata{}, err
		}
		text, err := r.fetcher.Fetch(ctx, job.Input.WebsiteURL)
		if err != nil {
			if ctx.Err() != nil {
				return Metadata{}, ctx.Err()
			}
			log.Warn().Err(err).Msg("website context fetch failed")
			if err := out.send(ctx, InfoEvent("website context unavailable, continuing without it")); err != nil {
				return Metadata{}, err
			}
		} else {
			siteContext = text
		}
	}

	req, err := r.prompts.Build(adapter.PromptInput{Kind: job.Kind, Input: job.Input, Context: siteContext})
	if err != nil {
		return Metadata{}, fmt.Errorf("build prompt: %w", err)
	}
	if r.tokens != nil {
		metrics.AddPromptTokens(r.provider.Name(), req.Model, r.tokens.Count(req.SystemPrompt+"\n"+req.Prompt))
	}

	permit, err := r.limiter.Acquire(ctx)
	if err != nil {
		return Metadata{}, err
	}
	defer permit.Release()
	// the queue wait may have been long; keep the sweeper off this job
	if err := r.jobs.Touch(ctx, job.ID); err != nil {
		log.Warn().Err(err).Msg("refresh job timestamp")
	}

	stream, err := r.retrier.Call(ctx, r.provider, req, func(n RetryNotice) {
		log.Warn().Err(n.Err).Int("attempt", n.Attempt).Dur("backoff", n.Delay).Msg("provider busy, retrying")
		// A failed send cancels ctx, which ends the backoff wait.
		_ = out.send(ctx, RetryInfoEvent(n.Delay))
	})
	if err != nil {
		return Metadata{}, err
	}
	sc := &streamCloser{s: stream}
	defer sc.close()

	for {
		raw, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Metadata{}, err
		}
		text, ok := NormalizeChunk(raw).Text()
		if !ok {
			continue
		}
		buf.WriteString(text)
		if err := out.send(ctx, ContentEvent(text)); err != nil {
			return Metadata{}, err
		}
	}
	sc.close()
	permit.Release()

	return r.extract(job, buf.String())
}

// extract builds final content and metadata, applying fallbacks.
func (r *StreamRelay) extract(job *model.GenerationJob, raw string) (Metadata, error) {
	md := ExtractMetadata(raw)
	if job.Kind.StructuredOutput() {
		body, err := structuredBody(job.Kind, md.CleanContent)
		if err != nil {
			return Metadata{}, err
		}
		md.CleanContent = body
		md.WordCount = CountWords(body)
	}
	if md.SEOTitle == "" {
		md.SEOTitle = firstNonEmpty(job.Input.Title, job.Input.Keyword, job.Input.Topic)
	}
	if md.MetaDescription == "" && !job.Kind.StructuredOutput() {
		md.MetaDescription = fallbackDescription(md.CleanContent, descriptionFallbackLen)
	}
	return md, nil
}

// structuredBody strips code fences and checks the JSON shape the kind expects.
func structuredBody(kind model.JobKind, content string) (string, error) {
	body := stripFences(content)
	if !gjson.Valid(body) {
		return "", fmt.Errorf("%s output is not valid JSON: %w", kind, domain.ErrExtractionFailed)
	}
	doc := gjson.Parse(body)
	switch kind {
	case model.JobKindContentIdeas:
		if !doc.IsArray() || len(doc.Array()) == 0 {
			return "", fmt.Errorf("content ideas must be a non-empty JSON array: %w", domain.ErrExtractionFailed)
		}
	case model.JobKindSEOStructure:
		if !doc.IsObject() {
			return "", fmt.Errorf("seo structure must be a JSON object: %w", domain.ErrExtractionFailed)
		}
	}
	return body, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// finish is the single finalization path for every outcome.
func (r *StreamRelay) finish(ctx context.Context, job *model.GenerationJob, out *outbound, partial string, md Metadata, runErr error, start time.Time) {
	log := logging.With(ctx, r.log)
	at := r.now()

	var terminal Event
	if runErr == nil {
		meta := model.JobMetadata{SEOTitle: md.SEOTitle, MetaDescription: md.MetaDescription, WordCount: md.WordCount}
		if err := job.Complete(md.CleanContent, meta, at); err != nil {
			log.Error().Err(err).Msg("complete job")
		}
		terminal = CompleteEvent(meta)
		metrics.ObserveContentWords(string(job.Kind), md.WordCount)
	} else {
		msg, code := describeFailure(runErr)
		if out.gone {
			msg, code = "client disconnected", CodeClientDisconnected
		}
		if code == CodeInternal || code == CodeProviderError {
			log.Error().Err(runErr).Str("code", code).Msg("generation failed")
		} else {
			log.Warn().Err(runErr).Str("code", code).Msg("generation failed")
		}
		if err := job.Fail(msg, code, partial, at); err != nil {
			log.Error().Err(err).Msg("fail job")
		}
		terminal = ErrorEvent(msg, code)
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.finalizeTimeout)
	defer cancel()
	if err := r.jobs.Finalize(pctx, job); err != nil {
		// The client already has the content; persistence is best effort here.
		log.Error().Err(err).Str("status", string(job.Status)).Msg("persist terminal job state")
	}

	metrics.IncJobFinished(string(job.Kind), string(job.Status), job.ErrorCode)
	metrics.ObserveStreamDuration(string(job.Kind), string(job.Status), at.Sub(start))

	if out.gone {
		return
	}
	if err := out.send(context.WithoutCancel(ctx), terminal); err != nil {
		log.Debug().Err(err).Msg("terminal event not delivered")
	}
}
