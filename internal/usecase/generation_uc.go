// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/logging"
	"content-studio/internal/infra/metrics"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// Synchronous rejection codes, returned before a job or channel exists.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnknownKind         = "UNKNOWN_KIND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConfigNotFound      = "CONFIG_NOT_FOUND"
	CodeFreeLimitReached    = "FREE_LIMIT_REACHED"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
)

type StartRequest struct {
	Kind       string
	Input      model.GenerationInput
	ConfigID   string
	Credential string // bearer token, empty for anonymous callers
	ClientIP   string
}

type GenerationUseCase interface {
	// Start validates the request and creates the job in generating state.
	// Every rejection happens here, before any event channel is opened.
	Start(ctx context.Context, req StartRequest) (*model.GenerationJob, error)
	// Stream relays a started job to sink and always closes it.
	Stream(ctx context.Context, job *model.GenerationJob, sink EventSink)
	GetJob(ctx context.Context, id, credential string) (*model.GenerationJob, error)
}

type generationUC struct {
	jobs     repository.GenerationJobRepository
	configs  repository.GenerationConfigRepository
	identity adapter.IdentityResolver
	quota    adapter.QuotaPolicy // nil disables quota checks
	provider adapter.GenerationProvider
	relay    *StreamRelay
	log      *zerolog.Logger
}

func NewGenerationUseCase(
	jobs repository.GenerationJobRepository,
	configs repository.GenerationConfigRepository,
	identity adapter.IdentityResolver,
	quota adapter.QuotaPolicy,
	provider adapter.GenerationProvider,
	relay *StreamRelay,
	logger *zerolog.Logger,
) *generationUC {
	l := logger.With().Str("component", "GenerationUC").Logger()
	return &generationUC{
		jobs:     jobs,
		configs:  configs,
		identity: identity,
		quota:    quota,
		provider: provider,
		relay:    relay,
		log:      &l,
	}
}

// RejectCode maps a Start/GetJob error to its structured code.
func RejectCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownKind):
		return CodeUnknownKind
	case errors.Is(err, domain.ErrInvalidArgument):
		return CodeValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, domain.ErrConfigNotFound):
		return CodeConfigNotFound
	case errors.Is(err, domain.ErrQuotaExceeded):
		return CodeFreeLimitReached
	case errors.Is(err, domain.ErrProviderUnavailable):
		return CodeProviderUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

func (g *generationUC) Start(ctx context.Context, req StartRequest) (*model.GenerationJob, error) {
	defer logging.TraceDuration(g.log, "GenerationUC.Start")()

	job, err := g.start(ctx, req)
	if err != nil {
		metrics.IncJobRejected(req.Kind, RejectCode(err))
		return nil, err
	}
	metrics.IncJobStarted(string(job.Kind))
	return job, nil
}

func (g *generationUC) start(ctx context.Context, req StartRequest) (*model.GenerationJob, error) {
	kind, err := model.ParseJobKind(req.Kind)
	if err != nil {
		return nil, err
	}

	ownerID, err := g.identity.Resolve(ctx, req.Credential)
	if err != nil {
		return nil, err
	}
	log := logging.With(logging.WithOwnerID(ctx, ownerID), g.log)

	input := req.Input
	configID := strings.TrimSpace(req.ConfigID)
	if configID != "" {
		cfg, err := g.configs.FindByID(ctx, configID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("config %s: %w", configID, domain.ErrConfigNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// Configs of other owners are reported as missing.
		if !cfg.AccessibleBy(ownerID) {
			return nil, fmt.Errorf("config %s: %w", configID, domain.ErrConfigNotFound)
		}
		input = input.WithDefaults(cfg.Defaults)
	}
	if err := input.Validate(kind); err != nil {
		return nil, err
	}

	if g.provider == nil || !g.provider.Available() {
		return nil, domain.ErrProviderUnavailable
	}

	subject := ownerID
	if subject == "" {
		subject = "ip:" + req.ClientIP
	}
	charged := false
	if g.quota != nil {
		allowed, err := g.quota.Consume(ctx, subject, kind)
		if err != nil {
			log.Warn().Err(err).Msg("quota check failed, allowing request")
		} else if !allowed {
			return nil, domain.ErrQuotaExceeded
		} else {
			charged = true
		}
	}

	job, err := model.NewGenerationJob(kind, ownerID, configID, input)
	if err == nil {
		err = g.jobs.Create(ctx, job)
		if err != nil {
			err = fmt.Errorf("create job: %w", err)
		}
	}
	if err != nil {
		if charged {
			// the caller may already be gone; the refund still has to land
			if rerr := g.quota.Refund(context.WithoutCancel(ctx), subject, kind); rerr != nil {
				log.Warn().Err(rerr).Str("subject", subject).Msg("quota refund failed")
			}
		}
		return nil, err
	}
	log.Info().Str("job_id", job.ID).Str("kind", string(kind)).Msg("generation job created")
	return job, nil
}

func (g *generationUC) Stream(ctx context.Context, job *model.GenerationJob, sink EventSink) {
	g.relay.Run(ctx, job, sink)
}

func (g *generationUC) GetJob(ctx context.Context, id, credential string) (*model.GenerationJob, error) {
	ownerID, err := g.identity.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	job, err := g.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Anonymous jobs are readable by id; owned jobs only by their owner.
	if job.OwnerID != "" && job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
