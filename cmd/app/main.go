package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/config"
	"content-studio/internal/domain/ports/adapter"
	aiAdapters "content-studio/internal/infra/adapters/ai"
	"content-studio/internal/infra/adapters/sitecontext"
	pg "content-studio/internal/infra/db/postgres"
	"content-studio/internal/infra/limiter"
	"content-studio/internal/infra/logging"
	"content-studio/internal/infra/metrics"
	"content-studio/internal/infra/prompt"
	red "content-studio/internal/infra/redis"
	"content-studio/internal/infra/sched"
	"content-studio/internal/infra/web"
	"content-studio/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	jobRepo := pg.NewGenerationJobRepo(pool)
	configRepo := pg.NewConfigRepoCacheDecorator(pg.NewGenerationConfigRepo(pool), redisClient, cfg.Redis.TTL, logger)

	provider := buildProvider(ctx, cfg, logger)

	lim, err := limiter.New(cfg.AI.ConcurrentLimit, cfg.AI.AcquireTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("limiter")
	}
	retrier := usecase.NewRetrier(usecase.RetryPolicy{
		MaxAttempts: cfg.AI.MaxAttempts,
		BaseDelay:   cfg.AI.BaseBackoff,
		Jitter:      cfg.AI.JitterEnabled(),
		MaxJitter:   cfg.AI.MaxJitter,
	})
	prompts, err := prompt.NewBuilder(cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
	if err != nil {
		logger.Fatal().Err(err).Msg("prompt templates")
	}

	tokens := aiAdapters.NewTokenCounter(logger)
	go tokens.Warm()

	deps := usecase.RelayDeps{
		Jobs:     jobRepo,
		Provider: provider,
		Limiter:  lim,
		Retrier:  retrier,
		Prompts:  prompts,
		Tokens:   tokens,
	}
	if cfg.Context.Enabled {
		deps.Fetcher = sitecontext.NewFetcher(sitecontext.Options{
			Timeout:  cfg.Context.Timeout,
			MaxBytes: cfg.Context.MaxBytes,
			MaxChars: cfg.Context.MaxChars,
		}, logger)
	}
	relay := usecase.NewStreamRelay(deps, logger)

	var quota adapter.QuotaPolicy
	if cfg.Quota.Enabled {
		quota = red.NewQuotaPolicy(redisClient, cfg.Quota.Window, cfg.Quota.Limits)
	}
	auth := web.NewAuthManager(cfg.Auth.Secret, cfg.Auth.TTL)
	genUC := usecase.NewGenerationUseCase(jobRepo, configRepo, auth, quota, provider, relay, logger)

	sweeper := sched.NewStaleJobSweeper(jobRepo, red.NewLocker(redisClient), cfg.Sweeper.Cron, cfg.Sweeper.StaleAfter, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("sweeper")
	}

	server := web.NewServer(cfg.Server, genUC, map[string]web.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	}, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	sweeper.Stop()
}

// buildProvider wires every configured provider behind the model router.
func buildProvider(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) adapter.GenerationProvider {
	ai := cfg.AI
	providers := map[string]adapter.GenerationProvider{}

	if ai.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiAdapter(ctx, ai.GeminiKey, ai.GeminiURL, ai.GeminiModel, ai.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers["gemini"] = g
		logger.Info().Str("model", ai.GeminiModel).Str("key", logging.Redact(ai.GeminiKey, cfg.Runtime.Dev)).Msg("AI provider: gemini")
	}
	if ai.OpenAIKey != "" {
		o, err := aiAdapters.NewOpenAIAdapter(ai.OpenAIKey, ai.OpenAIModel, ai.OpenAIBaseURL, ai.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers["openai"] = o
		logger.Info().Str("model", ai.OpenAIModel).Str("base_url", ai.OpenAIBaseURL).Str("key", logging.Redact(ai.OpenAIKey, cfg.Runtime.Dev)).Msg("AI provider: openai")
	}
	if cfg.Runtime.Dev {
		providers["noop"] = aiAdapters.NewNoopAIAdapter(20 * time.Millisecond)
	}

	multi := aiAdapters.NewMultiAIAdapter(ai.DefaultProvider, providers, ai.ModelProviders)
	if !multi.Available() {
		// Requests are rejected with PROVIDER_UNAVAILABLE until a key is configured.
		logger.Warn().Str("provider", ai.DefaultProvider).Msg("default AI provider is not configured")
	}
	return multi
}
