package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-studio/internal/config"
	"content-studio/internal/usecase"
)

type Server struct {
	cfg     config.ServerConfig
	gen     usecase.GenerationUseCase
	checks  map[string]HealthCheck
	limiter *ipRateLimiter
	log     *zerolog.Logger
	server  *http.Server
}

func NewServer(cfg config.ServerConfig, gen usecase.GenerationUseCase, checks map[string]HealthCheck, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	s := &Server{
		cfg:     cfg,
		gen:     gen,
		checks:  checks,
		limiter: newIPRateLimiter(cfg.RateLimitRPS, cfg.RateBurst),
		log:     &l,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Routes builds the router. Generation responses are event streams, so the
// server must not impose a write timeout on them.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceID, s.requestLog, s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.rateLimit).Post("/generate/{kind}", s.handleGenerate)
		r.Get("/jobs/{id}", s.handleGetJob)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
