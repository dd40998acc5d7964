package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"content-studio/internal/domain/model"
	"content-studio/internal/infra/logging"
	"content-studio/internal/usecase"
)

const maxBodyBytes = 64 << 10

// generateRequest is the POST body: generation parameters plus an optional config id.
type generateRequest struct {
	model.GenerationInput
	ConfigID string `json:"configId,omitempty"`
}

func statusForCode(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeUnknownKind:
		return http.StatusBadRequest
	case usecase.CodeUnauthorized:
		return http.StatusUnauthorized
	case usecase.CodeFreeLimitReached:
		return http.StatusPaymentRequired
	case usecase.CodeConfigNotFound, usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeUseCaseError answers a synchronous rejection. Internal errors are
// logged in full and reported generically.
func (s *Server) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	code := usecase.RejectCode(err)
	status := statusForCode(code)
	msg := usecase.SanitizeMessage(err.Error())
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeError(w, status, msg, code)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object", usecase.CodeValidation)
		return
	}

	job, err := s.gen.Start(r.Context(), usecase.StartRequest{
		Kind:       chi.URLParam(r, "kind"),
		Input:      body.GenerationInput,
		ConfigID:   body.ConfigID,
		Credential: bearerToken(r),
		ClientIP:   clientIP(r),
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		// The job exists; let the relay finalize it against a sink that refuses writes.
		logging.With(r.Context(), s.log).Error().Err(err).Msg("open event stream")
		s.gen.Stream(r.Context(), job, closedSink{})
		writeError(w, http.StatusInternalServerError, "streaming not supported", usecase.CodeInternal)
		return
	}
	s.gen.Stream(r.Context(), job, sink)
}

// closedSink rejects every event, which the relay treats as a gone client.
type closedSink struct{}

func (closedSink) Send(context.Context, usecase.Event) error { return errSinkClosed }
func (closedSink) Close() error                              { return nil }

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.gen.GetJob(r.Context(), chi.URLParam(r, "id"), bearerToken(r))
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Str("check", name).Msg("health check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
