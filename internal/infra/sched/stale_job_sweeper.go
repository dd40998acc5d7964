package sched

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/metrics"
	red "content-studio/internal/infra/redis"
	"content-studio/internal/usecase"
)

const (
	sweepLockKey = "lock:stale_job_sweeper"
	staleMessage = "generation was interrupted before it finished"
)

// StaleJobSweeper fails jobs left in generating by a crashed or killed
// process. A redis lock keeps replicas from sweeping concurrently.
type StaleJobSweeper struct {
	jobs       repository.GenerationJobRepository
	locker     red.Locker // nil runs without locking
	schedule   string
	staleAfter time.Duration
	cron       *cron.Cron
	log        *zerolog.Logger
	now        func() time.Time
}

func NewStaleJobSweeper(jobs repository.GenerationJobRepository, locker red.Locker, schedule string, staleAfter time.Duration, logger *zerolog.Logger) *StaleJobSweeper {
	l := logger.With().Str("component", "StaleJobSweeper").Logger()
	return &StaleJobSweeper{
		jobs:       jobs,
		locker:     locker,
		schedule:   schedule,
		staleAfter: staleAfter,
		cron:       cron.New(),
		log:        &l,
		now:        time.Now,
	}
}

// Start schedules the sweep; ctx bounds every run.
func (s *StaleJobSweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := s.SweepOnce(runCtx); err != nil {
			s.log.Error().Err(err).Msg("stale job sweep failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Dur("stale_after", s.staleAfter).Msg("stale job sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *StaleJobSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("stale job sweeper stopped")
}

func (s *StaleJobSweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, sweepLockKey, s.staleAfter)
		if errors.Is(err, domain.ErrLockHeld) {
			s.log.Debug().Msg("another replica is sweeping")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("release sweep lock")
			}
		}()
	}

	n, err := s.jobs.FailStale(ctx, s.now().Add(-s.staleAfter), staleMessage, usecase.CodeStale)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddStaleJobsSwept(n)
		s.log.Warn().Int64("count", n).Msg("stale generation jobs failed")
	}
	return n, nil
}
