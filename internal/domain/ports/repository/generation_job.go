package repository

import (
	"context"
	"time"

	"content-studio/internal/domain/model"
)

type GenerationJobRepository interface {
	// Create inserts a job in generating status.
	Create(ctx context.Context, job *model.GenerationJob) error
	// Finalize persists a terminal job. It only succeeds while the stored row is
	// still generating, and returns domain.ErrJobTerminal otherwise.
	Finalize(ctx context.Context, job *model.GenerationJob) error
	FindByID(ctx context.Context, id string) (*model.GenerationJob, error)
	// Touch bumps updated_at of a job that is still generating so a long wait
	// for a provider slot does not read as stale.
	Touch(ctx context.Context, id string) error
	// FailStale moves jobs still generating and not updated since olderThan to error.
	FailStale(ctx context.Context, olderThan time.Time, message, code string) (int64, error)
}
