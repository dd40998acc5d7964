package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationJobRepo(pool *pgxpool.Pool) *generationJobRepo {
	return &generationJobRepo{pool: pool}
}

func (r *generationJobRepo) Create(ctx context.Context, job *model.GenerationJob) error {
	if job.Status != model.JobStatusGenerating {
		return fmt.Errorf("%w: new job must be generating, got %s", domain.ErrInvalidArgument, job.Status)
	}
	input, err := json.Marshal(job.Input)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO generation_jobs (id, kind, owner_id, config_id, input, status, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, '', $7, $8);`

	_, err = r.pool.Exec(ctx, q,
		job.ID, string(job.Kind), nullIfEmpty(job.OwnerID), nullIfEmpty(job.ConfigID), input,
		string(job.Status), job.CreatedAt, job.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("job %s: %w", job.ID, domain.ErrAlreadyExists)
	}
	return err
}

// Finalize writes the terminal state with a compare-and-set on status, so a
// job is finalized at most once even when the sweeper races the relay.
func (r *generationJobRepo) Finalize(ctx context.Context, job *model.GenerationJob) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("%w: job %s is not terminal", domain.ErrInvalidArgument, job.ID)
	}
	var title, desc *string
	var words *int
	if job.Metadata != nil {
		title = &job.Metadata.SEOTitle
		desc = &job.Metadata.MetaDescription
		words = &job.Metadata.WordCount
	}
	const q = `
UPDATE generation_jobs SET
  status = $2,
  content = $3,
  seo_title = $4,
  meta_description = $5,
  word_count = $6,
  error_message = $7,
  error_code = $8,
  updated_at = $9
WHERE id = $1 AND status = 'generating';`

	tag, err := r.pool.Exec(ctx, q,
		job.ID, string(job.Status), job.Content, title, desc, words,
		nullIfEmpty(job.ErrorMessage), nullIfEmpty(job.ErrorCode), job.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM generation_jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("job %s: %w", job.ID, domain.ErrJobTerminal)
}

func (r *generationJobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	const q = `
SELECT id, kind, COALESCE(owner_id, ''), COALESCE(config_id, ''), input, status, content,
       seo_title, meta_description, word_count,
       COALESCE(error_message, ''), COALESCE(error_code, ''), created_at, updated_at
FROM generation_jobs
WHERE id = $1;`

	var (
		job          model.GenerationJob
		kind, status string
		input        []byte
		title, desc  *string
		words        *int
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID, &kind, &job.OwnerID, &job.ConfigID, &input, &status, &job.Content,
		&title, &desc, &words,
		&job.ErrorMessage, &job.ErrorCode, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(input, &job.Input); err != nil {
		return nil, fmt.Errorf("decode job input: %w", err)
	}
	job.Kind = model.JobKind(kind)
	job.Status = model.JobStatus(status)
	if job.Status == model.JobStatusCompleted {
		meta := model.JobMetadata{}
		if title != nil {
			meta.SEOTitle = *title
		}
		if desc != nil {
			meta.MetaDescription = *desc
		}
		if words != nil {
			meta.WordCount = *words
		}
		job.Metadata = &meta
	}
	return &job, nil
}

// Touch is a no-op for jobs that are no longer generating.
func (r *generationJobRepo) Touch(ctx context.Context, id string) error {
	const q = `UPDATE generation_jobs SET updated_at = now() WHERE id = $1 AND status = 'generating';`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *generationJobRepo) FailStale(ctx context.Context, olderThan time.Time, message, code string) (int64, error) {
	const q = `
UPDATE generation_jobs SET
  status = 'error',
  error_message = $2,
  error_code = $3,
  updated_at = now()
WHERE status = 'generating' AND updated_at < $1;`

	tag, err := r.pool.Exec(ctx, q, olderThan, message, code)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
