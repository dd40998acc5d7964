//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
)

func TestGenerationJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewGenerationJobRepo(testPool)
	input := model.GenerationInput{Keyword: "cold brew", Title: "Cold brew at home", WebsiteURL: "https://example.com"}

	newJob := func(t *testing.T, owner string) *model.GenerationJob {
		t.Helper()
		job, err := model.NewGenerationJob(model.JobKindArticle, owner, "", input)
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		return job
	}

	t.Run("should create and load a generating job", func(t *testing.T) {
		cleanup(t)
		job := newJob(t, "alice")

		got, err := repo.FindByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("failed to find job: %v", err)
		}
		if got.Status != model.JobStatusGenerating || got.OwnerID != "alice" || got.Input != input {
			t.Errorf("unexpected job: %+v", got)
		}
		if got.Metadata != nil {
			t.Error("generating job must not carry metadata")
		}
		if err := repo.Create(ctx, job); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists on duplicate id, got %v", err)
		}
	})

	t.Run("should finalize a completed job once", func(t *testing.T) {
		cleanup(t)
		job := newJob(t, "")
		if err := job.Complete("# Body", model.JobMetadata{SEOTitle: "T", MetaDescription: "D", WordCount: 2}, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := repo.Finalize(ctx, job); err != nil {
			t.Fatalf("failed to finalize: %v", err)
		}
		got, _ := repo.FindByID(ctx, job.ID)
		if got.Status != model.JobStatusCompleted || got.Content != "# Body" || got.Metadata == nil || got.Metadata.WordCount != 2 {
			t.Errorf("unexpected finalized job: %+v", got)
		}
		if got.OwnerID != "" {
			t.Errorf("anonymous job must load with empty owner, got %q", got.OwnerID)
		}

		if err := repo.Finalize(ctx, job); !errors.Is(err, domain.ErrJobTerminal) {
			t.Errorf("expected ErrJobTerminal on second finalize, got %v", err)
		}
	})

	t.Run("should persist error details and partial content", func(t *testing.T) {
		cleanup(t)
		job := newJob(t, "bob")
		_ = job.Fail("provider overloaded", "PROVIDER_BUSY", "partial text", time.Now())
		if err := repo.Finalize(ctx, job); err != nil {
			t.Fatal(err)
		}
		got, _ := repo.FindByID(ctx, job.ID)
		if got.Status != model.JobStatusError || got.ErrorCode != "PROVIDER_BUSY" || got.Content != "partial text" {
			t.Errorf("unexpected failed job: %+v", got)
		}
	})

	t.Run("should reject non-terminal and unknown jobs", func(t *testing.T) {
		cleanup(t)
		job := newJob(t, "")
		if err := repo.Finalize(ctx, job); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		ghost, _ := model.NewGenerationJob(model.JobKindArticle, "", "", input)
		_ = ghost.Fail("x", "INTERNAL_ERROR", "", time.Now())
		if err := repo.Finalize(ctx, ghost); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should fail only stale generating jobs", func(t *testing.T) {
		cleanup(t)
		stale := newJob(t, "")
		fresh := newJob(t, "")
		done := newJob(t, "")
		_ = done.Complete("x", model.JobMetadata{}, time.Now())
		_ = repo.Finalize(ctx, done)
		if _, err := testPool.Exec(ctx, `UPDATE generation_jobs SET updated_at = now() - interval '1 hour' WHERE id = ANY($1)`,
			[]string{stale.ID, done.ID}); err != nil {
			t.Fatal(err)
		}

		n, err := repo.FailStale(ctx, time.Now().Add(-15*time.Minute), "generation interrupted", "STALE")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("expected 1 swept job, got %d", n)
		}
		got, _ := repo.FindByID(ctx, stale.ID)
		if got.Status != model.JobStatusError || got.ErrorCode != "STALE" {
			t.Errorf("unexpected swept job: %+v", got)
		}
		if got, _ := repo.FindByID(ctx, fresh.ID); got.Status != model.JobStatusGenerating {
			t.Error("fresh job must stay generating")
		}
		if got, _ := repo.FindByID(ctx, done.ID); got.Status != model.JobStatusCompleted {
			t.Error("terminal job must not be touched")
		}
	})

	t.Run("should keep a touched job out of the stale sweep", func(t *testing.T) {
		cleanup(t)
		waiting := newJob(t, "")
		if _, err := testPool.Exec(ctx, `UPDATE generation_jobs SET updated_at = now() - interval '1 hour' WHERE id = $1`, waiting.ID); err != nil {
			t.Fatal(err)
		}
		if err := repo.Touch(ctx, waiting.ID); err != nil {
			t.Fatal(err)
		}
		n, err := repo.FailStale(ctx, time.Now().Add(-15*time.Minute), "generation interrupted", "STALE")
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("expected no swept jobs, got %d", n)
		}
		if err := repo.Touch(ctx, "missing"); err != nil {
			t.Errorf("touching an unknown job must be a no-op, got %v", err)
		}
	})
}
