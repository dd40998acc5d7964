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

var _ repository.GenerationConfigRepository = (*generationConfigRepo)(nil)

type generationConfigRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationConfigRepo(pool *pgxpool.Pool) *generationConfigRepo {
	return &generationConfigRepo{pool: pool}
}

func (r *generationConfigRepo) Save(ctx context.Context, cfg *model.GenerationConfig) error {
	if cfg.ID == "" || cfg.OwnerID == "" {
		return domain.ErrInvalidArgument
	}
	defaults, err := json.Marshal(cfg.Defaults)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}

	const q = `
INSERT INTO generation_configs (id, owner_id, name, defaults, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  defaults = EXCLUDED.defaults,
  updated_at = EXCLUDED.updated_at
WHERE generation_configs.owner_id = EXCLUDED.owner_id;`

	tag, err := r.pool.Exec(ctx, q, cfg.ID, cfg.OwnerID, cfg.Name, defaults, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return err
	}
	// Zero rows means the id belongs to another owner.
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("config %s: %w", cfg.ID, domain.ErrAlreadyExists)
	}
	return nil
}

func (r *generationConfigRepo) FindByID(ctx context.Context, id string) (*model.GenerationConfig, error) {
	const q = `
SELECT id, owner_id, name, defaults, created_at, updated_at
FROM generation_configs
WHERE id = $1;`

	var cfg model.GenerationConfig
	var defaults []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&cfg.ID, &cfg.OwnerID, &cfg.Name, &defaults, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(defaults, &cfg.Defaults); err != nil {
		return nil, fmt.Errorf("decode config defaults: %w", err)
	}
	return &cfg, nil
}

func (r *generationConfigRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generation_configs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
