package repository

import (
	"context"

	"content-studio/internal/domain/model"
)

type GenerationConfigRepository interface {
	Save(ctx context.Context, cfg *model.GenerationConfig) error
	FindByID(ctx context.Context, id string) (*model.GenerationConfig, error)
	Delete(ctx context.Context, id string) error
}
