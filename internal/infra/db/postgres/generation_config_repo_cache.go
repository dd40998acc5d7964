package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/metrics"
	red "content-studio/internal/infra/redis"
)

var _ repository.GenerationConfigRepository = (*configRepoCacheDecorator)(nil)

type configRepoCacheDecorator struct {
	inner repository.GenerationConfigRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewConfigRepoCacheDecorator(inner repository.GenerationConfigRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.GenerationConfigRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "ConfigCache").Logger()
	return &configRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func configKey(id string) string { return fmt.Sprintf("generation_config:%s", id) }

func (d *configRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.GenerationConfig, error) {
	key := configKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var cfg model.GenerationConfig
		if json.Unmarshal([]byte(val), &cfg) == nil {
			metrics.IncConfigCache("hit")
			return &cfg, nil
		}
		metrics.IncConfigCache("miss")
	} else if errors.Is(err, red.Nil) {
		metrics.IncConfigCache("miss")
	} else {
		metrics.IncConfigCache("error")
		d.log.Warn().Err(err).Str("key", key).Msg("config cache read failed")
	}

	cfg, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(cfg); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("config cache write failed")
		}
	}
	return cfg, nil
}

// Writes invalidate before touching the store.
func (d *configRepoCacheDecorator) Save(ctx context.Context, cfg *model.GenerationConfig) error {
	d.invalidate(ctx, cfg.ID)
	return d.inner.Save(ctx, cfg)
}

func (d *configRepoCacheDecorator) Delete(ctx context.Context, id string) error {
	d.invalidate(ctx, id)
	return d.inner.Delete(ctx, id)
}

func (d *configRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, configKey(id)); err != nil {
		d.log.Warn().Err(err).Str("config_id", id).Msg("config cache invalidation failed")
	}
}
