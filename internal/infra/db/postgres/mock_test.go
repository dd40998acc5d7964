//go:build !integration

package postgres

import (
	"context"
	"time"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	red "content-studio/internal/infra/redis"
)

// --- Mock for RedisClient ---
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, nil
}
func (m *mockRedisClient) Decr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Close() error { return nil }

// --- Mock for the inner config repository ---
type mockInnerConfigRepo struct {
	configs   map[string]*model.GenerationConfig
	findCalls int
}

var _ repository.GenerationConfigRepository = &mockInnerConfigRepo{}

func (m *mockInnerConfigRepo) Save(ctx context.Context, cfg *model.GenerationConfig) error {
	if m.configs == nil {
		m.configs = map[string]*model.GenerationConfig{}
	}
	m.configs[cfg.ID] = cfg
	return nil
}

func (m *mockInnerConfigRepo) FindByID(ctx context.Context, id string) (*model.GenerationConfig, error) {
	m.findCalls++
	cfg, ok := m.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

func (m *mockInnerConfigRepo) Delete(ctx context.Context, id string) error {
	delete(m.configs, id)
	return nil
}
