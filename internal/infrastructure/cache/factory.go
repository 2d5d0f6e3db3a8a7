package cache

import (
	"fmt"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks the idempotency backend at startup: Redis
// when reachable, optionally falling back to the in-memory store for
// single-instance and development setups.
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(factory *IdempotencyStoreFactory) { factory.logger = logger }
}

// WithInMemoryFallback controls the fallback when Redis is unreachable.
// Default is true; multi-replica deployments should disable it, since
// per-process stores cannot see each other's keys.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(factory *IdempotencyStoreFactory) { factory.allowInMemoryFallback = allow }
}

func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	factory := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, apply := range opts {
		apply(factory)
	}
	return factory
}

// CreateStore tries Redis first and falls back to in-memory when allowed.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("idempotency store backed by Redis")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("idempotency requires Redis and it is unreachable: %w", err)
	}

	f.logger.Warn("Redis unreachable, idempotency keys held in process memory only. "+
		"Replayed events may be applied twice if more than one replica is running.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

func (f *IdempotencyStoreFactory) CreateRedisStore() (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting Redis idempotency store: %w", err)
	}
	return store, nil
}

func (f *IdempotencyStoreFactory) CreateInMemoryStore() shared.IdempotencyStore {
	return NewInMemoryIdempotencyStore()
}
