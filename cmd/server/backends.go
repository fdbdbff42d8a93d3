package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/cache"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/ratelimit"
	"github.com/schoolops/enrollment/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const rateLimitPrefix = "enrollment:ratelimit:"

// backends holds the pluggable infrastructure chosen by configuration
type backends struct {
	redis   *redis.Client
	locker  enrollmentapp.ApplicationLocker
	limiter ratelimit.Limiter
	files   enrollment.FileReferenceChecker
	log     *zap.Logger
}

func newBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{log: log}

	needRedis := cfg.Lock.Backend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis")
	if needRedis {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.redis = client
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	if cfg.Lock.Backend == "redis" {
		b.locker = cache.NewRedisLocker(b.redis, cfg.Lock, log)
	} else {
		b.locker = enrollmentapp.NewLocalLocker()
	}
	log.Info("Application locker configured", zap.String("backend", cfg.Lock.Backend))

	if cfg.RateLimit.Enabled {
		rule := ratelimit.RuleFrom(cfg.RateLimit)
		if cfg.RateLimit.Backend == "redis" {
			b.limiter = ratelimit.NewRedisLimiter(b.redis, rule, rateLimitPrefix)
		} else {
			b.limiter = ratelimit.NewLocalLimiter(rule)
		}
	}

	if cfg.Storage.Enabled {
		store, err := storage.NewS3FileStore(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		b.files = store
		log.Info("Object storage configured", zap.String("bucket", store.Bucket()))
	} else {
		b.files = storage.NewStubFileStore()
		log.Warn("Object storage disabled; file references are not checked")
	}

	return b, nil
}

// Ping checks the optional Redis connection
func (b *backends) Ping(ctx context.Context) error {
	if b.redis == nil {
		return nil
	}
	return b.redis.Ping(ctx).Err()
}

// Close releases the Redis connection
func (b *backends) Close() {
	if b.redis == nil {
		return
	}
	if err := b.redis.Close(); err != nil {
		b.log.Error("Error closing Redis", zap.Error(err))
	}
}
