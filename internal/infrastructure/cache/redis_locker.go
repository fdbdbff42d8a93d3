package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrLockNotAcquired is returned when the lock stayed taken for the whole wait
var ErrLockNotAcquired = errors.New("application lock not acquired")

const defaultLockKeyPrefix = "enrollment:lock:application:"

// releaseScript deletes the key only while it still holds our token,
// so an expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes transitions on one application across instances
// with a SET NX PX lock per application.
type RedisLocker struct {
	client     redis.Cmdable
	keyPrefix  string
	ttl        time.Duration
	wait       time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRedisLocker creates a RedisLocker with timings taken from cfg
func NewRedisLocker(client redis.Cmdable, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:     client,
		keyPrefix:  defaultLockKeyPrefix,
		ttl:        cfg.TTL,
		wait:       cfg.Wait,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Lock blocks until the application lock is held, the wait elapses or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, applicationID uuid.UUID) (func(), error) {
	key := l.key(applicationID)
	token := uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if waitCtx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, applicationID)
			}
			return nil, fmt.Errorf("acquire application lock: %w", err)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, applicationID)
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			// the key expires after ttl anyway
			l.logger.Warn("failed to release application lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

func (l *RedisLocker) key(applicationID uuid.UUID) string {
	return l.keyPrefix + applicationID.String()
}
