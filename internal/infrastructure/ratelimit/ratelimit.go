// Package ratelimit throttles requests per key, in process or across replicas through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether one more request for key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Rule is the number of requests allowed per period with a burst allowance
type Rule struct {
	Requests int
	Period   time.Duration
	Burst    int
}

// RuleFrom builds a rule from configuration
func RuleFrom(cfg config.RateLimitConfig) Rule {
	return Rule{Requests: cfg.Requests, Period: cfg.Window, Burst: cfg.Burst}
}

func (r Rule) normalized() Rule {
	if r.Requests <= 0 {
		r.Requests = 1
	}
	if r.Period <= 0 {
		r.Period = time.Minute
	}
	if r.Burst <= 0 {
		r.Burst = r.Requests
	}
	return r
}

// LocalLimiter keeps one token bucket per key in memory. Buckets idle for
// longer than two periods are evicted on access.
type LocalLimiter struct {
	rule    Rule
	mu      sync.Mutex
	buckets map[string]*bucket
	sweepAt time.Time
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process limiter
func NewLocalLimiter(rule Rule) *LocalLimiter {
	return &LocalLimiter{
		rule:    rule.normalized(),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one token for key
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(l.rule.Period / time.Duration(l.rule.Requests))
		b = &bucket{limiter: rate.NewLimiter(every, l.rule.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	d := Decision{Limit: l.rule.Requests}
	reservation := b.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(b.limiter.TokensAt(now))
	return d, nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	idle := 2 * l.rule.Period
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(l.buckets, key)
		}
	}
	l.sweepAt = now.Add(l.rule.Period)
}

// RedisLimiter shares the limit across replicas using the GCRA implementation of redis_rate
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisLimiter creates a Redis backed limiter. Keys are namespaced by prefix.
func NewRedisLimiter(client *redis.Client, rule Rule, prefix string) *RedisLimiter {
	rule = rule.normalized()
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   rule.Requests,
			Period: rule.Period,
			Burst:  rule.Burst,
		},
		prefix: prefix,
	}
}

// Allow consumes one request for key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := r.limiter.Allow(ctx, r.prefix+key, r.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	d := Decision{
		Allowed:   res.Allowed > 0,
		Limit:     r.limit.Rate,
		Remaining: res.Remaining,
	}
	if !d.Allowed {
		d.RetryAfter = res.RetryAfter
	}
	return d, nil
}
