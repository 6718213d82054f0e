// Package ratelimit provides per-client request limiting for the gateway.
// The limiter is injected into the transport layer; the scoring engine never
// sees it.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int64
	ResetAt   time.Time
}

// Limiter decides whether a client may make another request right now.
type Limiter interface {
	// Allow checks and consumes one request slot for the client.
	// An infrastructure error fails open: the caller should let the
	// request through rather than turn a cache outage into downtime.
	Allow(ctx context.Context, clientID string) (Decision, error)
}

const redisKeyPrefix = "phishguard:ratelimit:"

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments the client's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	now := time.Now()
	windowKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, clientID, now.Unix()/int64(l.window.Seconds()))

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := incr.Val()
	remaining := int64(l.limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}, nil
}

// MemoryLimiter is a sliding-window limiter for single-instance deployments.
// It keeps per-client request timestamps and drops entries older than the
// window on each check.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time // overridable in tests
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records the request and checks the client's sliding window.
func (l *MemoryLimiter) Allow(_ context.Context, clientID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.clients[clientID][:0]
	for _, t := range l.clients[clientID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	d := Decision{Limit: l.limit, ResetAt: now.Add(l.window)}
	if len(recent) >= l.limit {
		l.clients[clientID] = recent
		d.Allowed = false
		d.Remaining = 0
		if len(recent) > 0 {
			d.ResetAt = recent[0].Add(l.window)
		}
		return d, nil
	}

	l.clients[clientID] = append(recent, now)
	d.Allowed = true
	d.Remaining = int64(l.limit - len(recent) - 1)
	return d, nil
}
