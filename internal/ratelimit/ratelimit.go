// Package ratelimit implements a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"prepx/internal/config"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key inside fixed windows. Counters live in Redis so every
// server instance shares them.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	logger *observability.Logger
	now    func() time.Time
}

// NewFromConfig connects to the configured Redis. It returns nil when rate limiting is disabled.
func NewFromConfig(cfg config.RateLimitConfig, logger *observability.Logger) (*Limiter, *redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, contextutils.WrapError(err, "invalid rate limit redis url")
	}
	client := redis.NewClient(opts)
	return New(client, "ratelimit:attempts", cfg.AttemptsPerMinute, config.RateLimitWindow, logger), client, nil
}

// New creates a limiter allowing limit hits per window for each key
func New(client redis.Cmdable, prefix string, limit int, window time.Duration, logger *observability.Logger) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Allow records a hit for key. When Redis is unreachable the hit is allowed and the error returned
// for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (result0 Decision, err error) {
	ctx, span := observability.TraceHandlerFunction(ctx, "ratelimit_allow", attribute.String("ratelimit.key", key))
	defer observability.FinishSpan(span, &err)

	now := l.now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn(ctx, "Rate limiter unavailable, allowing request", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, contextutils.WrapError(err, "rate limiter unavailable")
	}

	count := int(incr.Val())
	d := Decision{Allowed: count <= l.limit, Limit: l.limit, Remaining: l.limit - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = windowStart.Add(l.window).Sub(now)
	}
	span.SetAttributes(attribute.Int("ratelimit.count", count), attribute.Bool("ratelimit.allowed", d.Allowed))
	return d, nil
}
