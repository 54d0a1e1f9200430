package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts attempts per key in fixed windows stored in
// Redis. When Redis fails the attempt is allowed and the error logged.
type FixedWindowLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewFixedWindowLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration, log zerolog.Logger) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log,
	}
}

// windowKey is PREFIX:<window start unix>:<key>.
func (l *FixedWindowLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	start := now.Truncate(l.window)
	return fmt.Sprintf("%s:%d:%s", l.prefix, start.Unix(), key), start.Add(l.window)
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) Decision {
	if l.limit <= 0 {
		return Decision{Allowed: true}
	}

	now := l.now()
	redisKey, windowEnd := l.windowKey(key, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn().Err(err).Str("key", redisKey).Msg("rate limiter unavailable, allowing request")
		return Decision{Allowed: true}
	}

	count := int(incr.Val())
	if count > l.limit {
		return Decision{Allowed: false, RetryAfter: windowEnd.Sub(now)}
	}
	return Decision{Allowed: true, Remaining: l.limit - count}
}
