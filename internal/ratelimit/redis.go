// internal/ratelimit/redis.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const keyPrefix = "insert-coin:ratelimit"

// Redis shares quota counters between bot processes.
type Redis struct {
	client *redis.Client
	max    int
	now    func() time.Time
}

func NewRedis(client *redis.Client, maxPerDay int) *Redis {
	return &Redis{
		client: client,
		max:    maxPerDay,
		now:    time.Now,
	}
}

func (r *Redis) key(userID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, dayKey(now), userID)
}

func (r *Redis) Allow(ctx context.Context, userID string) (bool, error) {
	now := r.now()
	key := r.key(userID, now)

	pipe := r.client.WithContext(ctx).TxPipeline()
	incr := pipe.Incr(key)
	pipe.ExpireAt(key, nextMidnight(now))
	if _, err := pipe.Exec(); err != nil {
		return false, errors.Wrap(err, "rate limit counter")
	}

	return incr.Val() <= int64(r.max), nil
}
