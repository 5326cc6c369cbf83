// internal/cache/redis.go
package cache

import (
	"context"
	"time"

	lock "github.com/bsm/redis-lock"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const lockPrefix = "insert-coin:lock:"

// NewClient connects to Redis and checks the connection.
func NewClient(address, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
	})
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "unable to connect to redis")
	}
	return client, nil
}

// Locker hands out short-lived Redis locks that are never retried.
type Locker struct {
	client  *redis.Client
	timeout time.Duration
}

func NewLocker(client *redis.Client, timeout time.Duration) *Locker {
	return &Locker{client: client, timeout: timeout}
}

// Acquire takes key if nobody holds it. ok is false when another holder has it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	locker := lock.New(
		l.client.WithContext(ctx),
		lockPrefix+key,
		&lock.Options{
			LockTimeout: l.timeout,
			RetryCount:  0, // do not retry
		},
	)

	ok, err := locker.Lock()
	if err != nil {
		return nil, false, errors.Wrapf(err, "lock %s", key)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		locker.Unlock() // nolint: errcheck
	}, true, nil
}
