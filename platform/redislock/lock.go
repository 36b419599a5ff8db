// Package redislock provides a single-holder lock on top of Redis SET NX.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock held by another process")

const keyPrefix = "admissions:lock:"

// release deletes the key only when it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out locks scoped by name.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Locker{client: client, ttl: ttl}
}

// NewFromURL parses a redis:// URL and returns a Locker plus its client's Close.
func NewFromURL(redisURL string, ttl time.Duration) (*Locker, func() error, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	return New(client, ttl), client.Close, nil
}

// Acquire takes the named lock or returns ErrNotAcquired. The returned
// function releases it; releasing an expired lock is a no-op.
func (l *Locker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := release.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release %s: %w", name, err)
		}
		return nil
	}, nil
}
