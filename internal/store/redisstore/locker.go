package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLocked is returned when another session holds the report lock past the wait.
var ErrLocked = errors.New("report is locked by another session")

// Locker serializes report find-or-create across sessions with a Redis lock.
type Locker struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewLocker creates a locker on rdb. Locks expire after ttl; Lock gives up after wait.
func NewLocker(rdb redis.UniversalClient, prefix string, ttl, wait time.Duration) *Locker {
	return &Locker{
		client: redislock.New(rdb),
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.client.Obtain(lockCtx, l.prefix+"lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release report lock")
		}
	}, nil
}
