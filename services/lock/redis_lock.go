package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseStore is the subset of the redis service the distributed locker needs.
type LeaseStore interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// RedisLocker serialises keys across service instances with SET NX leases.
type RedisLocker struct {
	store     LeaseStore
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedisLocker(store LeaseStore, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		store:     store,
		prefix:    "lock:",
		ttl:       ttl,
		retryWait: 20 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	k := l.prefix + key

	for {
		ok, err := l.store.AcquireLock(ctx, k, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		// Release outlives a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.store.ReleaseLock(releaseCtx, k, token)
	}, nil
}
