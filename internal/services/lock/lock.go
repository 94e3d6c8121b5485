// Package lock serializes concurrent disbursements for the same borrower
// across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/utils"
)

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Acquire blocks briefly for the lease and returns its release function.
	// It returns models.ErrLockNotObtained when the key stays held.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// DisbursementKey is the lock key guarding a borrower's financing. It is
// borrower-wide because exclusivity and spending limits span products.
func DisbursementKey(borrowerID string) string {
	return fmt.Sprintf("disbursement:%s", borrowerID)
}

// Noop grants every lease immediately. The database transaction remains the
// only guard when no Redis is configured.
type Noop struct{}

// Acquire implements Locker.
func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// RedisLocker leases keys through redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker creates a locker holding leases for ttl.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 5),
	}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, models.ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			utils.GetLogger().Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
