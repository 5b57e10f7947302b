package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"workpulse/pkg/logger"
)

const (
	defaultLockKey      = "workpulse:jobs:leader-lock"
	lockTTL             = 30 * time.Second // lock TTL, guards against deadlock
	lockAcquireTimeout  = 5 * time.Second  // timeout for a single acquire attempt
	lockExtendInterval  = 10 * time.Second // renewal interval
	maxLockHoldDuration = 2 * time.Minute  // maximum time a holder may keep the lock
)

// DistributedLock coordinates which process instance runs a shared job.
type DistributedLock interface {
	// TryLock attempts to acquire the lock without blocking on contention
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance currently holds the lock
	IsHeld() bool
}

// RedisDistributedLock implements DistributedLock on Redis SET NX.
// A nil client degrades to single-instance mode where every acquire succeeds.
type RedisDistributedLock struct {
	client       *redis.Client
	lockKey      string
	lockValue    string // unique per instance so we never release someone else's lock
	ttl          time.Duration
	isHeld       bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool // guards against double-closing stopRenew
	mu           sync.Mutex
}

// NewRedisDistributedLock creates a Redis-backed lock for the given key.
// An empty key falls back to the shared jobs leader lock.
func NewRedisDistributedLock(client *redis.Client, lockKey string) *RedisDistributedLock {
	if lockKey == "" {
		lockKey = defaultLockKey
	}
	return &RedisDistributedLock{
		client:    client,
		lockKey:   lockKey,
		lockValue: fmt.Sprintf("%s-%d-%d", lockKey, time.Now().UnixNano(), randomInt()),
		ttl:       lockTTL,
		isHeld:    false,
		stopRenew: make(chan struct{}),
	}
}

// TryLock attempts to acquire the lock with an acquire timeout
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.Warn("redis client is nil, skipping distributed lock (running in single-instance mode)")
		l.mu.Lock()
		l.isHeld = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.lockKey, l.lockValue, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		l.mu.Lock()
		l.isHeld = true
		l.acquiredAt = time.Now()

		// A fresh stopRenew channel per acquire so the lock supports
		// repeated TryLock/Unlock cycles.
		l.stopRenew = make(chan struct{})
		l.renewStopped = false
		l.mu.Unlock()

		// Keep the lock alive while held
		go l.renewLock(ctx)

		logger.DebugCtx(ctx, "lock %s acquired", l.lockKey)
		return true, nil
	}

	logger.DebugCtx(ctx, "lock %s already held by another instance", l.lockKey)
	return false, nil
}

// Unlock releases the lock
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld {
		l.mu.Unlock()
		return nil
	}

	if l.client == nil {
		l.isHeld = false
		l.mu.Unlock()
		return nil
	}

	// Stop the renewal goroutine exactly once
	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	// Delete only our own lock value
	luaScript := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, luaScript, []string{l.lockKey}, l.lockValue).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()

	if result.(int64) == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.lockKey)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or held by another instance", l.lockKey)
	}

	return nil
}

// IsHeld reports whether this instance currently holds the lock
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// renewLock extends the TTL in the background while the lock is held
func (l *RedisDistributedLock) renewLock(ctx context.Context) {
	ticker := time.NewTicker(lockExtendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopRenew:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > maxLockHoldDuration {
				logger.WarnCtx(ctx, "lock %s held for too long (%.0f seconds), will be released by main goroutine",
					l.lockKey, holdDuration.Seconds())
				// Never call Unlock from here; just drop the held flag and
				// let the holder's deferred Unlock clean up.
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			// Extend only our own lock value
			luaScript := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("expire", KEYS[1], ARGV[2])
				else
					return 0
				end
			`

			result, err := l.client.Eval(ctx, luaScript,
				[]string{l.lockKey},
				l.lockValue,
				int(l.ttl.Seconds())).Result()

			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.lockKey, err)
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			if result.(int64) == 0 {
				logger.WarnCtx(ctx, "lock %s renewal failed, lock lost", l.lockKey)
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			logger.DebugCtx(ctx, "lock %s renewed", l.lockKey)
		}
	}
}

func randomInt() int64 {
	return time.Now().UnixNano() % 1000000
}
