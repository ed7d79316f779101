package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker serialises work on a key across goroutines, or across processes for
// the redis implementation.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func SubmissionLockKey(submissionID uint) string {
	return fmt.Sprintf("lock:submission:%d", submissionID)
}

func ResultKey(submissionID uint) string {
	return fmt.Sprintf("result:submission:%d", submissionID)
}

// ===== LOCAL =====

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

// NewLocalLocker returns an in-process Locker. Entries are dropped once no
// goroutine holds or waits on them.
func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]*keyedMutex)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	km, ok := l.locks[key]
	if !ok {
		km = &keyedMutex{ch: make(chan struct{}, 1)}
		l.locks[key] = km
	}
	km.refs++
	l.mu.Unlock()

	select {
	case km.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, km, false)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, km, true) })
	}, nil
}

func (l *localLocker) release(key string, km *keyedMutex, held bool) {
	if held {
		<-km.ch
	}
	l.mu.Lock()
	km.refs--
	if km.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// ===== REDIS =====

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client     *redis.Client
	logger     *zap.Logger
	ttl        time.Duration
	retryDelay time.Duration
}

// NewRedisLocker returns a Locker backed by SET NX PX. ttl bounds how long a
// crashed holder can block others.
func NewRedisLocker(client *redis.Client, logger *zap.Logger, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{
		client:     client,
		logger:     logger,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
	}
}

func (r *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	delay := r.retryDelay

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-timer.C:
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the caller's context was cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
				r.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
