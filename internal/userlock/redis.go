package userlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix        = "userlock:v1:"
	defaultLockTTL    = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extends the lease only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Redis is a lock shared by every instance talking to the same Redis. The
// lease is renewed every ttl/3 while held, so the TTL only bounds how long a
// crashed holder can block others.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewRedis builds a Redis-backed locker. A zero ttl uses the default.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, retry: defaultRetryDelay, logger: logger}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := lockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go r.keepAlive(lockKey, key, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); err != nil {
				r.logger.Warn("release user lock", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

// keepAlive renews the lease until stop is closed. Losing the lease is
// logged; the holder keeps running but is no longer exclusive.
func (r *Redis) keepAlive(lockKey, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := renewScript.Run(ctx, r.client, []string{lockKey}, token, r.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			r.logger.Warn("renew user lock", slog.String("key", key), slog.Any("error", err))
		case n == 0:
			r.logger.Error("user lock lost before release", slog.String("key", key))
			return
		}
	}
}
