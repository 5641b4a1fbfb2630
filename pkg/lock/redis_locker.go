package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix = "contract-review:lock:"
	defaultLeaseTTL = 30 * time.Second
	retryInterval   = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so a
// lease that expired and was taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker provides the same per-key exclusion across service instances.
type RedisLocker struct {
	rdb      *redis.Client
	leaseTTL time.Duration
}

func NewRedisLocker(rdb *redis.Client, leaseTTL time.Duration) *RedisLocker {
	if leaseTTL <= 0 {
		leaseTTL = defaultLeaseTTL
	}
	return &RedisLocker{rdb: rdb, leaseTTL: leaseTTL}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Release must not depend on the caller's (possibly cancelled) context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err()
	}, nil
}
