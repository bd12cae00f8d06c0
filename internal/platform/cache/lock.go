package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReleaseFunc gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a single-holder lock kept in Redis with a TTL.
type RunLock struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRunLock returns a lock namespace. Keys are prefix + name.
func NewRunLock(client redis.UniversalClient, prefix string, ttl time.Duration) (*RunLock, error) {
	if client == nil {
		return nil, errors.New("platform/cache: redis client required")
	}
	if ttl <= 0 {
		return nil, errors.New("platform/cache: lock ttl must be positive")
	}
	return &RunLock{client: client, prefix: prefix, ttl: ttl}, nil
}

// Acquire takes the named lock. acquired is false when someone else holds it.
func (l *RunLock) Acquire(ctx context.Context, name string) (release ReleaseFunc, acquired bool, err error) {
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("platform/cache: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("platform/cache: release %s: %w", key, err)
		}
		return nil
	}, true, nil
}
