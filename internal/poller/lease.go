package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Lease is a named, expiring lock shared between replicas.
type Lease interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// RedisLease holds a lease as a Redis key whose value is the holder's token.
// Release only deletes the key while the token still matches, so a holder
// whose lease expired cannot drop its successor's.
type RedisLease struct {
	client redis.UniversalClient
	script *redis.Script
}

func NewRedisLease(client redis.UniversalClient) *RedisLease {
	if client == nil {
		return nil
	}
	return &RedisLease{client: client, script: redis.NewScript(leaseReleaseScript)}
}

func (l *RedisLease) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lease client not configured")
	}
	if key == "" {
		return "", false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lease ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLease) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
