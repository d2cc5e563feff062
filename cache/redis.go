package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the Store with a shared redis instance so multiple replicas of
// the service see the same transient state.
type Redis struct {
	client *redis.Client
}

// takeIfMatch compares and deletes in one round trip, so two concurrent
// consumers can never both succeed.
var takeIfMatch = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) Put(ctx context.Context, key, val string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("storing key[%s]: %w", key, err)
	}
	return nil
}

func (r *Redis) Add(ctx context.Context, key, val string, ttl time.Duration) (bool, error) {
	added, err := r.client.SetNX(ctx, key, val, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("storing key[%s] if absent: %w", key, err)
	}
	return added, nil
}

func (r *Redis) TakeIfMatch(ctx context.Context, key, val string) (bool, error) {
	n, err := takeIfMatch.Run(ctx, r.client, []string{key}, val).Int()
	if err != nil {
		return false, fmt.Errorf("consuming key[%s]: %w", key, err)
	}
	return n == 1, nil
}
