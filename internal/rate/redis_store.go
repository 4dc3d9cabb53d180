package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript: KEYS[1]=bucket, ARGV[1]=max, ARGV[2]=window in ms.
var consumeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return 1
end
if tonumber(current) < tonumber(ARGV[1]) then
  redis.call('INCR', KEYS[1])
  return 1
end
return 0
`)

// RedisStore keeps buckets as Redis strings expiring with the window.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore returns a RedisStore over client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

// Consume implements Store.
func (s *RedisStore) Consume(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	allowed, err := consumeScript.Run(ctx, s.redis, []string{key}, max, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return allowed == 1, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
