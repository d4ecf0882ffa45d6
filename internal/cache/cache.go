package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the key-value backend interface. All Redis operations go through here.
// Implementations must be safe for concurrent use.
type KV interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetNX writes the value only if the key does not exist. Returns whether
	// the key was set. The atomicity of this operation is what makes the
	// processing lock correct across concurrent callers and instances.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// TTL returns the remaining lifetime of a key: -1 if the key has no
	// expiry, -2 if the key does not exist (Redis semantics).
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisKV implements the KV interface using go-redis/v9.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a new RedisKV from a Redis URL.
func NewRedisKV(redisURL string) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisKV{client: redis.NewClient(opts)}, nil
}

func (c *RedisKV) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisKV) Close() error {
	return c.client.Close()
}

func (c *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisKV) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisKV) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, key).Result()
}

func (c *RedisKV) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
