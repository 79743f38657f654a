package storage

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists values in redis. With a non-zero ttl, keys expire after
// ttl plus a random jitter so sessions created together do not expire together.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	maxJitter time.Duration
}

func NewRedisStore(client *redis.Client, ttl, maxJitter time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		maxJitter: maxJitter,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceErr("get", key, err)
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.expiration()).Err(); err != nil {
		return persistenceErr("set", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return persistenceErr("delete", key, err)
	}
	return nil
}

func (r *RedisStore) expiration() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	if r.maxJitter <= 0 {
		return r.ttl
	}
	return r.ttl + time.Duration(rand.Int63n(int64(r.maxJitter)))
}
