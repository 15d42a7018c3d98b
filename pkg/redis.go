package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON cache over Redis with a fixed TTL. A nil client makes
// every operation a miss, so callers can run without Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON retrieves a key and deserializes it into dest. Returns redis.Nil
// when the key does not exist.
func (slf *Cache) GetJSON(key string, dest any) error {
	if slf.client == nil {
		return redis.Nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := slf.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON stores a value under key for the cache TTL.
func (slf *Cache) SetJSON(key string, value any) error {
	if slf.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return slf.client.Set(ctx, key, data, slf.ttl).Err()
}

// Delete removes a key.
func (slf *Cache) Delete(key string) error {
	if slf.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return slf.client.Del(ctx, key).Err()
}

// IsCacheMiss reports whether err means the key was absent.
func IsCacheMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
