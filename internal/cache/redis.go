package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/david/scholar-match/internal/models"
)

// RedisStore shares match sets between API instances. SETNX gives the first writer
// for a key precedence over later writers.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "matches:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (models.MatchSet, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.MatchSet{}, ErrMiss
		}
		return models.MatchSet{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var set models.MatchSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return models.MatchSet{}, fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return set, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, set models.MatchSet) (models.MatchSet, bool, error) {
	if key == "" {
		return models.MatchSet{}, false, ErrKeyEmpty
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return models.MatchSet{}, false, fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	created, err := s.client.SetNX(ctx, s.key(key), payload, s.ttl).Result()
	if err != nil {
		return models.MatchSet{}, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if created {
		return set, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return models.MatchSet{}, false, err
	}
	return existing, false, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the backing server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
