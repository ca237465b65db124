package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the transient per-session key/value medium the checkout handoff
// writes to. A session is single-writer: two sessions sharing an id clobber
// each other, last write wins.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes all values or none of them
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type redisStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

// NewRedisStore namespaces every key under the given checkout session
func NewRedisStore(redisClient *redis.Client, sessionID string, ttl time.Duration) Store {
	return &redisStore{
		redisClient: redisClient,
		keyPrefix:   "platoo:checkout:" + sessionID + ":",
		ttl:         ttl,
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get checkout key %s: %w", key, err)
	}
	return val, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	err := s.redisClient.Set(ctx, s.keyPrefix+key, value, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set checkout key %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, s.keyPrefix+key, value, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set checkout keys: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.keyPrefix + key
	}

	if err := s.redisClient.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete checkout keys: %w", err)
	}
	return nil
}
