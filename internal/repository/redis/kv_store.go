package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

const defaultKeyPrefix = "homescout:navigation"

// KeyValueStore keeps installation-scoped documents in Redis.
type KeyValueStore struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewKeyValueStore constructs a Redis-backed store. A positive ttl makes Redis reap
// entries on its own; zero keeps them until overwritten or deleted.
func NewKeyValueStore(client *red.Client, keyPrefix string, ttl time.Duration) *KeyValueStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &KeyValueStore{client: client, prefix: prefix, ttl: ttl}
}

// Get fetches the stored document, returning ErrNotFound on miss.
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := s.key(key)
	if fullKey == "" {
		return nil, repository.ErrInvalidKey
	}

	value, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", fullKey, err)
	}
	return value, nil
}

// Set overwrites the document stored under key.
func (s *KeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	fullKey := s.key(key)
	if fullKey == "" {
		return repository.ErrInvalidKey
	}
	if err := s.client.Set(ctx, fullKey, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", fullKey, err)
	}
	return nil
}

// Delete removes the document. Deleting a missing key is not an error.
func (s *KeyValueStore) Delete(ctx context.Context, key string) error {
	fullKey := s.key(key)
	if fullKey == "" {
		return repository.ErrInvalidKey
	}
	if err := s.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", fullKey, err)
	}
	return nil
}

func (s *KeyValueStore) key(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}

var _ port.KeyValueStore = (*KeyValueStore)(nil)
