package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig contains configuration options for the Redis store
type RedisConfig struct {
	// Client is the Redis client instance
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys
	// Default: "simpleshare:session:"
	KeyPrefix string

	// TTL bounds session lifetime; zero keeps sessions until logout.
	TTL time.Duration
}

// RedisStore keeps sessions in Redis so they survive restarts. Expiry is
// enforced by the key TTL.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "simpleshare:session:"
	}
	return &RedisStore{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisStore) key(token string) string {
	return r.keyPrefix + token
}

func (r *RedisStore) Create(ctx context.Context, username string) (string, *Session, error) {
	token := uuid.NewString()
	s := newSession(username, time.Now(), r.ttl)

	data, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(token), data, r.ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	return token, s, nil
}

func (r *RedisStore) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Expired(time.Now()) {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (r *RedisStore) Invalidate(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
