package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "bff:session:"

// RedisStore implements Store using Redis
// This is suitable for distributed deployments where multiple instances
// need to share sessions
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOptions turns the shared Redis settings into go-redis options.
// A URL, when present, takes precedence over host and port.
func RedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// NewRedisStore creates a new Redis-based session store
func NewRedisStore(cfg config.RedisConfig, keyPrefix string) (*RedisStore, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, keyPrefix), nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Load reads and decodes a session
func (s *RedisStore) Load(ctx context.Context, id string) (*Data, error) {
	b, err := s.client.Get(ctx, s.keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &data, nil
}

// Save encodes a session and stores it with a TTL
func (s *RedisStore) Save(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	if data == nil {
		data = &Data{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+id, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewStore creates the store selected by cfg.Store, falling back to memory
// when Redis is not reachable in development.
func NewStore(cfg config.SessionConfig, redisCfg config.RedisConfig, development bool, logger *zap.Logger) (Store, error) {
	switch cfg.Store {
	case "memory":
		return NewMemoryStore(), nil
	case "redis", "":
		store, err := NewRedisStore(redisCfg, cfg.KeyPrefix)
		if err != nil {
			if development {
				logger.Warn("Redis unavailable, using in-memory sessions", zap.Error(err))
				return NewMemoryStore(), nil
			}
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}
