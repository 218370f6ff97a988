package mappings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope is the stored form: the owner travels with the mapping so
// ownership is enforced wherever the token is redeemed.
type envelope struct {
	Owner   string            `json:"owner"`
	Mapping map[string]string `json:"mapping"`
}

// RedisStore keeps mappings in Redis with a TTL, so abandoned round trips
// expire on their own even across engine restarts.
type RedisStore struct {
	client *redis.Client
	config Config
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config Config, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Mapping store initialized",
		zap.String("key_prefix", config.KeyPrefix),
		zap.Duration("ttl", config.TTL),
	)
	return &RedisStore{client: client, config: config, logger: logger}, nil
}

func (s *RedisStore) key(token string) string {
	return s.config.KeyPrefix + ":map:" + token
}

// Save stores the mapping under a fresh token with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, sessionID string, mapping map[string]string) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(envelope{Owner: sessionID, Mapping: mapping})
	if err != nil {
		return "", fmt.Errorf("failed to marshal mapping: %w", err)
	}

	if err := s.client.Set(ctx, s.key(token), data, s.config.TTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store mapping: %w", err)
	}

	s.logger.Debug("Mapping stored",
		zap.String("token", token),
		zap.Int("entries", len(mapping)),
	)
	return token, nil
}

// Redeem loads the mapping for a token after checking session ownership.
func (s *RedisStore) Redeem(ctx context.Context, sessionID, token string) (map[string]string, error) {
	data, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		// Corrupted entry: drop it rather than serve garbage.
		s.client.Del(ctx, s.key(token))
		return nil, fmt.Errorf("failed to unmarshal mapping: %w", err)
	}

	if env.Owner != sessionID {
		s.logger.Warn("Mapping redeem denied",
			zap.String("token", token),
		)
		return nil, ErrNotOwner
	}
	return env.Mapping, nil
}

// Delete discards the mapping. Deleting an already-expired token is not an
// error.
func (s *RedisStore) Delete(ctx context.Context, sessionID, token string) error {
	data, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to load mapping: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err == nil && env.Owner != sessionID {
		return ErrNotOwner
	}
	return s.client.Del(ctx, s.key(token)).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
