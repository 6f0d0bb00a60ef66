package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// SessionStore keeps login sessions in Redis with a TTL per token
type SessionStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewSessionStore creates a new Redis session store
func NewSessionStore(cfg *config.RedisConfig, logger *slog.Logger) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SessionStore{
		client: client,
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// sessionKey returns the Redis key holding a token's user ID
func (s *SessionStore) sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, token)
}

// userSessionsKey returns the Redis key of the set of a user's tokens
func (s *SessionStore) userSessionsKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:sessions", s.prefix, userID)
}

// Create opens a session for userID and returns its token
func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(token), userID, ttl)
	pipe.SAdd(ctx, s.userSessionsKey(userID), token)
	pipe.Expire(ctx, s.userSessionsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return token, nil
}

// Get returns the user ID of a live session
func (s *SessionStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrUnauthenticated
		}
		return "", fmt.Errorf("getting session: %w", err)
	}
	return userID, nil
}

// Delete closes a session. Unknown tokens are ignored.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	key := s.sessionKey(token)
	userID, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("getting session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, s.userSessionsKey(userID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteUser closes every session of a user
func (s *SessionStore) DeleteUser(ctx context.Context, userID string) error {
	setKey := s.userSessionsKey(userID)
	tokens, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, s.sessionKey(t))
	}
	keys = append(keys, setKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}

	s.logger.Info("user sessions revoked", "user_id", userID, "count", len(tokens))
	return nil
}
