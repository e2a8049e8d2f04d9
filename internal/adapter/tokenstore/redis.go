package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// RedisStore keeps the token under a single key. A zero ttl keeps it until
// Clear.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var _ domain.TokenStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and builds the client. The caller
// owns the client and closes it.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("op=tokenstore.NewRedisClient: %w: %v", domain.ErrInvalidArgument, err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("op=tokenstore.Redis.Load: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return v, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	if err := s.rdb.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=tokenstore.Redis.Save: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("op=tokenstore.Redis.Clear: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("op=tokenstore.Redis.Ping: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}
