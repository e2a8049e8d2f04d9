// Package app wires the adapters and sessions together for the server and
// the command line client.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/talentfinder/internal/adapter/talentapi"
	"github.com/fairyhunter13/talentfinder/internal/adapter/tokenstore"
	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/service/ratelimiter"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

const throttlePrefix = "talentfinder:rate:"

// TokenStore is a domain.TokenStore that can also be probed.
type TokenStore interface {
	domain.TokenStore
	Ping(ctx context.Context) error
}

// NewTokenStore picks the file or Redis store according to cfg. rdb is
// required when cfg selects Redis.
func NewTokenStore(cfg config.Config, rdb *redis.Client) (TokenStore, error) {
	if cfg.UsesRedisTokenStore() {
		if rdb == nil {
			return nil, fmt.Errorf("op=app.NewTokenStore: %w: redis client required", domain.ErrInvalidArgument)
		}
		return tokenstore.NewRedisStore(rdb, cfg.TokenRedisKey, 0), nil
	}
	st, err := tokenstore.NewFileStore(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewTokenStore: %w", err)
	}
	return st, nil
}

// NewThrottle returns the outbound limiter for the talent API, or nil when
// throttling is disabled.
func NewThrottle(cfg config.Config, rdb *redis.Client) *ratelimiter.RedisLuaLimiter {
	if cfg.TalentAPIRatePerMin <= 0 || rdb == nil {
		return nil
	}
	return ratelimiter.NewRedisLuaLimiter(rdb, throttlePrefix, map[string]ratelimiter.BucketConfig{
		talentapi.ThrottleKey: ratelimiter.NewBucketConfigFromPerMinute(cfg.TalentAPIRatePerMin),
	})
}

// Components holds everything one user session needs.
type Components struct {
	Cfg     config.Config
	Client  *talentapi.Client
	Store   TokenStore
	Creds   *usecase.Credentials
	Search  *usecase.SearchSession
	Uploads *usecase.UploadSession
	Auth    *usecase.AuthSession
	Admin   usecase.AdminService

	redis *redis.Client
}

// New builds the components for cfg. Callers must Close them.
func New(cfg config.Config) (*Components, error) {
	var rdb *redis.Client
	if cfg.UsesRedis() {
		var err error
		if rdb, err = tokenstore.NewRedisClient(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("op=app.New: %w", err)
		}
	}
	store, err := NewTokenStore(cfg, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	creds := usecase.NewCredentials(store)
	client := talentapi.New(cfg, creds)
	if limiter := NewThrottle(cfg, rdb); limiter != nil {
		client = client.WithThrottle(limiter)
	}
	c := &Components{
		Cfg:     cfg,
		Client:  client,
		Store:   store,
		Creds:   creds,
		Search:  usecase.NewSearchSession(client, usecase.NewProfileFetcher(client, cfg.ProfileFetchConcurrency), usecase.SearchOptionsFromConfig(cfg)),
		Uploads: usecase.NewUploadSession(client, cfg.UploadPollInterval),
		Auth:    usecase.NewAuthSession(client, creds),
		Admin:   usecase.NewAdminService(client),
		redis:   rdb,
	}
	return c, nil
}

// Close stops background work and releases the Redis connection.
func (c *Components) Close() {
	c.Search.Close()
	c.Uploads.Close()
	if c.redis == nil {
		return
	}
	if err := c.redis.Close(); err != nil {
		slog.Warn("redis close failed", slog.Any("error", err))
	}
}
