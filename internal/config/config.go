// Package config defines configuration parsing and helpers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	// TalentAPIBaseURL is the external talent-finder service (search, profiles, uploads, auth).
	TalentAPIBaseURL      string        `env:"TALENT_API_BASE_URL" envDefault:"http://localhost:8000"`
	TalentAPITimeout      time.Duration `env:"TALENT_API_TIMEOUT" envDefault:"30s"`
	TalentAPIMaxRetries   int           `env:"TALENT_API_MAX_RETRIES" envDefault:"2"`
	TalentAPIRetryInitial time.Duration `env:"TALENT_API_RETRY_INITIAL" envDefault:"200ms"`
	TalentAPIRetryMax     time.Duration `env:"TALENT_API_RETRY_MAX" envDefault:"2s"`
	// TalentAPIRatePerMin throttles outbound calls through a Redis token bucket; 0 disables it.
	TalentAPIRatePerMin int `env:"TALENT_API_RATE_PER_MIN" envDefault:"0"`
	// TalentAPIBreakerFailures consecutive upstream failures open the circuit; 0 disables it.
	TalentAPIBreakerFailures int           `env:"TALENT_API_BREAKER_FAILURES" envDefault:"5"`
	TalentAPIBreakerCooldown time.Duration `env:"TALENT_API_BREAKER_COOLDOWN" envDefault:"15s"`
	// Search input bounds mirror the numeric input of the job description screen.
	SearchMinTopK     int `env:"SEARCH_MIN_TOP_K" envDefault:"1"`
	SearchMaxTopK     int `env:"SEARCH_MAX_TOP_K" envDefault:"50"`
	SearchDefaultTopK int `env:"SEARCH_DEFAULT_TOP_K" envDefault:"10"`
	ResultsPageSize   int `env:"RESULTS_PAGE_SIZE" envDefault:"9"`
	DashboardTopSkill int `env:"DASHBOARD_TOP_SKILLS" envDefault:"8"`
	// ProfileFetchConcurrency caps in-flight profile fetches; 0 means one per stub.
	ProfileFetchConcurrency int           `env:"PROFILE_FETCH_CONCURRENCY" envDefault:"0"`
	UploadPollInterval      time.Duration `env:"UPLOAD_POLL_INTERVAL" envDefault:"2s"`
	MaxUploadMB             int64         `env:"MAX_UPLOAD_MB" envDefault:"50"`
	// TokenStore selects where the auth token lives: "file" or "redis".
	TokenStore      string `env:"TOKEN_STORE" envDefault:"file"`
	TokenFile       string `env:"TOKEN_FILE"`
	RedisURL        string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	TokenRedisKey   string `env:"TOKEN_REDIS_KEY" envDefault:"talentfinder:auth:token"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"talentfinder-bff"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load reads an optional .env file and parses environment variables into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("op=config.Load: dotenv: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.TalentAPIRatePerMin < 0 {
		return Config{}, fmt.Errorf("op=config.Load: TALENT_API_RATE_PER_MIN must be >= 0, got %d", cfg.TalentAPIRatePerMin)
	}
	if cfg.SearchMinTopK < 1 || cfg.SearchMaxTopK < cfg.SearchMinTopK {
		return Config{}, fmt.Errorf("op=config.Load: invalid top_k bounds [%d,%d]", cfg.SearchMinTopK, cfg.SearchMaxTopK)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// UsesRedisTokenStore reports whether the auth token is kept in Redis.
func (c Config) UsesRedisTokenStore() bool { return strings.EqualFold(c.TokenStore, "redis") }

// UsesRedis reports whether any component needs the Redis connection.
func (c Config) UsesRedis() bool { return c.UsesRedisTokenStore() || c.TalentAPIRatePerMin > 0 }

// MaxUploadBytes is the archive size accepted by the upload endpoint.
func (c Config) MaxUploadBytes() int64 { return c.MaxUploadMB * 1024 * 1024 }
