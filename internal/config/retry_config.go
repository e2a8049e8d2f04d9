package config

import (
	"time"
)

// APIRetryConfig controls retries of idempotent talent API reads.
type APIRetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// GetAPIRetryConfig returns retry settings appropriate for the current environment.
// In test environments retries are short so failing paths resolve quickly.
func (c Config) GetAPIRetryConfig() APIRetryConfig {
	if c.IsTest() {
		return APIRetryConfig{MaxRetries: c.TalentAPIMaxRetries, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Multiplier: 2.0}
	}
	return APIRetryConfig{
		MaxRetries:      c.TalentAPIMaxRetries,
		InitialInterval: c.TalentAPIRetryInitial,
		MaxInterval:     c.TalentAPIRetryMax,
		Multiplier:      1.5,
	}
}
