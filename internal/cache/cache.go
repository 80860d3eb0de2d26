// Package cache provides verdict caching for the domain guardrail.
// Supports both local in-memory and Redis backends for multi-instance
// deployments.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the default time-to-live for cached verdicts. Verdicts for
// identical effective text rarely change; a bounded TTL still lets prompt
// or taxonomy updates take effect.
const DefaultTTL = 1 * time.Hour

// VerdictCache stores guardrail verdicts keyed by an effective-text hash.
// Implementations must be safe for concurrent use.
type VerdictCache interface {
	// Get retrieves a cached verdict. The second return value reports
	// whether the key was present.
	Get(ctx context.Context, key string) (inDomain bool, ok bool, err error)

	// Set stores a verdict.
	Set(ctx context.Context, key string, inDomain bool) error

	// Close releases any resources held by the cache.
	Close() error
}

// Config selects and tunes the cache backend.
type Config struct {
	// RedisURL, when set, selects the Redis backend
	// (e.g. "redis://localhost:6379/0"). Empty selects the local backend.
	RedisURL string

	// TTL is the verdict time-to-live (defaults to DefaultTTL).
	TTL time.Duration
}

// New creates a VerdictCache for the given configuration.
func New(cfg Config) (VerdictCache, error) {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if cfg.RedisURL != "" {
		return NewRedisCache(cfg.RedisURL, ttl)
	}
	return NewLocalCache(ttl), nil
}
