// Package cache stores document analyses keyed by a content hash so that the
// same document is only sent to the LLM once.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/brainbrew/internal/logging"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A zero ttl keeps the entry until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	// Backend is "badger", "redis" or "none".
	Backend string `toml:"backend" validate:"oneof=badger redis none"`

	// Dir is the badger directory. Empty runs badger in memory.
	Dir string `toml:"dir"`

	// RedisAddr is host:port of the redis server.
	RedisAddr string `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `toml:"redis_db" validate:"min=0"`

	// Prefix namespaces keys in a shared redis.
	Prefix string `toml:"prefix"`

	TTL time.Duration `toml:"ttl" validate:"min=0"`
}

// DefaultConfig returns an embedded badger cache keeping analyses for a week.
func DefaultConfig() Config {
	return Config{
		Backend: "badger",
		Prefix:  "brainbrew:",
		TTL:     7 * 24 * time.Hour,
	}
}

// Open builds the backend named by cfg.Backend. "none" returns nil, nil and
// callers treat a nil Cache as always missing.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (Cache, error) {
	switch cfg.Backend {
	case "badger", "":
		bc := DefaultBadgerConfig()
		bc.Path = cfg.Dir
		bc.InMemory = cfg.Dir == ""
		bc.Logger = log
		return OpenBadger(bc)
	case "redis":
		return OpenRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Prefix: cfg.Prefix})
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
