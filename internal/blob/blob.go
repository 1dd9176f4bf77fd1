// Package blob stores uploaded document files.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/brainbrew/internal/logging"
)

// Store holds document bytes under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// URL returns a link the learner can open. Missing objects give
	// tutor.ErrNotFound.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config selects a backend.
type Config struct {
	// Backend is "gcs" or "local".
	Backend string `toml:"backend" validate:"oneof=gcs local"`
	Bucket  string `toml:"bucket" validate:"required_if=Backend gcs"`
	Dir     string `toml:"dir"`
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (Store, error) {
	switch cfg.Backend {
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, log)
	case "local", "":
		return NewLocal(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
