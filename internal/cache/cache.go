package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
)

// ResultCache stores computed detection results so a parameter sweep repeated
// over the same series can skip the recomputation. Entries are write-once:
// the first PutIfAbsent for a key wins and later writes are ignored.
type ResultCache interface {
	// Get returns the cached payload for key, or ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// PutIfAbsent stores data under key unless the key already holds a value.
	// Returns true when this call stored the value.
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)

	// Close releases backend resources.
	Close() error
}

// ResultKey builds the cache key for one (series, parameter pair) detection.
// The series revision changes whenever observations are appended, so stale
// results are never served for a grown series.
func ResultKey(dataset, series string, revision int64, algorithm, direction string, slackFactor, thresholdFactor float64) string {
	return fmt.Sprintf("driftwatch:result:%s/%s@%d:%s:%s:k=%g:h=%g",
		dataset, series, revision, algorithm, direction, slackFactor, thresholdFactor)
}

// New creates a ResultCache from configuration. The memory backend is the
// default when no type is set.
func New(cfg config.CacheConfig, ttl time.Duration) (ResultCache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemoryCache(ttl), nil
	case "redis":
		return newRedisCache(cfg, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s (supported: memory, redis)", cfg.Type)
	}
}
