package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys for a while. The ledger uses it for
// processed event ids and for scheduler runs that must not repeat.
type IdempotencyStore interface {
	// MarkProcessed records key and reports whether it was new
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls event deduplication
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps event ids for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
