package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so projection handlers
// can skip redeliveries.
type IdempotencyStore interface {
	// MarkProcessed records the event ID with a TTL. It reports true when
	// the ID was newly recorded and false when it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event ID was already recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// IdempotencyConfig controls event deduplication.
type IdempotencyConfig struct {
	// TTL is how long a processed event ID is remembered. Once it expires
	// the same event would be processed again.
	TTL time.Duration

	// Enabled turns deduplication off entirely when false.
	Enabled bool
}

// DefaultIdempotencyConfig remembers events for 24 hours.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
