package customer

import (
	"context"
	"time"
)

// IdempotencyRecord stores the outcome of an operation keyed by a
// client-supplied idempotency key.
type IdempotencyRecord struct {
	Key         string
	Payload     []byte
	Result      []byte
	ProcessedAt time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the record has passed its expiry
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IdempotencyRepository is the persistence port for idempotency records.
// Implementations must make Store fail on duplicate keys so concurrent
// operations with the same key cannot both proceed.
type IdempotencyRepository interface {
	// Find returns the non-expired record for the key, or nil when absent
	Find(ctx context.Context, key string) (*IdempotencyRecord, error)

	// Store records the key with its payload before the operation runs.
	// Returns shared.ErrAlreadyExists when the key is already recorded.
	Store(ctx context.Context, key string, payload, result []byte, ttl time.Duration) error

	// Delete removes a record, allowing the key to be reused
	Delete(ctx context.Context, key string) error

	// DeleteExpired purges expired records and returns how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}
