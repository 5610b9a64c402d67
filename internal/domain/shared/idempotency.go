package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so that a retried
// booking is not executed twice.
type IdempotencyStore interface {
	// Claim reserves key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a key whose request failed so the client can retry it
	Release(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}
