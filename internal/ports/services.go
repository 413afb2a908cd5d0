// Package ports defines the contracts between the quote service and its
// infrastructure. Adapters under internal/adapters implement them.
//
// Conventions:
//   - context.Context is always the first parameter
//   - methods return domain types and domain errors, never driver types
//   - a missing record is domain.ErrNotFound, a broken backend is domain.ErrUnavailable
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteRepository persists quotes.
//
// Implementations own their own serialization. No optimistic locking is
// performed: concurrent updates to the same quote are last-writer-wins.
type QuoteRepository interface {
	// Insert stores a new quote with a fresh id, created_at = now
	// (millisecond precision) and version 1.
	Insert(ctx context.Context, author, text string) (*domain.Quote, error)

	// Get returns the quote with the given id.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Quote, error)

	// ListFrom returns up to limit quotes with created_at >= watermark in
	// ascending created_at order. A zero watermark means no lower bound.
	ListFrom(ctx context.Context, watermark time.Time, limit int) ([]*domain.Quote, error)

	// Update replaces author and text and increments version.
	// Returns domain.ErrNotFound if the quote does not exist.
	Update(ctx context.Context, id, author, text string) (*domain.Quote, error)

	// Delete removes the quote and returns it as it was before removal.
	// Returns domain.ErrNotFound if the quote does not exist.
	Delete(ctx context.Context, id string) (*domain.Quote, error)

	// Clear removes every quote.
	Clear(ctx context.Context) error
}

// Cache is a byte-oriented key/value cache.
type Cache interface {
	// Get returns the cached value.
	// Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key owned by this cache.
	Clear(ctx context.Context) error
}
