package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const quoteKeyPrefix = "quote:"

// Cached is a read-through cache in front of a QuoteRepository.
//
// Only Get fills the cache. Update and Delete drop the entry after the store
// commits, and Clear flushes the cache. Listing always goes to the store.
// Cache failures are logged and never fail the call.
//
// A fill is skipped when any invalidation ran since its store read began, and
// an invalidation waits for fills in flight, so a fill never lands after the
// delete that should have removed it. This holds within one process; writes
// from other replicas are bounded by the TTL.
type Cached struct {
	next   ports.QuoteRepository
	cache  ports.Cache
	ttl    time.Duration
	logger *slog.Logger

	// mu is held shared by fills and exclusively by invalidations.
	mu          sync.RWMutex
	invalidated uint64
}

var _ ports.QuoteRepository = (*Cached)(nil)

// CachedConfig configures a Cached repository.
type CachedConfig struct {
	Next   ports.QuoteRepository
	Cache  ports.Cache
	TTL    time.Duration
	Logger *slog.Logger
}

// NewCached wraps cfg.Next with cfg.Cache.
func NewCached(cfg CachedConfig) *Cached {
	if cfg.Next == nil || cfg.Cache == nil {
		panic("storage: NewCached requires Next and Cache")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cached{
		next:   cfg.Next,
		cache:  cfg.Cache,
		ttl:    cfg.TTL,
		logger: logger.With(slog.String("component", "storage.Cached")),
	}
}

// cachedQuote is the cache wire format.
type cachedQuote struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"quote"`
	CreatedAt int64  `json:"created_at"`
	Version   int    `json:"version"`
}

func encodeQuote(q *domain.Quote) ([]byte, error) {
	return json.Marshal(cachedQuote{
		ID:        q.ID,
		Author:    q.Author,
		Text:      q.Text,
		CreatedAt: q.CreatedAt.UnixMilli(),
		Version:   q.Version,
	})
}

func decodeQuote(b []byte) (*domain.Quote, error) {
	var c cachedQuote
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &domain.Quote{
		ID:        c.ID,
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: time.UnixMilli(c.CreatedAt).UTC(),
		Version:   c.Version,
	}, nil
}

func quoteKey(id string) string {
	return quoteKeyPrefix + id
}

// Insert implements ports.QuoteRepository.
func (r *Cached) Insert(ctx context.Context, author, text string) (*domain.Quote, error) {
	return r.next.Insert(ctx, author, text)
}

// Get implements ports.QuoteRepository.
func (r *Cached) Get(ctx context.Context, id string) (*domain.Quote, error) {
	b, err := r.cache.Get(ctx, quoteKey(id))

	switch {
	case err == nil:
		q, decodeErr := decodeQuote(b)
		if decodeErr == nil {
			return q, nil
		}

		r.logger.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("quote_id", id),
			slog.Any("error", decodeErr),
		)
	case !domain.IsNotFound(err):
		r.logger.WarnContext(ctx, "quote cache read failed",
			slog.String("quote_id", id),
			slog.Any("error", err),
		)
	}

	seen := r.generation()

	q, err := r.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.fill(ctx, q, seen)

	return q, nil
}

// ListFrom implements ports.QuoteRepository.
func (r *Cached) ListFrom(ctx context.Context, watermark time.Time, limit int) ([]*domain.Quote, error) {
	return r.next.ListFrom(ctx, watermark, limit)
}

// Update implements ports.QuoteRepository.
func (r *Cached) Update(ctx context.Context, id, author, text string) (*domain.Quote, error) {
	q, err := r.next.Update(ctx, id, author, text)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id)

	return q, nil
}

// Delete implements ports.QuoteRepository.
func (r *Cached) Delete(ctx context.Context, id string) (*domain.Quote, error) {
	q, err := r.next.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id)

	return q, nil
}

// Clear implements ports.QuoteRepository.
func (r *Cached) Clear(ctx context.Context) error {
	if err := r.next.Clear(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.invalidated++

	if err := r.cache.Clear(ctx); err != nil {
		r.logger.WarnContext(ctx, "quote cache flush failed", slog.Any("error", err))
	}

	return nil
}

func (r *Cached) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.invalidated
}

// fill caches q unless an invalidation ran after seen was taken.
func (r *Cached) fill(ctx context.Context, q *domain.Quote, seen uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.invalidated != seen {
		return
	}

	b, err := encodeQuote(q)
	if err == nil {
		err = r.cache.Set(ctx, quoteKey(q.ID), b, r.ttl)
	}

	if err != nil {
		r.logger.WarnContext(ctx, "quote cache write failed",
			slog.String("quote_id", q.ID),
			slog.Any("error", err),
		)
	}
}

func (r *Cached) invalidate(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invalidated++

	if err := r.cache.Delete(ctx, quoteKey(id)); err != nil {
		r.logger.WarnContext(ctx, "quote cache invalidation failed",
			slog.String("quote_id", id),
			slog.Any("error", err),
		)
	}
}
