// Package memory provides an in-process QuoteRepository used for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.QuoteRepository = (*Store)(nil)
	_ ports.HealthChecker   = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides quote id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// Store keeps quotes in a map plus a slice ordered by created_at.
// Quotes sharing a timestamp stay in insertion order.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Quote
	ordered []*domain.Quote

	now   func() time.Time
	newID func() string
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		byID:  make(map[string]*domain.Quote),
		now:   time.Now,
		newID: domain.NewQuoteID,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Insert implements ports.QuoteRepository.
func (s *Store) Insert(_ context.Context, author, text string) (*domain.Quote, error) {
	q := &domain.Quote{
		ID:        s.newID(),
		Author:    author,
		Text:      text,
		CreatedAt: domain.Timestamp(s.now()),
		Version:   1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First position strictly after every quote with the same or earlier timestamp.
	pos := sort.Search(len(s.ordered), func(i int) bool {
		return s.ordered[i].CreatedAt.After(q.CreatedAt)
	})

	s.ordered = slices.Insert(s.ordered, pos, q)
	s.byID[q.ID] = q

	return clone(q), nil
}

// Get implements ports.QuoteRepository.
func (s *Store) Get(_ context.Context, id string) (*domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	return clone(q), nil
}

// ListFrom implements ports.QuoteRepository.
func (s *Store) ListFrom(_ context.Context, watermark time.Time, limit int) ([]*domain.Quote, error) {
	if limit <= 0 {
		return []*domain.Quote{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if !watermark.IsZero() {
		start = s.firstAtOrAfter(watermark)
	}

	end := min(start+limit, len(s.ordered))

	quotes := make([]*domain.Quote, 0, end-start)
	for _, q := range s.ordered[start:end] {
		quotes = append(quotes, clone(q))
	}

	return quotes, nil
}

// Update implements ports.QuoteRepository.
func (s *Store) Update(_ context.Context, id, author, text string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	q.Author = author
	q.Text = text
	q.Version++

	return clone(q), nil
}

// Delete implements ports.QuoteRepository.
func (s *Store) Delete(_ context.Context, id string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	delete(s.byID, id)

	for i := s.firstAtOrAfter(q.CreatedAt); i < len(s.ordered); i++ {
		if s.ordered[i].ID == id {
			s.ordered = slices.Delete(s.ordered, i, i+1)

			break
		}
	}

	return clone(q), nil
}

// Clear implements ports.QuoteRepository.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.byID)
	s.ordered = nil

	return nil
}

// Len returns the number of stored quotes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ordered)
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "quote-store"
}

// Check implements ports.HealthChecker. The in-memory store is always available.
func (s *Store) Check(ctx context.Context) error {
	return ctx.Err()
}

// firstAtOrAfter must be called with mu held.
func (s *Store) firstAtOrAfter(t time.Time) int {
	return sort.Search(len(s.ordered), func(i int) bool {
		return !s.ordered[i].CreatedAt.Before(t)
	})
}

func clone(q *domain.Quote) *domain.Quote {
	c := *q

	return &c
}
