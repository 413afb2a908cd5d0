// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
//
// What does NOT belong here:
//   - HTTP specifics (that's adapters/http)
//   - SQL or Redis calls (that's the storage and cache adapters)
//   - Cursor encoding (that's the pagination package)
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/pagination"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// TokenField is the field name reported on cursor validation errors.
const TokenField = "token"

// fetchSize is one more than a page so the service knows whether a next
// page exists and where it starts.
const fetchSize = domain.PageSize + 1

// QuoteService orchestrates quote use cases on top of a QuoteRepository.
// It holds no state of its own; the repository owns serialization.
type QuoteService struct {
	repo   ports.QuoteRepository
	logger *slog.Logger
}

// QuoteServiceConfig contains the quote service dependencies.
type QuoteServiceConfig struct {
	Repository ports.QuoteRepository
	Logger     *slog.Logger
}

// NewQuoteService creates a quote service. It panics if no repository is given.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil {
		panic("app: NewQuoteService requires a Repository")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteService{
		repo:   cfg.Repository,
		logger: logger.With(slog.String("component", "app.QuoteService")),
	}
}

// List returns one page of quotes in ascending creation order.
//
// A nil token starts at page 1 with no lower bound. Otherwise the token is
// decoded into a page number and watermark; a token that does not decode is
// a ValidationError and the store is never touched.
func (s *QuoteService) List(ctx context.Context, token *string) (*domain.Page, error) {
	logger := s.loggerFrom(ctx)

	cursor := pagination.Cursor{Page: 1}

	if token != nil {
		decoded, err := decodeToken(*token)
		if err != nil {
			logger.DebugContext(ctx, "rejected cursor",
				slog.String("cursor", *token),
				slog.Any("error", err),
			)

			return nil, err
		}

		cursor = decoded
	}

	rows, err := s.repo.ListFrom(ctx, cursor.Watermark, fetchSize)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}

	page := &domain.Page{Quotes: rows, Number: cursor.Page}

	if len(rows) > domain.PageSize {
		next, err := pagination.Encode(cursor.Page+1, rows[domain.PageSize].CreatedAt)
		if err != nil {
			// A later watermark can need one more digit than the cursor had.
			if token != nil && errors.Is(err, pagination.ErrCursorOverflow) {
				return nil, domain.NewValidationErrorWithValue(TokenField, "no room for the next page", *token)
			}

			return nil, fmt.Errorf("building next cursor: %w", err)
		}

		page.Quotes = rows[:domain.PageSize]
		page.NextToken = next
	}

	logger.DebugContext(ctx, "listed quotes",
		slog.Uint64("page", page.Number),
		slog.Int("count", len(page.Quotes)),
		slog.Bool("has_next", page.HasNext()),
	)

	return page, nil
}

func decodeToken(token string) (pagination.Cursor, error) {
	if token == "" {
		return pagination.Cursor{}, domain.NewValidationErrorWithValue(TokenField, "must not be empty", token)
	}

	cursor, err := pagination.Decode(token)
	if err != nil {
		return pagination.Cursor{}, domain.NewValidationErrorWithValue(TokenField, err.Error(), token)
	}

	// The next cursor needs page+1 and a watermark no earlier than this one.
	if cursor.Page == math.MaxUint64 {
		return pagination.Cursor{}, domain.NewValidationErrorWithValue(TokenField, "page out of range", token)
	}

	if _, err := pagination.Encode(cursor.Page+1, cursor.Watermark); err != nil {
		return pagination.Cursor{}, domain.NewValidationErrorWithValue(TokenField, "page out of range", token)
	}

	return cursor, nil
}

// GetByID returns a single quote.
func (s *QuoteService) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	if !domain.IsQuoteID(id) {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	quote, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting quote: %w", err)
	}

	return quote, nil
}

// Create stores a new quote at version 1.
func (s *QuoteService) Create(ctx context.Context, author, text string) (*domain.Quote, error) {
	quote, err := s.repo.Insert(ctx, author, text)
	if err != nil {
		s.loggerFrom(ctx).ErrorContext(ctx, "failed to create quote", slog.Any("error", err))

		return nil, fmt.Errorf("creating quote: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "created quote",
		slog.String("quote_id", quote.ID),
		slog.String("author", quote.Author),
	)

	return quote, nil
}

// Update replaces author and text and bumps the version.
func (s *QuoteService) Update(ctx context.Context, id, author, text string) (*domain.Quote, error) {
	if !domain.IsQuoteID(id) {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	quote, err := s.repo.Update(ctx, id, author, text)
	if err != nil {
		return nil, fmt.Errorf("updating quote: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "updated quote",
		slog.String("quote_id", quote.ID),
		slog.Int("version", quote.Version),
	)

	return quote, nil
}

// Delete removes a quote and returns it as it was.
func (s *QuoteService) Delete(ctx context.Context, id string) (*domain.Quote, error) {
	if !domain.IsQuoteID(id) {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	quote, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting quote: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "deleted quote", slog.String("quote_id", quote.ID))

	return quote, nil
}

// Reset removes every quote.
func (s *QuoteService) Reset(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		s.loggerFrom(ctx).ErrorContext(ctx, "failed to reset quotes", slog.Any("error", err))

		return fmt.Errorf("resetting quotes: %w", err)
	}

	s.loggerFrom(ctx).WarnContext(ctx, "reset all quotes")

	return nil
}

// loggerFrom prefers the request-scoped logger set by the HTTP middleware.
func (s *QuoteService) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := logging.LoggerFromContext(ctx); ok {
		return logger
	}

	return s.logger
}
