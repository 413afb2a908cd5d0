package dto

import (
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteRequest is the body of create and update. Both fields must be
// present; empty strings are accepted.
type QuoteRequest struct {
	Author *string `json:"author" validate:"required"`
	Quote  *string `json:"quote"  validate:"required"`
}

// QuoteResponse is the JSON form of a quote.
type QuoteResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Quote     string    `json:"quote"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q *domain.Quote) *QuoteResponse {
	return &QuoteResponse{
		ID:        q.ID,
		Author:    q.Author,
		Quote:     q.Text,
		CreatedAt: q.CreatedAt.UTC(),
		Version:   q.Version,
	}
}
