package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityQuote is the entity name used in errors and logs.
const EntityQuote = "quote"

// PageSize is the number of quotes returned per listing page.
const PageSize = 3

// Quote is a stored quotation.
type Quote struct {
	// ID is a UUID assigned on insert. It never changes.
	ID string

	// Author is who said or wrote the quote.
	Author string

	// Text is the quotation itself.
	Text string

	// CreatedAt is assigned on insert with millisecond precision. It orders
	// listings and is the watermark carried in cursors.
	CreatedAt time.Time

	// Version starts at 1 and increases by one on each update.
	Version int
}

// Page is one slice of the quote listing.
type Page struct {
	Quotes []*Quote

	// Number is the 1-based page number.
	Number uint64

	// NextToken resumes the listing. Empty on the last page.
	NextToken string
}

// HasNext reports whether another page follows.
func (p *Page) HasNext() bool {
	return p.NextToken != ""
}

// IsQuoteID reports whether id has the shape of a quote id.
func IsQuoteID(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}

// NewQuoteID returns a fresh random quote id.
func NewQuoteID() string {
	return uuid.NewString()
}

// Timestamp truncates t to the millisecond precision quotes are stored with.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
