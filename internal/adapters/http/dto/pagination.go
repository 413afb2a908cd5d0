package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// TokenParam is the query parameter carrying the listing cursor.
const TokenParam = "token"

// PageRequest holds the listing parameters.
type PageRequest struct {
	// Token is nil when the parameter is absent, which starts at page 1.
	// A present but empty token is rejected by the service.
	Token *string
}

// BindPageRequest reads the listing parameters from the query string.
// Gin's form binding cannot tell an absent parameter from an empty one,
// so the token is read directly.
func BindPageRequest(c *gin.Context) PageRequest {
	token, ok := c.GetQuery(TokenParam)
	if !ok {
		return PageRequest{}
	}

	return PageRequest{Token: &token}
}

// PageResponse is one page of the quote listing.
type PageResponse struct {
	Quotes []QuoteResponse `json:"quotes"`
	Page   uint64          `json:"page"`

	// NextToken is null on the last page.
	NextToken *string `json:"next_token"`
}

// NewPageResponse converts a domain page.
func NewPageResponse(p *domain.Page) *PageResponse {
	quotes := make([]QuoteResponse, 0, len(p.Quotes))
	for _, q := range p.Quotes {
		quotes = append(quotes, *NewQuoteResponse(q))
	}

	resp := &PageResponse{
		Quotes: quotes,
		Page:   p.Number,
	}

	if p.HasNext() {
		next := p.NextToken
		resp.NextToken = &next
	}

	return resp
}
