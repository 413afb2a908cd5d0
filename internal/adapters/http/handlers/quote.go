package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteService is the application surface the quote endpoints need.
type QuoteService interface {
	List(ctx context.Context, token *string) (*domain.Page, error)
	GetByID(ctx context.Context, id string) (*domain.Quote, error)
	Create(ctx context.Context, author, text string) (*domain.Quote, error)
	Update(ctx context.Context, id, author, text string) (*domain.Quote, error)
	Delete(ctx context.Context, id string) (*domain.Quote, error)
	Reset(ctx context.Context) error
}

// QuoteHandler handles the quote endpoints.
type QuoteHandler struct {
	service QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service QuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// List handles GET /api/v1/quotes
//
// @Summary List quotes
// @Description Returns up to three quotes in creation order. Pass next_token back as token for the next page.
// @Tags quotes
// @Produce json
// @Param token query string false "Cursor from a previous page"
// @Success 200 {object} dto.PageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	req := dto.BindPageRequest(c)

	page, err := h.service.List(c.Request.Context(), req.Token)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// Get handles GET /api/v1/quotes/:id
//
// @Summary Get a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Create handles POST /api/v1/quotes
//
// @Summary Create a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param body body dto.QuoteRequest true "Quote"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.QuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindingError(c, err)
		return
	}

	quote, err := h.service.Create(c.Request.Context(), *req.Author, *req.Quote)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// Update handles PUT /api/v1/quotes/:id
//
// @Summary Replace a quote's author and text
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param body body dto.QuoteRequest true "Quote"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id} [put]
func (h *QuoteHandler) Update(c *gin.Context) {
	var req dto.QuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindingError(c, err)
		return
	}

	quote, err := h.service.Update(c.Request.Context(), c.Param("id"), *req.Author, *req.Quote)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Delete handles DELETE /api/v1/quotes/:id and returns the removed quote.
//
// @Summary Delete a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *gin.Context) {
	quote, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Reset handles POST /api/v1/quotes/reset
//
// @Summary Remove every quote
// @Tags quotes
// @Success 200
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quotes/reset [post]
func (h *QuoteHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("", h.Create)
	quotes.POST("/reset", h.Reset)
	quotes.GET("/:id", h.Get)
	quotes.PUT("/:id", h.Update)
	quotes.DELETE("/:id", h.Delete)
}
