// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// ErrorResponse is the standard error envelope for all error responses.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details carries field-level messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes for machine-readable error identification.
const (
	// ErrorCodeNotFound indicates the quote (or route) does not exist.
	ErrorCodeNotFound = "NOT_FOUND"

	// ErrorCodeValidation indicates a rejected body or cursor.
	ErrorCodeValidation = "VALIDATION_ERROR"

	// ErrorCodeUnavailable indicates the quote store is unreachable.
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal = "INTERNAL_ERROR"

	// ErrorCodeTimeout indicates the request timed out.
	ErrorCodeTimeout = "TIMEOUT"

	// ErrorCodeBadRequest indicates the request was malformed.
	ErrorCodeBadRequest = "BAD_REQUEST"
)

const (
	// internalErrorMessage hides unknown errors from callers.
	internalErrorMessage = "an internal error occurred"

	timeoutMessage = "request timeout exceeded"
)

// NewErrorResponse creates a new error response with the given code and message.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails creates an error response with additional details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithTraceID adds a trace ID to the error response.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode returns the status that accompanies an error code.
// Unrecognised codes are 500s.
func HTTPStatusFromCode(code string) int {
	status, ok := statusByCode[code]
	if !ok {
		return http.StatusInternalServerError
	}

	return status
}

var statusByCode = map[string]int{
	ErrorCodeNotFound:    http.StatusNotFound,
	ErrorCodeValidation:  http.StatusBadRequest,
	ErrorCodeBadRequest:  http.StatusBadRequest,
	ErrorCodeUnavailable: http.StatusServiceUnavailable,
	ErrorCodeTimeout:     http.StatusGatewayTimeout,
	ErrorCodeInternal:    http.StatusInternalServerError,
}

// MapDomainError picks the envelope for err and derives the status from its
// code. A passed request deadline is a TIMEOUT even when the store reports it
// as unavailable; unrecognised errors become INTERNAL_ERROR.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	resp := envelopeFor(err)

	return HTTPStatusFromCode(resp.Error.Code), resp
}

func envelopeFor(err error) *ErrorResponse {
	var invalid *domain.ValidationError

	switch {
	case domain.IsNotFound(err):
		return NewErrorResponse(ErrorCodeNotFound, notFoundMessage(err))
	case errors.As(err, &invalid):
		if invalid.Field == "" {
			return NewErrorResponse(ErrorCodeValidation, invalid.Error())
		}

		return NewErrorResponseWithDetails(ErrorCodeValidation, invalid.Error(),
			map[string]string{invalid.Field: invalid.Message})
	case domain.IsValidation(err):
		return NewErrorResponse(ErrorCodeValidation, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorResponse(ErrorCodeTimeout, timeoutMessage)
	case domain.IsUnavailable(err):
		// The cause may carry a DSN or host name; keep it in the logs only.
		return NewErrorResponse(ErrorCodeUnavailable, "quote store unavailable")
	default:
		return NewErrorResponse(ErrorCodeInternal, internalErrorMessage)
	}
}

func notFoundMessage(err error) string {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}

	return err.Error()
}

// HandleError writes the error envelope for err. Unavailable and internal
// errors are logged with their full cause.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// HandleBindingError writes a 400 for a body that failed to bind or validate.
func HandleBindingError(c *gin.Context, err error) {
	if details := ValidationErrors(err); len(details) > 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails(
			ErrorCodeValidation,
			"request validation failed",
			details,
		).WithTraceID(GetTraceID(c)))

		return
	}

	c.JSON(http.StatusBadRequest, NewErrorResponse(
		ErrorCodeBadRequest,
		"malformed request body",
	).WithTraceID(GetTraceID(c)))
}

// AbortWithError aborts the chain with the error envelope for err.
func AbortWithError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	c.AbortWithStatusJSON(status, resp)
}

// ContextKeyTraceID lets tests and untraced deployments supply a trace id.
const ContextKeyTraceID = "trace_id"

// GetTraceID returns the OpenTelemetry trace id of the request, falling back
// to a string stored under ContextKeyTraceID.
func GetTraceID(c *gin.Context) string {
	if c.Request != nil {
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			return span.SpanContext().TraceID().String()
		}
	}

	if id, ok := c.Get(ContextKeyTraceID); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}
