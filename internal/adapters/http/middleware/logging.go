package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// probePrefix is never logged.
const probePrefix = "/-/"

// Logging returns middleware that logs one line per completed request.
// The request context logger is seeded from logger when the context has none,
// and gains the trace id so handler logs correlate with spans.
// Paths under /-/ and those starting with a skip prefix are not logged.
func Logging(logger *slog.Logger, skipPrefixes ...string) gin.HandlerFunc {
	skip := append([]string{probePrefix}, skipPrefixes...)

	return func(c *gin.Context) {
		for _, prefix := range skip {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()

				return
			}
		}

		start := time.Now()

		ctx := c.Request.Context()
		if _, ok := logging.LoggerFromContext(ctx); !ok {
			ctx = logging.WithContext(ctx, logger)
		}

		if traceID := dto.GetTraceID(c); traceID != "" {
			ctx = logging.WithTraceID(ctx, traceID)
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}

		// Logged as "cursor": masq redacts fields named token.
		if cursor, ok := c.GetQuery(dto.TokenParam); ok {
			attrs = append(attrs, slog.String("cursor", cursor))
		}

		logging.FromContext(c.Request.Context()).LogAttrs(c.Request.Context(), level, "request completed", attrs...)
	}
}
