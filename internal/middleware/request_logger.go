package middleware

import (
	"net/http"
	"time"

	"prepx/internal/observability"

	"github.com/gin-gonic/gin"
)

// RequestLogger writes one entry per request: 5xx at error, 4xx at warn, the rest at info.
// Paths in skip (health checks) are not logged.
func RequestLogger(logger *observability.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if _, ok := skipped[path]; ok {
			return
		}

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if userID := CurrentUserID(c); userID > 0 {
			fields["user_id"] = userID
		}

		var lastErr error
		if last := c.Errors.Last(); last != nil {
			lastErr = last.Err
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "Request failed", lastErr, fields)
		case status >= http.StatusBadRequest:
			if lastErr != nil {
				fields["error"] = lastErr.Error()
			}
			logger.Warn(ctx, "Request rejected", fields)
		default:
			logger.Info(ctx, "Request handled", fields)
		}
	}
}
