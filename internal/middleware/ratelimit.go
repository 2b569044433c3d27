package middleware

import (
	"math"
	"strconv"

	"prepx/internal/observability"
	"prepx/internal/ratelimit"
	contextutils "prepx/internal/utils"

	"github.com/gin-gonic/gin"
)

// AttemptRateLimit limits answer submissions per authenticated user. It must follow
// RequireAuth. A nil limiter lets every request through.
func AttemptRateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Allow logs its own failures and fails open
		decision, _ := limiter.Allow(ctx, "user:"+strconv.Itoa(CurrentUserID(c)))

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			observability.GetAttemptMetrics().RecordRateLimited(ctx)
			HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeRateLimit, contextutils.SeverityWarn,
				"Too many attempts, slow down", ""))
			return
		}

		c.Next()
	}
}
