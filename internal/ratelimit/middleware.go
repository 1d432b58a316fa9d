package ratelimit

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/gin-gonic/gin"
)

const (
	ScopeIP      = "ip"
	ScopeAnalyze = "analyze"
)

// IPRateLimitMiddleware applies the per-IP budget to every request.
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return rl.limit(ScopeIP, func(c *gin.Context) (string, Rate) {
		return "ip:" + c.ClientIP(), PerMinute(rl.config.IPLimitPerMin)
	})
}

// AnalyzeRateLimitMiddleware applies the stricter budget for routes that call GitHub.
func (rl *RateLimiter) AnalyzeRateLimitMiddleware() gin.HandlerFunc {
	return rl.limit(ScopeAnalyze, func(c *gin.Context) (string, Rate) {
		return "analyze:" + c.ClientIP(), PerMinute(rl.config.AnalyzeLimitPerMin)
	})
}

func (rl *RateLimiter) limit(scope string, keyFn func(*gin.Context) (string, Rate)) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, r := keyFn(c)
		if r.Limit <= 0 {
			c.Next()
			return
		}

		result, err := rl.Allow(c.Request.Context(), key, r)
		if err != nil {
			// A broken limiter must not take the API down with it.
			slog.Error("Rate limit check failed", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			rl.blocked(scope)
			// Retry-After is whole seconds; round up so clients never retry early.
			retryAfter := time.Duration(math.Ceil(result.RetryAfter.Seconds())) * time.Second
			appErr := apperrors.NewRateLimitError(scope, retryAfter)
			apperrors.LogError(c, appErr)
			apperrors.Respond(c, appErr)
			return
		}

		c.Next()
	}
}
