// Package security holds the request hardening middleware of the HTTP API.
package security

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	EnableHSTS     bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   64 << 10,
	}
}

// SecurityMiddleware bundles the per-request guards.
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// Config returns the active configuration.
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

// Headers returns the response hardening middleware.
func (sm *SecurityMiddleware) Headers() gin.HandlerFunc {
	return SecurityHeadersMiddleware(sm.config.EnableHSTS)
}

// CORS builds the cross-origin policy. A "*" entry allows every origin
// without credentials.
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(sm.config.AllowedOrigins, "*") || len(sm.config.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = sm.config.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// ValidateContentType rejects request bodies that are not JSON.
func (sm *SecurityMiddleware) ValidateContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		contentType := strings.ToLower(c.GetHeader("Content-Type"))
		if !strings.HasPrefix(contentType, "application/json") {
			appErr := apperrors.NewValidationError("unsupported content type", contentType)
			appErr.HTTPStatus = http.StatusUnsupportedMediaType
			apperrors.Respond(c, appErr)
			return
		}

		c.Next()
	}
}

// LimitBody caps the readable request body.
func (sm *SecurityMiddleware) LimitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
		}
		c.Next()
	}
}

// RequestTimeout bounds the request context.
func (sm *SecurityMiddleware) RequestTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sm.config.RequestTimeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

		c.Next()
	}
}

// ValidateUsernameParam rejects malformed :username path parameters before
// any store or upstream call is made.
func (sm *SecurityMiddleware) ValidateUsernameParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.Param("username"))
		if err := leaderboard.ValidateUsername(username); err != nil {
			apperrors.Respond(c, apperrors.ToAppError(err))
			return
		}
		c.Set("username", username)
		c.Next()
	}
}
