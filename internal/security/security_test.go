package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Contains(t, config.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, 30*time.Second, config.RequestTimeout)
	assert.Equal(t, int64(64<<10), config.MaxBodyBytes)
	assert.False(t, config.EnableHSTS)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(true))
	r.GET("/api/v1/distribution", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path    string
		wantCSP string
	}{
		{path: "/api/v1/distribution", wantCSP: apiCSP},
		{path: "/swagger/index.html", wantCSP: docsCSP},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, tt.wantCSP, rec.Header().Get("Content-Security-Policy"))
			assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllowed string
	}{
		{name: "listed origin", origins: []string{"https://aurameter.dev"}, origin: "https://aurameter.dev", wantAllowed: "https://aurameter.dev"},
		{name: "unlisted origin", origins: []string{"https://aurameter.dev"}, origin: "https://evil.example"},
		{name: "wildcard", origins: []string{"*"}, origin: "https://anyone.example", wantAllowed: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSecurityConfig()
			cfg.AllowedOrigins = tt.origins
			sm := NewSecurityMiddleware(cfg)

			r := gin.New()
			r.Use(sm.CORS())
			r.GET("/api/v1/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestValidateContentType(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())
	r := gin.New()
	r.Use(sm.ValidateContentType())
	r.POST("/api/v1/collect", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{name: "json", contentType: "application/json; charset=utf-8", body: `{}`, want: http.StatusAccepted},
		{name: "empty body", want: http.StatusAccepted},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "a=b", want: http.StatusUnsupportedMediaType},
		{name: "xml", contentType: "text/xml", body: "<a/>", want: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/collect", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.MaxBodyBytes = 8
	sm := NewSecurityMiddleware(cfg)

	r := gin.New()
	r.Use(sm.LimitBody())
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestTimeout(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.RequestTimeout = 2 * time.Second
	sm := NewSecurityMiddleware(cfg)

	r := gin.New()
	r.Use(sm.RequestTimeout())
	r.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "2", rec.Header().Get("X-Timeout"))
}

func TestValidateUsernameParam(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())
	r := gin.New()
	r.GET("/rank/:username", sm.ValidateUsernameParam(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})

	tests := []struct {
		name     string
		username string
		want     int
	}{
		{name: "plain login", username: "octocat", want: http.StatusOK},
		{name: "hyphenated", username: "mona-lisa", want: http.StatusOK},
		{name: "double hyphen", username: "a--b", want: http.StatusBadRequest},
		{name: "leading hyphen", username: "-abc", want: http.StatusBadRequest},
		{name: "too long", username: strings.Repeat("a", 40), want: http.StatusBadRequest},
		{name: "sql", username: "a'%20OR%201=1", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/"+tt.username, nil))

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, tt.username, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"category":"validation"`)
			}
		})
	}
}
