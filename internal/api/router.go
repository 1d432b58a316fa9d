// Package api is the HTTP surface of the service.
package api

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/middleware"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/ZanzyTHEbar/aurameter/internal/ratelimit"
	"github.com/ZanzyTHEbar/aurameter/internal/security"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options are the optional cross-cutting pieces of the router. Nil fields
// are skipped.
type Options struct {
	Metrics         *monitoring.Manager
	Logger          *monitoring.Logger
	Limiter         *ratelimit.RateLimiter
	Security        *security.SecurityMiddleware
	Compression     *middleware.CompressionMiddleware
	EnableProfiling bool
}

// NewRouter wires the middleware chain and every route. ctx bounds
// background work started by requests, such as collection runs.
func NewRouter(ctx context.Context, h *Handler, opts Options) *gin.Engine {
	h.baseCtx = ctx
	if opts.Logger != nil {
		h.logger = opts.Logger
	}

	r := gin.New()
	if opts.Security != nil {
		_ = r.SetTrustedProxies(opts.Security.Config().TrustedProxies)
	}

	r.Use(monitoring.RequestIDMiddleware())
	if opts.Metrics != nil && opts.Logger != nil {
		r.Use(monitoring.MonitoringMiddleware(opts.Metrics, opts.Logger))
	}
	if opts.Logger != nil {
		r.Use(monitoring.SecurityMonitoringMiddleware(opts.Logger))
	}
	r.Use(apperrors.RecoveryHandler())
	r.Use(apperrors.ErrorHandler())
	if opts.Security != nil {
		r.Use(opts.Security.CORS(), opts.Security.Headers(), opts.Security.RequestTimeout(), opts.Security.LimitBody())
	}
	if opts.Compression != nil {
		r.Use(opts.Compression.Handler())
	}

	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if opts.Limiter != nil {
		v1.Use(opts.Limiter.IPRateLimitMiddleware())
	}

	username := gin.HandlersChain{}
	if opts.Security != nil {
		username = append(username, opts.Security.ValidateUsernameParam())
	}
	analyzeGuard := gin.HandlersChain{}
	if opts.Limiter != nil {
		analyzeGuard = append(analyzeGuard, opts.Limiter.AnalyzeRateLimitMiddleware())
	}
	jsonBody := gin.HandlersChain{}
	if opts.Security != nil {
		jsonBody = append(jsonBody, opts.Security.ValidateContentType())
	}

	v1.GET("/rank/:username", chain(username, gin.HandlersChain{h.GetRank})...)
	v1.GET("/distribution", h.GetDistribution)
	v1.GET("/leaderboard", h.GetLeaderboard)
	v1.GET("/leaderboard/languages", h.GetLanguages)
	v1.POST("/analyze/:username", chain(analyzeGuard, username, gin.HandlersChain{h.Analyze})...)
	v1.POST("/collect", chain(analyzeGuard, jsonBody, gin.HandlersChain{h.StartCollection})...)
	v1.GET("/collect/:id", h.GetCollection)

	if opts.EnableProfiling {
		debug := r.Group("/debug/pprof")
		debug.GET("/", gin.WrapF(pprof.Index))
		debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		debug.GET("/profile", gin.WrapF(pprof.Profile))
		debug.GET("/symbol", gin.WrapF(pprof.Symbol))
		debug.GET("/trace", gin.WrapF(pprof.Trace))
		debug.GET("/:profile", func(c *gin.Context) {
			pprof.Handler(c.Param("profile")).ServeHTTP(c.Writer, c.Request)
		})
	}

	r.NoRoute(func(c *gin.Context) {
		apperrors.Respond(c, apperrors.NewNotFoundError("route", c.Request.URL.Path))
	})

	return r
}

func chain(parts ...gin.HandlersChain) gin.HandlersChain {
	var out gin.HandlersChain
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// NewServer wraps the router in an http.Server.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
