// Command server runs the AuraMeter HTTP API.
//
//	@title						AuraMeter API
//	@version					1.0
//	@description				Rank GitHub developers by impact index.
//	@BasePath					/
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ZanzyTHEbar/aurameter/docs"
	"github.com/ZanzyTHEbar/aurameter/internal/api"
	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/config"
	"github.com/ZanzyTHEbar/aurameter/internal/middleware"
	"github.com/ZanzyTHEbar/aurameter/internal/ratelimit"
	"github.com/ZanzyTHEbar/aurameter/internal/security"
	"github.com/gin-gonic/gin"
)

// Set by the linker at release time.
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{AutoMigrate: true})
	if err != nil {
		slog.Error("Failed to initialize services", "error", err)
		return 1
	}
	a.Start(ctx)

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.IPLimitPerMin = cfg.IPLimitPerMin
	limiter := ratelimit.NewRateLimiter(a.Redis, limiterCfg, a.Metrics)

	secCfg := security.DefaultSecurityConfig()
	secCfg.AllowedOrigins = cfg.CORSOrigins

	handler := api.NewHandler(api.Deps{
		Leaderboard: a.Leaderboard,
		Profiles:    a.GitHub,
		Analyzer:    a.Analyzer,
		Runs:        a.Runs,
		Health:      a.Health,
		Version:     version,
	})
	router := api.NewRouter(ctx, handler, api.Options{
		Metrics:         a.Metrics,
		Logger:          a.Logger,
		Limiter:         limiter,
		Security:        security.NewSecurityMiddleware(secCfg),
		Compression:     middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		EnableProfiling: cfg.EnableProfiling,
	})

	srv := api.NewServer(cfg.Addr, router)
	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "version", version, "db_backend", cfg.DBBackend, "redis", a.Redis.IsEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		exitCode = 1
	}
	limiter.Close()
	if err := a.Close(); err != nil {
		slog.Error("Failed to close services", "error", err)
		exitCode = 1
	}

	slog.Info("Server exited")
	return exitCode
}
