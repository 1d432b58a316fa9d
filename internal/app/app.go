// Package app assembles the services both binaries run on: store, caches,
// rank resolution, the GitHub adapter and the collector.
package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/adapters"
	"github.com/ZanzyTHEbar/aurameter/internal/analysis"
	"github.com/ZanzyTHEbar/aurameter/internal/cache"
	"github.com/ZanzyTHEbar/aurameter/internal/collector"
	"github.com/ZanzyTHEbar/aurameter/internal/config"
	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
)

// Dependency names used for health tracking.
const (
	ServiceDatabase = "database"
	ServiceCache    = "cache"
	ServiceGitHub   = "github"
)

const (
	cachePrefix          = "aurameter:cache:"
	leaderboardRefresh   = 10 * time.Minute
	dependencyMirrorTick = 15 * time.Second
)

// Options tune New for the binary that calls it.
type Options struct {
	// LogOutput receives JSON logs. Defaults to stdout.
	LogOutput io.Writer
	// AutoMigrate applies pending migrations before opening the store.
	AutoMigrate bool
	// Metrics defaults to a fresh manager with runtime collectors.
	Metrics *monitoring.Manager
}

// App holds the wired services.
type App struct {
	Config  *config.Config
	Logger  *monitoring.Logger
	Metrics *monitoring.Manager
	Health  *resilience.DegradationManager

	DB    *database.DB
	Repo  *database.Repository
	Redis *cache.RedisClient
	Cache cache.Store

	Snapshots   *distribution.Service
	Resolver    *ranking.Resolver
	Leaderboard *leaderboard.Service
	GitHub      *adapters.GitHubAdapter
	Analyzer    *analysis.Analyzer
	Collector   *collector.Collector
	Runs        *collector.Manager
}

// New connects the store and cache and builds every service on top of them.
// The caller owns the result and must Close it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := monitoring.NewLogger(cfg.LogLevel)
	if opts.LogOutput != nil {
		logger = monitoring.NewLoggerTo(opts.LogOutput, cfg.LogLevel)
	}
	logger.SetDefault()

	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewManager()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Health:  resilience.NewDegradationManager(resilience.DefaultDegradationConfig()),
	}

	db, err := database.Open(ctx, database.Options{
		Backend:     cfg.Backend(),
		DSN:         cfg.DBDSN,
		DataDir:     cfg.DataDir,
		AutoMigrate: opts.AutoMigrate,
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("open", err)
	}
	a.DB = db
	a.Repo = database.NewRepository(db)

	redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, falling back to in-memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	a.Redis = redisClient
	a.Cache = cache.New(redisClient, cachePrefix)

	a.Snapshots = distribution.NewService(a.Repo, a.Cache, cfg.SnapshotTTL, distribution.WithObserver(metrics))
	a.Resolver = ranking.NewResolver(a.Repo, a.Snapshots, metrics)
	a.Leaderboard = leaderboard.NewService(a.Repo, a.Snapshots, a.Resolver,
		leaderboard.NewLeaderboardCache(a.Cache, cfg.LeaderboardTTL))

	a.GitHub = adapters.NewGitHubAdapter(cfg.GitHubToken,
		adapters.WithBaseURL(cfg.GitHubAPIURL),
		adapters.WithObserver(&apiObserver{metrics: metrics, logger: logger}),
		adapters.WithHealth(a.Health),
	)
	a.Analyzer = analysis.NewAnalyzer()

	delayMin, delayMax, backoff := cfg.CollectDelays()
	a.Collector = collector.New(a.GitHub, a.GitHub, a.Leaderboard, collector.Config{
		DelayMin: delayMin,
		DelayMax: delayMax,
		Backoff:  backoff,
	}, collector.WithObserver(metrics))
	a.Runs = collector.NewManager(a.Collector, collector.WithRunObserver(metrics))

	a.registerHealthChecks()
	return a, nil
}

func (a *App) registerHealthChecks() {
	a.Health.RegisterService(ServiceDatabase, a.Repo.Health)
	if a.Redis.IsEnabled() {
		a.Health.RegisterService(ServiceCache, a.Redis.HealthCheck)
	}
	// Upstream health comes from the adapter's request outcomes.
	a.Health.RegisterService(ServiceGitHub, nil)
}

// Start runs the background loops until ctx is done: dependency health
// checks, their mirror into metrics, and leaderboard cache refresh.
func (a *App) Start(ctx context.Context) {
	go a.Health.StartHealthChecks(ctx)
	go a.mirrorDependencies(ctx)

	lbCache := a.Leaderboard.Cache()
	go lbCache.WarmCache(ctx, a.Leaderboard)
	lbCache.AutoRefresh(ctx, a.Leaderboard, leaderboardRefresh)

	a.Logger.SystemLogger("background_started", "health checks, metrics mirror and cache refresh running")
}

func (a *App) mirrorDependencies(ctx context.Context) {
	ticker := time.NewTicker(dependencyMirrorTick)
	defer ticker.Stop()

	for {
		a.Metrics.ObserveDependencies(a.Health.GetAllServiceHealth(), resilience.GetCircuitBreakerStates())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LogCollection writes one progress line per star band of a finished run.
func (a *App) LogCollection(res collector.Result) {
	for level, st := range res.ByLevel {
		a.Logger.CollectionLogger(res.RunID.String(), string(level), st.Added, st.Errors, res.Duration)
	}
}

// Close stops running collections and releases connections.
func (a *App) Close() error {
	a.Runs.Stop()
	apperrors.SafeClose(a.GitHub, "github adapter")
	apperrors.SafeClose(a.Redis, "redis client")
	if m, ok := a.Cache.(*cache.Memory); ok {
		apperrors.SafeClose(m, "memory cache")
	}
	return a.DB.Close()
}

// apiObserver fans upstream calls out to metrics and the debug log.
type apiObserver struct {
	metrics *monitoring.Manager
	logger  *monitoring.Logger
}

func (o *apiObserver) ObserveExternalAPI(api, endpoint string, status int, duration time.Duration) {
	o.metrics.ObserveExternalAPI(api, endpoint, status, duration)
	o.logger.ExternalAPILogger(api, endpoint, status, duration, status >= 200 && status < 300)
}
