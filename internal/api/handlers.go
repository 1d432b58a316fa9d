package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/analysis"
	"github.com/ZanzyTHEbar/aurameter/internal/collector"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Leaderboard is the gateway the handlers read from and write to.
type Leaderboard interface {
	GetRank(ctx context.Context, username string) (ranking.Result, error)
	GetDistribution(ctx context.Context) (*distribution.Snapshot, error)
	QueryTopN(ctx context.Context, filters leaderboard.Filters) ([]leaderboard.Entry, error)
	AvailableLanguages(ctx context.Context) ([]string, error)
	AnalyzeAndStore(ctx context.Context, profile types.Profile) (*leaderboard.Entry, error)
}

// ProfileFetcher loads a GitHub profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (types.Profile, error)
}

// ReportBuilder produces the full analysis of a profile.
type ReportBuilder interface {
	Analyze(p types.Profile) analysis.Report
}

// Runs starts and tracks background collections.
type Runs interface {
	Start(parent context.Context, targetCount int) (collector.Run, error)
	Get(id uuid.UUID) (collector.Run, bool)
}

// HealthReporter exposes dependency health.
type HealthReporter interface {
	GetAllServiceHealth() []resilience.ServiceHealth
	Overall() resilience.DegradationLevel
}

// Deps are the services behind the handlers.
type Deps struct {
	Leaderboard Leaderboard
	Profiles    ProfileFetcher
	Analyzer    ReportBuilder
	Runs        Runs
	Health      HealthReporter
	Version     string
}

// Handler serves the /api/v1 routes and /health.
type Handler struct {
	deps    Deps
	logger  *monitoring.Logger
	baseCtx context.Context
	now     func() time.Time
}

// NewHandler creates the handlers. Nil Profiles, Runs or Health disable the
// routes that need them with 503.
func NewHandler(deps Deps) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{
		deps:    deps,
		logger:  monitoring.NewLoggerTo(io.Discard, "error"),
		baseCtx: context.Background(),
		now:     time.Now,
	}
}

// RankResponse is a user's standing.
type RankResponse struct {
	Username string `json:"username"`
	ranking.Summary
}

// LeaderboardResponse is a filtered top-N read.
type LeaderboardResponse struct {
	Entries []leaderboard.Entry `json:"entries"`
	Count   int                 `json:"count"`
}

// LanguagesResponse lists the languages present on the board.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// AnalyzeResponse is the outcome of analyzing and storing one user.
type AnalyzeResponse struct {
	Entry  *leaderboard.Entry `json:"entry"`
	Rank   ranking.Summary    `json:"rank"`
	Report analysis.Report    `json:"report"`
}

// HealthResponse reports dependency state.
type HealthResponse struct {
	Status          string                                    `json:"status"`
	Timestamp       string                                    `json:"timestamp"`
	Version         string                                    `json:"version"`
	Services        []resilience.ServiceHealth                `json:"services"`
	CircuitBreakers map[string]resilience.CircuitBreakerState `json:"circuit_breakers"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Category string `json:"category"`
}

// Health godoc
// @Summary      Service health
// @Description  Dependency degradation levels and circuit breaker states
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:          "ok",
		Timestamp:       h.now().UTC().Format(time.RFC3339),
		Version:         h.deps.Version,
		Services:        []resilience.ServiceHealth{},
		CircuitBreakers: resilience.GetCircuitBreakerStates(),
	}

	status := http.StatusOK
	if h.deps.Health != nil {
		resp.Services = h.deps.Health.GetAllServiceHealth()
		switch h.deps.Health.Overall() {
		case resilience.LevelNormal:
		case resilience.LevelEmergency:
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		default:
			resp.Status = "degraded"
		}
	}

	c.JSON(status, resp)
}

// GetRank godoc
// @Summary      Rank a stored user
// @Description  Exact count, distribution model or power-law estimate depending on population size
// @Tags         rank
// @Produce      json
// @Param        username  path      string  true  "GitHub login"
// @Success      200       {object}  RankResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      503       {object}  ErrorResponse
// @Router       /api/v1/rank/{username} [get]
func (h *Handler) GetRank(c *gin.Context) {
	username := c.Param("username")
	start := h.now()

	result, err := h.deps.Leaderboard.GetRank(c.Request.Context(), username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	summary := result.Summary()
	h.logger.RankLogger(username, string(summary.Tier), summary.Rank, summary.Percentile, time.Since(start))
	c.JSON(http.StatusOK, RankResponse{Username: username, Summary: summary})
}

// GetDistribution godoc
// @Summary      Population distribution
// @Tags         rank
// @Produce      json
// @Success      200  {object}  distribution.Snapshot
// @Failure      503  {object}  ErrorResponse
// @Router       /api/v1/distribution [get]
func (h *Handler) GetDistribution(c *gin.Context) {
	snap, err := h.deps.Leaderboard.GetDistribution(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetLeaderboard godoc
// @Summary      Top users
// @Tags         leaderboard
// @Produce      json
// @Param        language       query     string  false  "Dominant language"
// @Param        min_impact     query     int     false  "Minimum impact index"
// @Param        min_stars      query     int     false  "Minimum total stars"
// @Param        min_followers  query     int     false  "Minimum followers"
// @Param        tier           query     string  false  "Platinum, Gold, Silver, Bronze or Iron"
// @Param        sort_by        query     string  false  "impact_index, total_stars, followers or total_forks"
// @Param        limit          query     int     false  "1..100, default 50"
// @Success      200            {object}  LeaderboardResponse
// @Failure      400            {object}  ErrorResponse
// @Router       /api/v1/leaderboard [get]
func (h *Handler) GetLeaderboard(c *gin.Context) {
	var filters leaderboard.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid leaderboard filters", err.Error()))
		return
	}

	entries, err := h.deps.Leaderboard.QueryTopN(c.Request.Context(), filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	c.JSON(http.StatusOK, LeaderboardResponse{Entries: entries, Count: len(entries)})
}

// GetLanguages godoc
// @Summary      Languages on the board
// @Tags         leaderboard
// @Produce      json
// @Success      200  {object}  LanguagesResponse
// @Router       /api/v1/leaderboard/languages [get]
func (h *Handler) GetLanguages(c *gin.Context) {
	langs, err := h.deps.Leaderboard.AvailableLanguages(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, LanguagesResponse{Languages: langs})
}

// Analyze godoc
// @Summary      Analyze a GitHub user
// @Description  Fetches the profile, stores the leaderboard entry and returns the rank and full report
// @Tags         analyze
// @Produce      json
// @Param        username  path      string  true  "GitHub login"
// @Success      200       {object}  AnalyzeResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      429       {object}  ErrorResponse
// @Failure      503       {object}  ErrorResponse
// @Router       /api/v1/analyze/{username} [post]
func (h *Handler) Analyze(c *gin.Context) {
	if h.deps.Profiles == nil || h.deps.Analyzer == nil {
		_ = c.Error(apperrors.NewUnavailableError("profile analysis is not configured", nil))
		return
	}

	ctx := c.Request.Context()
	username := c.Param("username")

	profile, err := h.deps.Profiles.FetchProfile(ctx, username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	entry, err := h.deps.Leaderboard.AnalyzeAndStore(ctx, profile)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.deps.Leaderboard.GetRank(ctx, entry.Username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Entry:  entry,
		Rank:   result.Summary(),
		Report: h.deps.Analyzer.Analyze(profile),
	})
}

// StartCollection godoc
// @Summary      Start a population collection run
// @Description  Runs in the background. Only one run may be active.
// @Tags         collect
// @Accept       json
// @Produce      json
// @Param        request  body      types.CollectRequest  true  "Number of users to add"
// @Success      202      {object}  collector.Run
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /api/v1/collect [post]
func (h *Handler) StartCollection(c *gin.Context) {
	if h.deps.Runs == nil {
		_ = c.Error(apperrors.NewUnavailableError("collection is not configured", nil))
		return
	}

	var req types.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid collect request", err.Error()))
		return
	}

	run, err := h.deps.Runs.Start(h.baseCtx, req.TargetCount)
	if err != nil {
		_ = c.Error(err)
		return
	}

	monitoring.LoggerFromContext(c.Request.Context()).Info("Collection run accepted",
		"run_id", run.ID.String(), "target", req.TargetCount)
	c.Header("Location", "/api/v1/collect/"+run.ID.String())
	c.JSON(http.StatusAccepted, run)
}

// GetCollection godoc
// @Summary      Collection run status
// @Tags         collect
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  collector.Run
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/collect/{id} [get]
func (h *Handler) GetCollection(c *gin.Context) {
	if h.deps.Runs == nil {
		_ = c.Error(apperrors.NewUnavailableError("collection is not configured", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid run id", c.Param("id")))
		return
	}

	run, ok := h.deps.Runs.Get(id)
	if !ok {
		_ = c.Error(apperrors.NewNotFoundError("collection run", id.String()))
		return
	}
	c.JSON(http.StatusOK, run)
}
