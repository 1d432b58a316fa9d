package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/analysis"
	"github.com/ZanzyTHEbar/aurameter/internal/cache"
	"github.com/ZanzyTHEbar/aurameter/internal/collector"
	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/ZanzyTHEbar/aurameter/internal/ratelimit"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/ZanzyTHEbar/aurameter/internal/security"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaderboard struct {
	mu       sync.Mutex
	ranks    map[string]ranking.Result
	snap     *distribution.Snapshot
	entries  []leaderboard.Entry
	langs    []string
	stored   []string
	filters  leaderboard.Filters
	queryErr error
}

func (f *fakeLeaderboard) GetRank(_ context.Context, username string) (ranking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ranks[username]
	if !ok {
		return nil, apperrors.NewNotFoundError("leaderboard entry", username)
	}
	return r, nil
}

func (f *fakeLeaderboard) GetDistribution(context.Context) (*distribution.Snapshot, error) {
	if f.snap == nil {
		return nil, apperrors.NewUnavailableError("not enough users for a distribution", apperrors.ErrInsufficientData)
	}
	return f.snap, nil
}

func (f *fakeLeaderboard) QueryTopN(_ context.Context, filters leaderboard.Filters) ([]leaderboard.Entry, error) {
	f.filters = filters
	return f.entries, f.queryErr
}

func (f *fakeLeaderboard) AvailableLanguages(context.Context) ([]string, error) {
	return f.langs, nil
}

func (f *fakeLeaderboard) AnalyzeAndStore(_ context.Context, p types.Profile) (*leaderboard.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, p.User.Login)
	if f.ranks == nil {
		f.ranks = make(map[string]ranking.Result)
	}
	f.ranks[p.User.Login] = ranking.ExactCount{Observed: ranking.Observed{TotalUsers: 1, AboveUsers: 0}}
	e := database.LeaderboardEntry{Username: p.User.Login, Followers: int64(p.User.Followers)}
	return &leaderboard.Entry{LeaderboardEntry: e, Tier: leaderboard.TierOf(e)}, nil
}

type fakeProfiles struct {
	profiles map[string]types.Profile
	err      error
}

func (f *fakeProfiles) FetchProfile(_ context.Context, username string) (types.Profile, error) {
	if f.err != nil {
		return types.Profile{}, f.err
	}
	p, ok := f.profiles[username]
	if !ok {
		return types.Profile{}, apperrors.NewNotFoundError("GitHub user", username)
	}
	return p, nil
}

type fakeRuns struct {
	runs    map[uuid.UUID]collector.Run
	started []int
	busy    bool
}

func (f *fakeRuns) Start(_ context.Context, target int) (collector.Run, error) {
	if f.busy {
		return collector.Run{}, apperrors.NewConflictError("a collection run is already in progress")
	}
	run := collector.Run{ID: uuid.New(), Status: collector.StatusRunning, TargetCount: target}
	f.runs[run.ID] = run
	f.started = append(f.started, target)
	return run, nil
}

func (f *fakeRuns) Get(id uuid.UUID) (collector.Run, bool) {
	run, ok := f.runs[id]
	return run, ok
}

type fakeHealth struct {
	level resilience.DegradationLevel
}

func (f fakeHealth) GetAllServiceHealth() []resilience.ServiceHealth {
	return []resilience.ServiceHealth{{ServiceName: "database", Level: f.level}}
}

func (f fakeHealth) Overall() resilience.DegradationLevel { return f.level }

type fixture struct {
	board    *fakeLeaderboard
	profiles *fakeProfiles
	runs     *fakeRuns
	router   *gin.Engine
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		board: &fakeLeaderboard{
			ranks: map[string]ranking.Result{
				"octocat": ranking.ExactCount{Observed: ranking.Observed{TotalUsers: 2000, AboveUsers: 9}},
			},
			langs: []string{"Go", "Rust"},
		},
		profiles: &fakeProfiles{profiles: map[string]types.Profile{
			"mona": {User: types.GitHubUser{Login: "mona", Followers: 42, PublicRepos: 3}},
		}},
		runs: &fakeRuns{runs: make(map[uuid.UUID]collector.Run)},
	}

	limiter := ratelimit.NewRateLimiter(&cache.RedisClient{}, ratelimit.DefaultConfig(), nil)
	t.Cleanup(limiter.Close)

	opts := Options{
		Metrics:  monitoring.NewManager(monitoring.WithRegistry(prometheus.NewRegistry())),
		Logger:   monitoring.NewLoggerTo(io.Discard, "error"),
		Limiter:  limiter,
		Security: security.NewSecurityMiddleware(security.DefaultSecurityConfig()),
	}
	for _, m := range mutate {
		m(&opts)
	}

	h := NewHandler(Deps{
		Leaderboard: f.board,
		Profiles:    f.profiles,
		Analyzer:    analysis.NewAnalyzer(analysis.WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })),
		Runs:        f.runs,
		Health:      fakeHealth{},
		Version:     "test",
	})
	f.router = NewRouter(context.Background(), h, opts)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		level      resilience.DegradationLevel
		wantCode   int
		wantStatus string
	}{
		{name: "normal", level: resilience.LevelNormal, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "critical", level: resilience.LevelCritical, wantCode: http.StatusOK, wantStatus: "degraded"},
		{name: "emergency", level: resilience.LevelEmergency, wantCode: http.StatusServiceUnavailable, wantStatus: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			h := NewHandler(Deps{Leaderboard: &fakeLeaderboard{}, Health: fakeHealth{level: tt.level}})
			r := NewRouter(context.Background(), h, Options{})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "dev", body["version"])
		})
	}
}

func TestGetRank(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		username string
		wantCode int
		wantCat  string
	}{
		{name: "stored user", username: "octocat", wantCode: http.StatusOK},
		{name: "unknown user", username: "ghost", wantCode: http.StatusNotFound, wantCat: "not_found"},
		{name: "malformed login", username: "bad--name", wantCode: http.StatusBadRequest, wantCat: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/api/v1/rank/"+tt.username, "")
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			body := decode(t, rec)
			if tt.wantCat != "" {
				assert.Equal(t, tt.wantCat, body["category"])
				assert.Equal(t, false, body["success"])
				return
			}
			assert.Equal(t, "octocat", body["username"])
			assert.Equal(t, "exact_count", body["tier"])
			assert.Equal(t, float64(10), body["rank"])
			assert.Equal(t, float64(9), body["above_users"])
			assert.InDelta(t, 99.55, body["percentile"], 0.001)
			assert.Equal(t, false, body["is_estimated"])
		})
	}
}

func TestGetDistribution(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/distribution", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.board.snap = &distribution.Snapshot{TotalUsers: 150, Median: 420}
	rec = f.do(http.MethodGet, "/api/v1/distribution", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(150), body["total_users"])
	assert.Equal(t, float64(420), body["median"])
}

func TestGetLeaderboard(t *testing.T) {
	f := newFixture(t)
	f.board.entries = []leaderboard.Entry{{LeaderboardEntry: database.LeaderboardEntry{Username: "octocat", ImpactIndex: 9000}, Tier: leaderboard.TierGold}}

	rec := f.do(http.MethodGet, "/api/v1/leaderboard?language=Go&min_stars=10&tier=gold&sort_by=total_stars&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, leaderboard.Filters{Language: "Go", MinStars: 10, Tier: "gold", SortBy: "total_stars", Limit: 5}, f.board.filters)

	rec = f.do(http.MethodGet, "/api/v1/leaderboard?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.board.entries = nil
	rec = f.do(http.MethodGet, "/api/v1/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[],"count":0}`, rec.Body.String())
}

func TestGetLanguages(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/leaderboard/languages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"languages":["Go","Rust"]}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	t.Run("stores and ranks", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/analyze/mona", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		assert.Equal(t, []string{"mona"}, f.board.stored)
		assert.Equal(t, "mona", body["entry"].(map[string]interface{})["username"])
		assert.Equal(t, float64(1), body["rank"].(map[string]interface{})["rank"])
		assert.Equal(t, "mona", body["report"].(map[string]interface{})["username"])
	})

	t.Run("unknown GitHub user", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/analyze/nobody", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, f.board.stored)
	})

	t.Run("upstream rate limit", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.err = apperrors.NewRateLimitError("github", 30*time.Second)

		rec := f.do(http.MethodPost, "/api/v1/analyze/mona", "")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})

	t.Run("analyze budget", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < ratelimit.DefaultConfig().AnalyzeLimitPerMin; i++ {
			require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/analyze/mona", "").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/api/v1/analyze/mona", "").Code)
	})
}

func TestCollection(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/collect", `{"target_count":250}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	id := body["id"].(string)
	assert.Equal(t, "/api/v1/collect/"+id, rec.Header().Get("Location"))
	assert.Equal(t, []int{250}, f.runs.started)

	rec = f.do(http.MethodGet, "/api/v1/collect/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode(t, rec)["status"])

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		busy     bool
		wantCode int
	}{
		{name: "missing target", method: http.MethodPost, path: "/api/v1/collect", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "target too large", method: http.MethodPost, path: "/api/v1/collect", body: `{"target_count":50000}`, wantCode: http.StatusBadRequest},
		{name: "run in progress", method: http.MethodPost, path: "/api/v1/collect", body: `{"target_count":10}`, busy: true, wantCode: http.StatusConflict},
		{name: "malformed id", method: http.MethodGet, path: "/api/v1/collect/not-a-uuid", wantCode: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, path: "/api/v1/collect/" + uuid.NewString(), wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.runs.busy = tt.busy
			rec := f.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestCollection_RequiresJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collect", strings.NewReader("target_count=5"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestIPRateLimit(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		cfg := ratelimit.DefaultConfig()
		cfg.IPLimitPerMin = 2
		o.Limiter = ratelimit.NewRateLimiter(&cache.RedisClient{}, cfg, o.Metrics)
		t.Cleanup(o.Limiter.Close)
	})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/leaderboard/languages", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/leaderboard/languages", "").Code)
	rec := f.do(http.MethodGet, "/api/v1/leaderboard/languages", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// /health is outside the API budget.
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
}

func TestOperationalRoutes(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.EnableProfiling = true })

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{path: "/metrics", wantCode: http.StatusOK, contains: "aurameter_http_requests_total"},
		{path: "/swagger/index.html", wantCode: http.StatusOK},
		{path: "/debug/pprof/cmdline", wantCode: http.StatusOK},
		{path: "/nope", wantCode: http.StatusNotFound, contains: `"category":"not_found"`},
	}

	f.do(http.MethodGet, "/health", "")
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
			assert.NotEmpty(t, rec.Header().Get(monitoring.RequestIDHeader))
		})
	}
}
