package app

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/cache"
	"github.com/ZanzyTHEbar/aurameter/internal/collector"
	"github.com/ZanzyTHEbar/aurameter/internal/config"
	"github.com/ZanzyTHEbar/aurameter/internal/database"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.New()
	cfg.DBBackend = string(database.BackendSQLite)
	cfg.DataDir = t.TempDir()
	cfg.LogLevel = "error"

	a, err := New(context.Background(), cfg, Options{
		LogOutput:   io.Discard,
		AutoMigrate: true,
		Metrics:     monitoring.NewManager(monitoring.WithRegistry(prometheus.NewRegistry())),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_WiresServices(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	assert.False(t, a.Redis.IsEnabled())
	_, isMemory := a.Cache.(*cache.Memory)
	assert.True(t, isMemory, "no redis address means an in-memory cache")

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, a.Repo.Upsert(ctx, database.LeaderboardEntry{
			Username:       name,
			ImpactIndex:    int64(100 * (i + 1)),
			LastAnalyzedAt: now,
		}))
	}

	res, err := a.Leaderboard.GetRank(ctx, "bob")
	require.NoError(t, err)
	s := res.Summary()
	assert.Equal(t, ranking.TierPowerLaw, s.Tier, "three users are too few to rank against")
	assert.True(t, s.IsEstimated)
	assert.False(t, s.DistributionBased)
	assert.Equal(t, ranking.EstimatedActiveUsers, s.TotalUsers)
	assert.GreaterOrEqual(t, s.Rank, int64(1))

	_, err = a.Leaderboard.GetRank(ctx, "nobody")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = a.Leaderboard.GetDistribution(ctx)
	assert.Error(t, err, "three users are too few for a distribution")
}

func TestAnalyzeAndStore_DistributionAppearsAtThreshold(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i < 100; i++ {
		require.NoError(t, a.Repo.Upsert(ctx, database.LeaderboardEntry{
			Username:       fmt.Sprintf("user%03d", i),
			ImpactIndex:    int64(i),
			LastAnalyzedAt: now,
		}))
	}

	_, err := a.Leaderboard.GetDistribution(ctx)
	require.Error(t, err, "99 users are one short")

	_, err = a.Leaderboard.AnalyzeAndStore(ctx, types.Profile{
		User: types.GitHubUser{Login: "octocat", Followers: 100},
	})
	require.NoError(t, err)

	snap, err := a.Leaderboard.GetDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.TotalUsers)

	res, err := a.Leaderboard.GetRank(ctx, "octocat")
	require.NoError(t, err)
	s := res.Summary()
	assert.Equal(t, ranking.TierPowerLaw, s.Tier)
	assert.Equal(t, int64(1), s.Rank, "observed rank is shown next to the global estimate")
	assert.Equal(t, int64(100), s.TotalUsers)
	assert.NotNil(t, s.EstimatedGlobalRank)
}

func TestNew_RegistersDependencies(t *testing.T) {
	a := newTestApp(t)
	a.Health.CheckNow(context.Background())

	names := map[string]resilience.DegradationLevel{}
	for _, h := range a.Health.GetAllServiceHealth() {
		names[h.ServiceName] = h.Level
	}
	assert.Contains(t, names, ServiceDatabase)
	assert.Contains(t, names, ServiceGitHub)
	assert.NotContains(t, names, ServiceCache)
	assert.Equal(t, resilience.LevelNormal, names[ServiceDatabase])
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := config.New()
	cfg.DBBackend = "postgres"
	cfg.DBDSN = ""

	_, err := New(context.Background(), cfg, Options{LogOutput: io.Discard})
	require.Error(t, err)
	assert.True(t, apperrors.IsStoreUnavailable(err))
}

func TestLogCollection(t *testing.T) {
	a := newTestApp(t)
	var logs captureWriter
	a.Logger = monitoring.NewLoggerTo(&logs, "info")

	a.LogCollection(collector.Result{
		RunID:    uuid.New(),
		Duration: time.Second,
		ByLevel: map[collector.Level]*collector.LevelStats{
			collector.LevelElite: {Added: 3, Errors: 1},
			collector.LevelHigh:  {Added: 2},
		},
	})
	assert.Equal(t, 2, logs.lines)
}

type captureWriter struct{ lines int }

func (w *captureWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			w.lines++
		}
	}
	return len(p), nil
}
