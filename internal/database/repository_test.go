package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Open(context.Background(), Options{
		Backend:     BackendSQLite,
		DataDir:     t.TempDir(),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func lang(s string) *string { return &s }

func entry(username string, impact int64) LeaderboardEntry {
	return LeaderboardEntry{
		Username:       username,
		AvatarURL:      "https://avatars.example/" + username,
		ImpactIndex:    impact,
		LastAnalyzedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRepository_UpsertIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	e := entry("alice", 500)
	e.Followers, e.PublicRepos, e.TotalStars, e.TotalForks = 10, 4, 100, 20
	e.DominantLanguage = lang("Go")

	require.NoError(t, repo.Upsert(ctx, e))
	require.NoError(t, repo.Upsert(ctx, e))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.ImpactIndex)
	assert.Equal(t, int64(100), got.TotalStars)
	require.NotNil(t, got.DominantLanguage)
	assert.Equal(t, "Go", *got.DominantLanguage)
	assert.WithinDuration(t, e.LastAnalyzedAt, got.LastAnalyzedAt, time.Second)
}

func TestRepository_UpsertOverwritesAllFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := entry("alice", 500)
	first.DominantLanguage = lang("Go")
	require.NoError(t, repo.Upsert(ctx, first))

	second := entry("alice", 90)
	second.TotalStars = 3
	second.LastAnalyzedAt = first.LastAnalyzedAt.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, second))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(90), got.ImpactIndex)
	assert.Equal(t, int64(3), got.TotalStars)
	assert.Nil(t, got.DominantLanguage)
	assert.WithinDuration(t, second.LastAnalyzedAt, got.LastAnalyzedAt, time.Second)
}

func TestRepository_UpsertValidation(t *testing.T) {
	repo := newTestRepository(t)

	tests := []struct {
		name  string
		entry LeaderboardEntry
	}{
		{name: "empty username", entry: entry("", 1)},
		{name: "negative impact", entry: entry("bob", -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Upsert(context.Background(), tt.entry)
			require.Error(t, err)
			assert.Equal(t, apperrors.CategoryValidation, apperrors.ToAppError(err).Category)
		})
	}
}

func TestRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetByUsername(ctx, "ghost")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.ImpactOf(ctx, "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepository_CountAbove(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i, impact := range []int64{10, 20, 20, 30, 40} {
		require.NoError(t, repo.Upsert(ctx, entry(fmt.Sprintf("u%d", i), impact)))
	}

	tests := []struct {
		impact int64
		above  int64
	}{
		{impact: 40, above: 0},
		{impact: 30, above: 1},
		{impact: 20, above: 2},
		{impact: 10, above: 4},
		{impact: 0, above: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("impact %d", tt.impact), func(t *testing.T) {
			got, err := repo.CountAbove(ctx, tt.impact)
			require.NoError(t, err)
			assert.Equal(t, tt.above, got)
		})
	}

	impact, err := repo.ImpactOf(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, int64(30), impact)
}

func TestRepository_ImpactValuesPaginates(t *testing.T) {
	repo := newTestRepository(t).WithPageSize(7)
	ctx := context.Background()

	var want int64
	for i := 1; i <= 50; i++ {
		require.NoError(t, repo.Upsert(ctx, entry(fmt.Sprintf("user-%03d", i), int64(i))))
		want += int64(i)
	}

	values, err := repo.ImpactValues(ctx)
	require.NoError(t, err)
	require.Len(t, values, 50)

	var sum int64
	for _, v := range values {
		sum += v
	}
	assert.Equal(t, want, sum)
}

func TestRepository_ImpactValuesEmpty(t *testing.T) {
	repo := newTestRepository(t)

	values, err := repo.ImpactValues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRepository_ForEach(t *testing.T) {
	repo := newTestRepository(t).WithPageSize(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Upsert(ctx, entry(fmt.Sprintf("dev%d", i), int64(i))))
	}

	var seen []string
	err := repo.ForEach(ctx, func(e LeaderboardEntry) error {
		seen = append(seen, e.Username)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 10)
	assert.Equal(t, "dev0", seen[0])
	assert.Equal(t, "dev9", seen[9])

	stop := fmt.Errorf("stop")
	calls := 0
	err = repo.ForEach(ctx, func(LeaderboardEntry) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func seedLeaderboard(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()

	rows := []struct {
		username  string
		impact    int64
		stars     int64
		followers int64
		forks     int64
		language  *string
	}{
		{"ada", 900, 200, 50, 10, lang("Go")},
		{"brian", 700, 300, 10, 40, lang("C")},
		{"carol", 700, 50, 90, 5, lang("Go")},
		{"dave", 100, 10, 5, 1, nil},
		{"erin", 50, 5, 200, 0, lang("Rust")},
	}
	for _, r := range rows {
		e := entry(r.username, r.impact)
		e.TotalStars, e.Followers, e.TotalForks, e.DominantLanguage = r.stars, r.followers, r.forks, r.language
		require.NoError(t, repo.Upsert(ctx, e))
	}
}

func usernames(entries []LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Username
	}
	return out
}

func TestRepository_TopN(t *testing.T) {
	repo := newTestRepository(t)
	seedLeaderboard(t, repo)

	tests := []struct {
		name  string
		query TopNQuery
		want  []string
	}{
		{
			name:  "default sort breaks ties by username",
			query: TopNQuery{Limit: 10},
			want:  []string{"ada", "brian", "carol", "dave", "erin"},
		},
		{
			name:  "limit",
			query: TopNQuery{Limit: 2},
			want:  []string{"ada", "brian"},
		},
		{
			name:  "zero limit returns one",
			query: TopNQuery{},
			want:  []string{"ada"},
		},
		{
			name:  "language filter",
			query: TopNQuery{Language: "Go", Limit: 10},
			want:  []string{"ada", "carol"},
		},
		{
			name:  "sort by stars",
			query: TopNQuery{SortBy: SortTotalStars, Limit: 3},
			want:  []string{"brian", "ada", "carol"},
		},
		{
			name:  "sort by followers",
			query: TopNQuery{SortBy: SortFollowers, Limit: 2},
			want:  []string{"erin", "carol"},
		},
		{
			name:  "sort by forks",
			query: TopNQuery{SortBy: SortTotalForks, Limit: 1},
			want:  []string{"brian"},
		},
		{
			name:  "minimum thresholds",
			query: TopNQuery{MinImpact: 100, MinStars: 20, MinFollowers: 20, Limit: 10},
			want:  []string{"ada", "carol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.TopN(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(got))
		})
	}
}

func TestRepository_TopNRejectsUnknownSortKey(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.TopN(context.Background(), TopNQuery{SortBy: "impact_index; DROP TABLE user_leaderboard", Limit: 5})

	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryValidation, apperrors.ToAppError(err).Category)
}

func TestRepository_Languages(t *testing.T) {
	repo := newTestRepository(t)
	seedLeaderboard(t, repo)

	langs, err := repo.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "Go", "Rust"}, langs)
}

func TestRepository_Health(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Health(context.Background()))
}
