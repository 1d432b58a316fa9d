// Package leaderboard is the gateway between the HTTP/CLI surfaces and the
// stored population: it builds entries from profiles, serves filtered
// top-N reads and exposes rank and distribution lookups.
package leaderboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// Query limits.
const (
	DefaultLimit     = 50
	MaxLimit         = 100
	tierOverfetch    = 4
	maxOverfetchRows = database.MaxTopN
)

// Store is the persistence the gateway writes to and reads from.
type Store interface {
	Upsert(ctx context.Context, e database.LeaderboardEntry) error
	GetByUsername(ctx context.Context, username string) (*database.LeaderboardEntry, error)
	TopN(ctx context.Context, q database.TopNQuery) ([]database.LeaderboardEntry, error)
	Languages(ctx context.Context) ([]string, error)
}

// Snapshots serves the cached population distribution.
type Snapshots interface {
	Snapshot(ctx context.Context) (*distribution.Snapshot, error)
	Invalidate(ctx context.Context)
}

// Ranker resolves a stored user's standing.
type Ranker interface {
	Resolve(ctx context.Context, username string) (ranking.Result, error)
}

// Filters narrows a leaderboard read. Zero values mean "no filter".
type Filters struct {
	Language     string `form:"language" json:"language,omitempty"`
	MinImpact    int64  `form:"min_impact" json:"min_impact,omitempty"`
	MinStars     int64  `form:"min_stars" json:"min_stars,omitempty"`
	MinFollowers int64  `form:"min_followers" json:"min_followers,omitempty"`
	Tier         string `form:"tier" json:"tier,omitempty"`
	SortBy       string `form:"sort_by" json:"sort_by,omitempty"`
	Limit        int    `form:"limit" json:"limit,omitempty"`
}

// normalize applies defaults and validates the enumerated fields.
func (f Filters) normalize() (Filters, database.SortKey, Tier, error) {
	sortBy, err := database.ParseSortKey(f.SortBy)
	if err != nil {
		return f, "", "", apperrors.NewValidationError("invalid sort_by", err.Error())
	}
	f.SortBy = string(sortBy)

	var tier Tier
	if f.Tier != "" {
		t, ok := ParseTier(f.Tier)
		if !ok {
			return f, "", "", apperrors.NewValidationError("invalid tier", f.Tier)
		}
		tier = t
		f.Tier = string(t)
	}

	switch {
	case f.Limit == 0:
		f.Limit = DefaultLimit
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	return f, sortBy, tier, nil
}

// Service handles leaderboard operations
type Service struct {
	store     Store
	snapshots Snapshots
	ranker    Ranker
	cache     *LeaderboardCache
	now       func() time.Time
}

// NewService creates a new leaderboard service. cache may be nil.
func NewService(store Store, snapshots Snapshots, ranker Ranker, cache *LeaderboardCache) *Service {
	return &Service{
		store:     store,
		snapshots: snapshots,
		ranker:    ranker,
		cache:     cache,
		now:       time.Now,
	}
}

// Cache exposes the read cache for warming.
func (s *Service) Cache() *LeaderboardCache {
	return s.cache
}

// AnalyzeAndStore derives the entry for a fetched profile and upserts it.
func (s *Service) AnalyzeAndStore(ctx context.Context, profile types.Profile) (*Entry, error) {
	if err := ValidateUsername(profile.User.Login); err != nil {
		return nil, err
	}

	e := BuildEntry(profile, s.now())
	if err := s.store.Upsert(ctx, e); err != nil {
		return nil, err
	}
	s.cache.InvalidateAll()
	s.snapshots.Invalidate(ctx)

	slog.Info("Leaderboard entry stored",
		"username", e.Username,
		"impact_index", e.ImpactIndex,
		"repos", len(profile.Repos))

	entry := withTier(e)
	return &entry, nil
}

// GetEntry returns one stored user.
func (s *Service) GetEntry(ctx context.Context, username string) (*Entry, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	e, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	entry := withTier(*e)
	return &entry, nil
}

// QueryTopN returns the best entries for the filters in descending order.
// A tier filter is applied after the read, so the read over-fetches.
func (s *Service) QueryTopN(ctx context.Context, filters Filters) ([]Entry, error) {
	f, sortBy, tier, err := filters.normalize()
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.GetTopN(ctx, f); ok {
		return cached, nil
	}

	fetch := f.Limit
	if tier != "" {
		fetch = f.Limit * tierOverfetch
		if fetch > maxOverfetchRows {
			fetch = maxOverfetchRows
		}
	}

	rows, err := s.store.TopN(ctx, database.TopNQuery{
		Language:     f.Language,
		MinImpact:    f.MinImpact,
		MinStars:     f.MinStars,
		MinFollowers: f.MinFollowers,
		SortBy:       sortBy,
		Limit:        fetch,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, f.Limit)
	for _, row := range rows {
		e := withTier(row)
		if tier != "" && e.Tier != tier {
			continue
		}
		entries = append(entries, e)
		if len(entries) == f.Limit {
			break
		}
	}

	s.cache.SetTopN(ctx, f, entries)
	return entries, nil
}

// AvailableLanguages lists the distinct dominant languages on the board.
func (s *Service) AvailableLanguages(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.GetLanguages(ctx); ok {
		return cached, nil
	}
	langs, err := s.store.Languages(ctx)
	if err != nil {
		return nil, err
	}
	if langs == nil {
		langs = []string{}
	}
	s.cache.SetLanguages(ctx, langs)
	return langs, nil
}

// GetDistribution returns the population snapshot, or an Unavailable error
// when the population is too small or the scan fails.
func (s *Service) GetDistribution(ctx context.Context) (*distribution.Snapshot, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailableError("distribution unavailable", err)
	}
	if snap == nil {
		return nil, apperrors.NewUnavailableError("not enough users for a distribution", apperrors.ErrInsufficientData)
	}
	return snap, nil
}

// GetRank resolves the standing of a stored user.
func (s *Service) GetRank(ctx context.Context, username string) (ranking.Result, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return s.ranker.Resolve(ctx, username)
}

// RefreshDistribution drops the cached snapshot, typically after a bulk load.
func (s *Service) RefreshDistribution(ctx context.Context) {
	s.snapshots.Invalidate(ctx)
	s.cache.InvalidateAll()
}
