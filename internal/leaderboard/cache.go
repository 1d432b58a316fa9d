package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/cache"
)

const languagesKey = "languages"

// LeaderboardCache caches top-N reads and the language list. Keys carry a
// generation so InvalidateAll never has to enumerate them.
type LeaderboardCache struct {
	store      cache.Store
	ttl        time.Duration
	generation atomic.Uint64
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(store cache.Store, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{store: store, ttl: ttl}
}

func (lc *LeaderboardCache) enabled() bool {
	return lc != nil && lc.store != nil && lc.ttl > 0
}

func (lc *LeaderboardCache) key(parts string) string {
	return fmt.Sprintf("leaderboard:%d:%s", lc.generation.Load(), parts)
}

func topKey(f Filters) string {
	return fmt.Sprintf("top:%s:%d:%d:%d:%s:%s:%d",
		f.Language, f.MinImpact, f.MinStars, f.MinFollowers, f.Tier, f.SortBy, f.Limit)
}

// GetTopN retrieves a cached top-N result
func (lc *LeaderboardCache) GetTopN(ctx context.Context, f Filters) ([]Entry, bool) {
	if !lc.enabled() {
		return nil, false
	}
	var entries []Entry
	found, err := cache.GetJSON(ctx, lc.store, lc.key(topKey(f)), &entries)
	if err != nil {
		slog.Warn("Leaderboard cache read failed", "error", err)
		return nil, false
	}
	if found {
		slog.Debug("Leaderboard cache hit", "sort_by", f.SortBy, "limit", f.Limit)
	}
	return entries, found
}

// SetTopN caches a top-N result
func (lc *LeaderboardCache) SetTopN(ctx context.Context, f Filters, entries []Entry) {
	if !lc.enabled() {
		return
	}
	if err := cache.SetJSON(ctx, lc.store, lc.key(topKey(f)), entries, lc.ttl); err != nil {
		slog.Warn("Leaderboard cache write failed", "error", err)
	}
}

// GetLanguages retrieves the cached language list
func (lc *LeaderboardCache) GetLanguages(ctx context.Context) ([]string, bool) {
	if !lc.enabled() {
		return nil, false
	}
	var langs []string
	found, err := cache.GetJSON(ctx, lc.store, lc.key(languagesKey), &langs)
	if err != nil {
		slog.Warn("Language cache read failed", "error", err)
		return nil, false
	}
	return langs, found
}

// SetLanguages caches the language list
func (lc *LeaderboardCache) SetLanguages(ctx context.Context, langs []string) {
	if !lc.enabled() {
		return
	}
	if err := cache.SetJSON(ctx, lc.store, lc.key(languagesKey), langs, lc.ttl); err != nil {
		slog.Warn("Language cache write failed", "error", err)
	}
}

// InvalidateAll retires every cached read at once.
func (lc *LeaderboardCache) InvalidateAll() {
	if lc == nil {
		return
	}
	gen := lc.generation.Add(1)
	slog.Debug("Leaderboard cache invalidated", "generation", gen)
}

// WarmCache pre-populates the cache with the default view for each sort key.
func (lc *LeaderboardCache) WarmCache(ctx context.Context, service *Service) {
	slog.Info("Starting leaderboard cache warming")

	for _, sortBy := range []string{"impact_index", "total_stars", "followers", "total_forks"} {
		if _, err := service.QueryTopN(ctx, Filters{SortBy: sortBy}); err != nil {
			slog.Error("Failed to warm leaderboard cache", "error", err, "sort_by", sortBy)
		}
	}
	if _, err := service.AvailableLanguages(ctx); err != nil {
		slog.Error("Failed to warm language cache", "error", err)
	}

	slog.Info("Leaderboard cache warming completed")
}

// AutoRefresh re-warms the cache every interval until ctx is done.
func (lc *LeaderboardCache) AutoRefresh(ctx context.Context, service *Service, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lc.InvalidateAll()
				lc.WarmCache(ctx, service)
			}
		}
	}()
}
