// Package collector samples GitHub users across star bands and loads them
// into the leaderboard so the population distribution has real data.
package collector

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/adapters"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	searchPerPage      = 100
	fallbackSearchPage = 10
	maxBackoff         = 15 * time.Minute
)

// Searcher runs repository searches.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string, page, perPage int) (adapters.SearchResult, error)
}

// ProfileFetcher loads a full profile for one user.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (types.Profile, error)
}

// Sink stores analyzed profiles and serves the refreshed distribution.
type Sink interface {
	AnalyzeAndStore(ctx context.Context, profile types.Profile) (*leaderboard.Entry, error)
	RefreshDistribution(ctx context.Context)
	GetDistribution(ctx context.Context) (*distribution.Snapshot, error)
}

// Observer is told the outcome of every candidate.
type Observer interface {
	ObserveCollected(level string, err error)
}

// Config controls pacing.
type Config struct {
	DelayMin time.Duration
	DelayMax time.Duration
	Backoff  time.Duration
}

// DefaultConfig keeps well under the authenticated GitHub quota.
func DefaultConfig() Config {
	return Config{
		DelayMin: 100 * time.Millisecond,
		DelayMax: 150 * time.Millisecond,
		Backoff:  60 * time.Second,
	}
}

// LevelStats counts outcomes for one band.
type LevelStats struct {
	Discovered int `json:"discovered"`
	Added      int `json:"added"`
	Errors     int `json:"errors"`
}

// Result summarizes a run.
type Result struct {
	RunID        uuid.UUID              `json:"run_id"`
	TargetCount  int                    `json:"target_count"`
	Added        int                    `json:"added"`
	Errors       int                    `json:"errors"`
	ByLevel      map[Level]*LevelStats  `json:"by_level"`
	Cancelled    bool                   `json:"cancelled"`
	Duration     time.Duration          `json:"duration_ns"`
	Distribution *distribution.Snapshot `json:"distribution,omitempty"`
}

// Collector walks the star bands and stores every owner it finds.
type Collector struct {
	search     Searcher
	profiles   ProfileFetcher
	sink       Sink
	observer   Observer
	cfg        Config
	strategies []Strategy
	languages  []string

	limiter *rate.Limiter
	rngMu   sync.Mutex
	rng     *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithObserver reports per-candidate outcomes, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(c *Collector) { c.observer = o }
}

// WithStrategies replaces the star bands.
func WithStrategies(s []Strategy) Option {
	return func(c *Collector) { c.strategies = s }
}

// WithLanguages replaces the language spread.
func WithLanguages(langs []string) Option {
	return func(c *Collector) { c.languages = langs }
}

// New creates a collector. search and profiles are usually the same GitHub adapter.
func New(search Searcher, profiles ProfileFetcher, sink Sink, cfg Config, opts ...Option) *Collector {
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	c := &Collector{
		search:     search,
		profiles:   profiles,
		sink:       sink,
		cfg:        cfg,
		strategies: DefaultStrategies,
		languages:  DefaultLanguages,
		limiter:    rate.NewLimiter(rate.Every(cfg.DelayMin), 1),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:      sleepCtx,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pace waits for the next slot. Each slot is a fresh interval drawn from
// [DelayMin, DelayMax].
func (c *Collector) pace(ctx context.Context) error {
	d := c.cfg.DelayMin
	if spread := c.cfg.DelayMax - c.cfg.DelayMin; spread > 0 {
		c.rngMu.Lock()
		d += time.Duration(c.rng.Int63n(int64(spread)))
		c.rngMu.Unlock()
	}
	c.limiter.SetLimit(rate.Every(d))
	return c.limiter.Wait(ctx)
}

// Run collects until targetCount users are stored, every band is exhausted
// or ctx is done. Cancellation is reported in the result, not as an error.
func (c *Collector) Run(ctx context.Context, targetCount int) (Result, error) {
	return c.run(ctx, uuid.New(), targetCount, nil)
}

// ProgressFunc receives the running totals after every candidate.
type ProgressFunc func(added, errors int)

func (c *Collector) run(ctx context.Context, id uuid.UUID, targetCount int, progress ProgressFunc) (Result, error) {
	if targetCount < 1 {
		return Result{}, apperrors.NewValidationError("target count must be at least 1")
	}

	start := c.now()
	res := Result{
		RunID:       id,
		TargetCount: targetCount,
		ByLevel:     make(map[Level]*LevelStats, len(c.strategies)),
	}
	log := slog.With("run_id", id.String())
	log.Info("Collection started", "target_count", targetCount, "levels", len(c.strategies))

	seen := make(map[string]struct{})
	for _, s := range c.strategies {
		if res.Added >= targetCount {
			break
		}
		stats := &LevelStats{}
		res.ByLevel[s.Level] = stats

		want := s.Limit
		if remaining := targetCount - res.Added; remaining < want {
			want = remaining
		}

		owners, err := c.discover(ctx, s, want, seen)
		stats.Discovered = len(owners)
		if err != nil {
			res.Cancelled = true
			break
		}

		if err := c.load(ctx, s.Level, owners, targetCount, &res, stats, progress); err != nil {
			res.Cancelled = true
			break
		}

		log.Info("Collection level finished",
			"level", s.Level,
			"discovered", stats.Discovered,
			"added", stats.Added,
			"errors", stats.Errors)
	}

	// The snapshot is refreshed even for a cancelled run: whatever was
	// stored is part of the population now.
	refreshCtx := context.WithoutCancel(ctx)
	c.sink.RefreshDistribution(refreshCtx)
	if snap, err := c.sink.GetDistribution(refreshCtx); err == nil {
		res.Distribution = snap
	}

	res.Duration = c.now().Sub(start)
	log.Info("Collection finished",
		"added", res.Added,
		"errors", res.Errors,
		"cancelled", res.Cancelled,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// load fetches, analyzes and stores each owner. It returns only ctx errors.
func (c *Collector) load(ctx context.Context, level Level, owners []string, target int, res *Result, stats *LevelStats, progress ProgressFunc) error {
	for _, username := range owners {
		if res.Added >= target {
			return nil
		}
		if err := c.pace(ctx); err != nil {
			return err
		}

		err := c.loadOne(ctx, username)
		if c.observer != nil {
			c.observer.ObserveCollected(string(level), err)
		}
		if err == nil {
			stats.Added++
			res.Added++
			if progress != nil {
				progress(res.Added, res.Errors)
			}
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		stats.Errors++
		res.Errors++
		if progress != nil {
			progress(res.Added, res.Errors)
		}
		slog.Warn("Failed to collect user", "username", username, "level", level, "error", err)

		if apperrors.IsRateLimited(err) {
			wait := c.backoffFor(err)
			slog.Warn("Rate limit reached, backing off", "backoff", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return nil
}

// backoffFor waits at least the configured backoff, longer when the provider
// reports a later reset, capped at maxBackoff.
func (c *Collector) backoffFor(err error) time.Duration {
	wait := c.cfg.Backoff
	if hint := apperrors.GetRetryDelay(err, 1); hint > wait {
		wait = min(hint, maxBackoff)
	}
	return wait
}

func (c *Collector) loadOne(ctx context.Context, username string) error {
	profile, err := c.profiles.FetchProfile(ctx, username)
	if err != nil {
		return err
	}
	_, err = c.sink.AnalyzeAndStore(ctx, profile)
	return err
}

// discover searches the band language by language, then without a language
// filter if the band is still short. Only individual users are kept.
func (c *Collector) discover(ctx context.Context, s Strategy, want int, seen map[string]struct{}) ([]string, error) {
	owners := make([]string, 0, want)
	add := func(items []types.Repo) {
		for _, repo := range items {
			if len(owners) >= want {
				return
			}
			login := repo.Owner.Login
			if login == "" || repo.Owner.Type != "User" {
				continue
			}
			if _, dup := seen[login]; dup {
				continue
			}
			seen[login] = struct{}{}
			owners = append(owners, login)
		}
	}

	// searchPages stops at the last page or the first failed search.
	searchPages := func(query string, pages int) error {
		for page := 1; page <= pages && len(owners) < want; page++ {
			if err := c.pace(ctx); err != nil {
				return err
			}
			result, err := c.search.SearchRepositories(ctx, query, page, searchPerPage)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Warn("Repository search failed", "query", query, "page", page, "error", err)
				if apperrors.IsRateLimited(err) {
					if err := c.sleep(ctx, c.backoffFor(err)); err != nil {
						return err
					}
				}
				return nil
			}
			add(result.Items)
			if len(result.Items) < searchPerPage {
				return nil
			}
		}
		return nil
	}

	pages := s.pagesPerLanguage(len(c.languages))
	for _, lang := range c.languages {
		if len(owners) >= want {
			break
		}
		if err := searchPages(s.Query(lang), pages); err != nil {
			return owners, err
		}
	}

	if len(owners) < want {
		if err := searchPages(s.Query(""), fallbackSearchPage); err != nil {
			return owners, err
		}
	}
	return owners, nil
}
