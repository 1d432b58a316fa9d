package distribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/cache"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"golang.org/x/sync/singleflight"
)

const snapshotKey = "distribution:snapshot"

// Source returns every stored impact-index value. Implementations paginate
// internally and never truncate.
type Source interface {
	ImpactValues(ctx context.Context) ([]int64, error)
}

// Observer is told about every rebuild.
type Observer interface {
	ObserveSnapshot(population int, available bool, duration time.Duration)
}

// Service serves cached snapshots. Concurrent rebuilds share a single scan.
type Service struct {
	source   Source
	cache    cache.Store
	ttl      time.Duration
	observer Observer
	now      func() time.Time
	group    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithObserver reports rebuilds, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a snapshot service. A nil store disables caching.
func NewService(source Source, store cache.Store, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		source: source,
		cache:  store,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type cachedSnapshot struct {
	Snapshot *Snapshot `json:"snapshot"`
}

// Snapshot returns the current distribution, or nil when the population is
// below MinSampleSize. Errors are returned only when the store scan fails.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil && s.ttl > 0 {
		var cached cachedSnapshot
		found, err := cache.GetJSON(ctx, s.cache, snapshotKey, &cached)
		if err != nil {
			slog.Warn("Snapshot cache read failed", "error", err)
		} else if found {
			return cached.Snapshot, nil
		}
	}

	v, err, shared := s.group.Do(snapshotKey, func() (interface{}, error) {
		return s.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Snapshot rebuild shared between callers")
	}
	return v.(*Snapshot), nil
}

func (s *Service) rebuild(ctx context.Context) (*Snapshot, error) {
	start := s.now()
	values, err := s.source.ImpactValues(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("distribution scan", err)
	}

	snap := Estimate(values)
	if snap != nil {
		snap.ComputedAt = s.now().UTC()
	}

	duration := s.now().Sub(start)
	if s.observer != nil {
		s.observer.ObserveSnapshot(len(values), snap != nil, duration)
	}
	slog.Info("Distribution snapshot rebuilt",
		"total_users", len(values),
		"available", snap != nil,
		"duration_ms", duration.Milliseconds())

	if s.cache != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.cache, snapshotKey, cachedSnapshot{Snapshot: snap}, s.ttl); err != nil {
			slog.Warn("Snapshot cache write failed", "error", err)
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next call rescans the store.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotKey); err != nil {
		slog.Warn("Snapshot cache invalidation failed", "error", err)
	}
}
