// Package ranking resolves a stored user's standing, falling back from an
// exact count to snapshot interpolation to a cold-start power-law model.
package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
)

// Population thresholds.
const (
	ExactCountThreshold = 1000
	ObservedThreshold   = distribution.MinSampleSize
)

// Store is the read side of the leaderboard the resolver needs.
// ImpactOf returns an error matching apperrors.ErrNotFound for unknown users.
type Store interface {
	ImpactOf(ctx context.Context, username string) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountAbove(ctx context.Context, impact int64) (int64, error)
}

// SnapshotProvider returns the current distribution or nil when unavailable.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*distribution.Snapshot, error)
}

// Observer receives one call per resolved rank.
type Observer interface {
	ObserveRank(tier string, duration time.Duration)
}

// Resolver decides which tier applies for a user and computes the result.
type Resolver struct {
	store     Store
	snapshots SnapshotProvider
	observer  Observer
	now       func() time.Time
}

// NewResolver creates a resolver. observer may be nil.
func NewResolver(store Store, snapshots SnapshotProvider, observer Observer) *Resolver {
	return &Resolver{
		store:     store,
		snapshots: snapshots,
		observer:  observer,
		now:       time.Now,
	}
}

// Resolve returns the rank of a stored user. It fails with a NotFound error
// when the user has no entry, and with Unavailable when the entry itself
// cannot be read. Every other store failure degrades to a cruder tier.
func (r *Resolver) Resolve(ctx context.Context, username string) (Result, error) {
	start := r.now()

	impact, err := r.store.ImpactOf(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.NewUnavailableError("rank lookup failed", err)
	}

	result := r.ResolveImpact(ctx, impact)

	elapsed := r.now().Sub(start)
	if r.observer != nil {
		r.observer.ObserveRank(string(result.Tier()), elapsed)
	}
	s := result.Summary()
	slog.Debug("Rank resolved",
		"username", username,
		"impact_index", impact,
		"tier", s.Tier,
		"rank", s.Rank,
		"percentile", s.Percentile,
		"duration_ms", elapsed.Milliseconds())

	return result, nil
}

// ResolveImpact ranks an impact index against the stored population.
func (r *Resolver) ResolveImpact(ctx context.Context, impact int64) Result {
	total, err := r.store.Count(ctx)
	if err != nil {
		slog.Warn("Population count failed, using cold-start model", "error", err)
		return PowerLawColdStart{Global: EstimateGlobal(impact)}
	}

	if total >= ExactCountThreshold {
		if snap := r.snapshot(ctx); snap != nil {
			above, err := r.store.CountAbove(ctx, impact)
			if err == nil {
				return ExactCount{Observed{TotalUsers: total, AboveUsers: above}}
			}
			slog.Warn("Exact count failed, interpolating from snapshot", "error", err)

			// The snapshot may predate recent upserts; scale to the live total.
			p := snap.Interpolate(impact)
			return DistributionModel{
				TotalUsers: total,
				AboveUsers: p.AboveIn(total),
				Percentile: p.Percentile,
			}
		}
	}

	cold := PowerLawColdStart{Global: EstimateGlobal(impact)}
	if total < ObservedThreshold {
		return cold
	}
	above, err := r.store.CountAbove(ctx, impact)
	if err != nil {
		slog.Warn("Observed count failed, using cold-start model only", "error", err)
		return cold
	}
	cold.Observed = &Observed{TotalUsers: total, AboveUsers: above}
	return cold
}

func (r *Resolver) snapshot(ctx context.Context) *distribution.Snapshot {
	if r.snapshots == nil {
		return nil
	}
	snap, err := r.snapshots.Snapshot(ctx)
	if err != nil {
		slog.Warn("Distribution snapshot unavailable", "error", err)
		return nil
	}
	return snap
}
