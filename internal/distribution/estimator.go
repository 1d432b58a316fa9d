// Package distribution summarizes the stored impact-index population into
// order statistics and percentile cut points.
package distribution

import (
	"math"
	"sort"
	"time"
)

// MinSampleSize is the smallest population for which cut points are trusted.
const MinSampleSize = 100

// Percentiles holds "top X%" cut values: P99 is the score at or above which
// the best 1% of the population sits.
type Percentiles struct {
	P99 int64 `json:"p99"`
	P95 int64 `json:"p95"`
	P90 int64 `json:"p90"`
	P75 int64 `json:"p75"`
	P50 int64 `json:"p50"`
	P25 int64 `json:"p25"`
}

// Snapshot is a point-in-time summary of all known impact-index values.
type Snapshot struct {
	TotalUsers  int         `json:"total_users"`
	Percentiles Percentiles `json:"percentiles"`
	Mean        float64     `json:"mean"`
	Median      int64       `json:"median"`
	StdDev      float64     `json:"std_dev"`
	Min         int64       `json:"min"`
	Max         int64       `json:"max"`
	ComputedAt  time.Time   `json:"computed_at"`
}

// Estimate summarizes values. It returns nil when fewer than MinSampleSize
// values are given. The input slice is not modified.
func Estimate(values []int64) *Snapshot {
	n := len(values)
	if n < MinSampleSize {
		return nil
	}

	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range sorted {
		d := float64(v) - mean
		ss += d * d
	}

	// Median is the element at floor(n/2) of the descending order, which is
	// the lower-middle value for even n.
	median := sorted[n/2]

	cut := func(k int) int64 {
		idx := n * (100 - k) / 100
		if idx < 0 || idx >= n {
			return 0
		}
		return sorted[idx]
	}

	return &Snapshot{
		TotalUsers: n,
		Percentiles: Percentiles{
			P99: cut(99),
			P95: cut(95),
			P90: cut(90),
			P75: cut(75),
			P50: median,
			P25: cut(25),
		},
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(ss / float64(n)),
		Min:    sorted[n-1],
		Max:    sorted[0],
	}
}

// Placement is a rank estimate read off a snapshot.
type Placement struct {
	Rank       int64
	Percentile float64 // rounded to two decimals for display
	AboveUsers int64

	clamped float64
}

// AboveIn scales the placement to a population of total users. It uses the
// unrounded percentile, so large populations do not drift.
func (p Placement) AboveIn(total int64) int64 {
	return int64(math.Round(float64(total) * (1 - p.clamped/100)))
}

// Interpolate places impact between the bracketing cut points of the snapshot
// with piecewise-linear interpolation. Below the median the percentile is
// proportional to impact/P50. The result is clamped to [0.01, 99.99].
func (s *Snapshot) Interpolate(impact int64) Placement {
	p := s.Percentiles
	x := float64(impact)

	var pct float64
	switch {
	case impact >= p.P99:
		pct = 99 + span(x, p.P99, s.Max)*1
	case impact >= p.P95:
		pct = 95 + span(x, p.P95, p.P99)*4
	case impact >= p.P90:
		pct = 90 + span(x, p.P90, p.P95)*5
	case impact >= p.P75:
		pct = 75 + span(x, p.P75, p.P90)*15
	case impact >= p.P50:
		pct = 50 + span(x, p.P50, p.P75)*25
	default:
		if p.P50 > 0 {
			pct = x / float64(p.P50) * 50
		}
	}

	pct = math.Min(99.99, math.Max(0.01, pct))
	placed := Placement{
		Percentile: math.Round(pct*100) / 100,
		clamped:    pct,
	}
	placed.AboveUsers = placed.AboveIn(int64(s.TotalUsers))
	placed.Rank = placed.AboveUsers + 1
	return placed
}

// span is the fractional position of x in [lo, hi]. Collapsed brackets, which
// occur when many users share a score, count as the top of the bracket.
func span(x float64, lo, hi int64) float64 {
	if hi <= lo {
		return 1
	}
	return (x - float64(lo)) / float64(hi-lo)
}
