package ranking

import "math"

// Cold-start model constants.
const (
	EstimatedActiveUsers int64 = 10_000_000

	paretoAlpha = 2.0
	minIndex    = 1.0
	maxIndex    = 500_000.0
)

// GlobalEstimate is a placement among all active GitHub accounts.
type GlobalEstimate struct {
	Rank       int64   `json:"rank"`
	Percentile float64 `json:"percentile"`
}

// EstimateGlobal places impact in the assumed Pareto population. Low scores
// use three linear bands over the normalized index; above 10% of the range the
// Pareto CDF is used, clamped to [10, 99.9].
func EstimateGlobal(impact int64) GlobalEstimate {
	if impact <= 0 {
		return GlobalEstimate{Rank: EstimatedActiveUsers, Percentile: 0}
	}

	x := float64(impact)
	norm := math.Min(1, (x-minIndex)/(maxIndex-minIndex))

	var pct float64
	switch {
	case norm <= 0.001:
		pct = norm * 0.1
	case norm <= 0.01:
		pct = 0.1 + (norm-0.001)*9
	case norm <= 0.1:
		pct = 1 + (norm-0.01)*10
	default:
		cdf := 1 - math.Pow(minIndex/x, paretoAlpha-1)
		pct = math.Max(10, math.Min(99.9, cdf*100))
	}

	rank := int64(math.Round(float64(EstimatedActiveUsers) * (1 - pct/100)))
	if rank < 1 {
		rank = 1
	}
	return GlobalEstimate{
		Rank:       rank,
		Percentile: math.Round(pct*100) / 100,
	}
}
