package ranking

// Tier names the strategy that produced a Result.
type Tier string

const (
	TierExactCount        Tier = "exact_count"
	TierDistributionModel Tier = "distribution_model"
	TierPowerLaw          Tier = "power_law"
)

// Result is one of ExactCount, DistributionModel or PowerLawColdStart.
type Result interface {
	Tier() Tier
	Summary() Summary
	sealed()
}

// Summary is the flat view shared by every tier. Rank is always AboveUsers+1.
type Summary struct {
	Tier                      Tier     `json:"tier"`
	Rank                      int64    `json:"rank"`
	TotalUsers                int64    `json:"total_users"`
	Percentile                float64  `json:"percentile"`
	AboveUsers                int64    `json:"above_users"`
	EstimatedGlobalRank       *int64   `json:"estimated_global_rank,omitempty"`
	EstimatedGlobalPercentile *float64 `json:"estimated_global_percentile,omitempty"`
	IsEstimated               bool     `json:"is_estimated"`
	DistributionBased         bool     `json:"distribution_based"`
}

// Observed is a placement among stored entries from a direct count.
type Observed struct {
	TotalUsers int64
	AboveUsers int64
}

func (o Observed) Rank() int64 { return o.AboveUsers + 1 }

// Percentile is the share of stored users at or below this one.
func (o Observed) Percentile() float64 {
	if o.TotalUsers <= 0 {
		return 100
	}
	return float64(o.TotalUsers-o.AboveUsers) / float64(o.TotalUsers) * 100
}

// ExactCount is ground truth from counting stored entries with a higher index.
type ExactCount struct {
	Observed
}

func (ExactCount) Tier() Tier { return TierExactCount }
func (ExactCount) sealed()    {}

func (r ExactCount) Summary() Summary {
	return Summary{
		Tier:              TierExactCount,
		Rank:              r.Rank(),
		TotalUsers:        r.TotalUsers,
		Percentile:        r.Observed.Percentile(),
		AboveUsers:        r.AboveUsers,
		DistributionBased: true,
	}
}

// DistributionModel is interpolated from snapshot cut points.
type DistributionModel struct {
	TotalUsers int64
	AboveUsers int64
	Percentile float64
}

func (DistributionModel) Tier() Tier { return TierDistributionModel }
func (DistributionModel) sealed()    {}

func (r DistributionModel) Summary() Summary {
	return Summary{
		Tier:              TierDistributionModel,
		Rank:              r.AboveUsers + 1,
		TotalUsers:        r.TotalUsers,
		Percentile:        r.Percentile,
		AboveUsers:        r.AboveUsers,
		IsEstimated:       true,
		DistributionBased: true,
	}
}

// PowerLawColdStart carries the extrapolated global placement and, when the
// stored population is large enough, the observed placement next to it.
type PowerLawColdStart struct {
	Global   GlobalEstimate
	Observed *Observed
}

func (PowerLawColdStart) Tier() Tier { return TierPowerLaw }
func (PowerLawColdStart) sealed()    {}

func (r PowerLawColdStart) Summary() Summary {
	globalRank, globalPct := r.Global.Rank, r.Global.Percentile
	s := Summary{
		Tier:                      TierPowerLaw,
		EstimatedGlobalRank:       &globalRank,
		EstimatedGlobalPercentile: &globalPct,
	}
	if r.Observed != nil {
		s.Rank = r.Observed.Rank()
		s.TotalUsers = r.Observed.TotalUsers
		s.Percentile = r.Observed.Percentile()
		s.AboveUsers = r.Observed.AboveUsers
		return s
	}
	s.Rank = globalRank
	s.TotalUsers = EstimatedActiveUsers
	s.Percentile = globalPct
	s.AboveUsers = globalRank - 1
	s.IsEstimated = true
	return s
}
