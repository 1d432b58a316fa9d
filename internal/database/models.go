package database

import (
	"fmt"
	"time"
)

// LeaderboardEntry is one observed GitHub user. Username is the natural key.
type LeaderboardEntry struct {
	Username         string    `json:"username" db:"github_username"`
	AvatarURL        string    `json:"avatar_url" db:"github_avatar_url"`
	Followers        int64     `json:"followers" db:"followers"`
	PublicRepos      int64     `json:"public_repos" db:"public_repos"`
	TotalStars       int64     `json:"total_stars" db:"total_stars"`
	TotalForks       int64     `json:"total_forks" db:"total_forks"`
	DominantLanguage *string   `json:"dominant_language" db:"dominant_language"`
	ImpactIndex      int64     `json:"impact_index" db:"impact_index"`
	LastAnalyzedAt   time.Time `json:"last_analyzed_at" db:"last_analyzed_at"`
}

// SortKey is a numeric column the leaderboard may be ordered by.
type SortKey string

const (
	SortImpactIndex SortKey = "impact_index"
	SortTotalStars  SortKey = "total_stars"
	SortFollowers   SortKey = "followers"
	SortTotalForks  SortKey = "total_forks"
)

// ParseSortKey accepts the fixed set of sortable columns. Empty means impact_index.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortImpactIndex, nil
	case SortImpactIndex, SortTotalStars, SortFollowers, SortTotalForks:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("unsupported sort key %q", s)
	}
}

// TopNQuery filters and orders a leaderboard read. Zero thresholds are ignored.
type TopNQuery struct {
	Language     string
	MinImpact    int64
	MinStars     int64
	MinFollowers int64
	SortBy       SortKey
	Limit        int
}

const entryColumns = `github_username, github_avatar_url, followers, public_repos,
	total_stars, total_forks, dominant_language, impact_index, last_analyzed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (LeaderboardEntry, error) {
	var e LeaderboardEntry
	var lang *string
	err := row.Scan(&e.Username, &e.AvatarURL, &e.Followers, &e.PublicRepos,
		&e.TotalStars, &e.TotalForks, &lang, &e.ImpactIndex, &e.LastAnalyzedAt)
	if lang != nil && *lang != "" {
		e.DominantLanguage = lang
	}
	return e, err
}
