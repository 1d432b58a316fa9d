package leaderboard

import (
	"regexp"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/analysis"
	"github.com/ZanzyTHEbar/aurameter/internal/database"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// Tier is a coarse badge derived from an entry's raw counts.
type Tier string

const (
	TierPlatinum Tier = "Platinum"
	TierGold     Tier = "Gold"
	TierSilver   Tier = "Silver"
	TierBronze   Tier = "Bronze"
	TierIron     Tier = "Iron"
)

// ParseTier accepts a tier name in any case. Empty means no tier filter.
func ParseTier(s string) (Tier, bool) {
	for _, t := range []Tier{TierPlatinum, TierGold, TierSilver, TierBronze, TierIron} {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// TierOf scores stars*2 + forks*1.5 + followers + repos*0.5.
func TierOf(e database.LeaderboardEntry) Tier {
	score := float64(e.TotalStars)*2 +
		float64(e.TotalForks)*1.5 +
		float64(e.Followers) +
		float64(e.PublicRepos)*0.5

	switch {
	case score > 1000:
		return TierPlatinum
	case score > 500:
		return TierGold
	case score > 100:
		return TierSilver
	case score > 50:
		return TierBronze
	default:
		return TierIron
	}
}

// Entry is a stored leaderboard row with its tier.
type Entry struct {
	database.LeaderboardEntry
	Tier Tier `json:"tier"`
}

func withTier(e database.LeaderboardEntry) Entry {
	return Entry{LeaderboardEntry: e, Tier: TierOf(e)}
}

const maxUsernameLength = 39

// Alphanumerics separated by single hyphens; a trailing hyphen is tolerated
// for legacy accounts.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9])*-?$`)

// ValidateUsername checks the GitHub login format.
func ValidateUsername(username string) error {
	if username == "" {
		return apperrors.NewValidationError("username is required")
	}
	if len(username) > maxUsernameLength {
		return apperrors.NewValidationError("username is too long", username)
	}
	if !usernamePattern.MatchString(username) {
		return apperrors.NewValidationError("invalid GitHub username", username)
	}
	return nil
}

// BuildEntry derives a full leaderboard row from a fetched profile. Every
// derived field is recomputed from the profile.
func BuildEntry(profile types.Profile, now time.Time) database.LeaderboardEntry {
	stars, forks := analysis.Totals(profile.Repos)

	e := database.LeaderboardEntry{
		Username:       profile.User.Login,
		AvatarURL:      profile.User.AvatarURL,
		Followers:      int64(profile.User.Followers),
		PublicRepos:    int64(profile.User.PublicRepos),
		TotalStars:     int64(stars),
		TotalForks:     int64(forks),
		ImpactIndex:    analysis.ImpactIndexFor(profile.User, profile.Repos),
		LastAnalyzedAt: now.UTC(),
	}
	if lang := analysis.DominantLanguage(profile.Repos); lang != "" {
		e.DominantLanguage = &lang
	}
	return e
}
