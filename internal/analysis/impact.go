package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// Impact index weights. Stored scores depend on these exact values.
const (
	starWeight     = 3
	forkWeight     = 6
	followerWeight = 12
	repoWeight     = 5
)

// Totals sums stars and forks across repos.
func Totals(repos []types.Repo) (stars, forks int) {
	for _, r := range repos {
		stars += r.StargazersCount
		forks += r.ForksCount
	}
	return stars, forks
}

// ImpactIndex is 3*stars + 6*forks + 12*followers + 5*repos, never negative.
func ImpactIndex(totalStars, totalForks, followers, repoCount int) int64 {
	v := float64(totalStars)*starWeight +
		float64(totalForks)*forkWeight +
		float64(followers)*followerWeight +
		float64(repoCount)*repoWeight
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int64(v)
}

// ImpactIndexFor computes the index for a user and their repositories.
func ImpactIndexFor(user types.GitHubUser, repos []types.Repo) int64 {
	stars, forks := Totals(repos)
	return ImpactIndex(stars, forks, user.Followers, user.PublicRepos)
}

// DominantLanguage is the most frequent primary language across repos.
// Ties go to the language seen first. Empty when no repo has a language.
func DominantLanguage(repos []types.Repo) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range repos {
		if r.Language == "" {
			continue
		}
		if _, ok := counts[r.Language]; !ok {
			order = append(order, r.Language)
		}
		counts[r.Language]++
	}
	best := ""
	for _, lang := range order {
		if best == "" || counts[lang] > counts[best] {
			best = lang
		}
	}
	return best
}

// ImpactMagnitude maps star/fork density per repo onto a 1..10 log scale.
func ImpactMagnitude(user types.GitHubUser, repos []types.Repo) float64 {
	stars, forks := Totals(repos)
	raw := float64(stars) + float64(forks)*3
	repoCount := user.PublicRepos
	if repoCount < 1 {
		repoCount = 1
	}
	density := raw / float64(repoCount)
	mag := math.Log10(density+1)*3.5 + 1
	return roundTo(math.Min(10, mag), 1)
}
