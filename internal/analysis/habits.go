package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// All hour and weekday bucketing is done in UTC.

// AnalyzeCommitHabits buckets repo update times by hour and labels the peak.
func AnalyzeCommitHabits(repos []types.Repo) CommitHabit {
	var h CommitHabit
	hours := make([]int, 24)
	for _, r := range repos {
		if r.UpdatedAt.IsZero() {
			continue
		}
		hours[r.UpdatedAt.UTC().Hour()]++
	}
	copy(h.HourDistribution[:], hours)
	h.PeakHour = argmax(hours)

	switch {
	case h.PeakHour < 6:
		h.Label = "Midnight Phantom"
	case h.PeakHour >= 9 && h.PeakHour < 17:
		h.Label = "Corporate Warrior"
	case h.PeakHour >= 17 && h.PeakHour < 22:
		h.Label = "Evening Craftsman"
	default:
		h.Label = "Code Ronin"
	}
	return h
}

// AnalyzeTechEvolution reports the top three languages for each of the last
// five calendar years that have at least one repo with a language.
func AnalyzeTechEvolution(repos []types.Repo, now time.Time) []TechEvolution {
	byYear := make(map[int]map[string]int)
	for _, r := range repos {
		if r.Language == "" || r.CreatedAt.IsZero() {
			continue
		}
		y := r.CreatedAt.UTC().Year()
		if byYear[y] == nil {
			byYear[y] = make(map[string]int)
		}
		byYear[y][r.Language]++
	}

	current := now.UTC().Year()
	var out []TechEvolution
	for y := current - 4; y <= current; y++ {
		langs := rankLanguages(byYear[y])
		if len(langs) == 0 {
			continue
		}
		top := langs
		if len(top) > 3 {
			top = top[:3]
		}
		out = append(out, TechEvolution{Year: y, Languages: top, DominantLanguage: langs[0]})
	}
	return out
}

// rankLanguages orders languages by count descending, then by name.
func rankLanguages(counts map[string]int) []string {
	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs
}

// ConsistencyScore rates how evenly spaced the 30 most recent repo updates are.
func ConsistencyScore(repos []types.Repo) int {
	if len(repos) < 5 {
		return 30
	}

	dates := make([]time.Time, 0, len(repos))
	for _, r := range repos {
		if !r.UpdatedAt.IsZero() {
			dates = append(dates, r.UpdatedAt)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if len(dates) > 30 {
		dates = dates[:30]
	}
	if len(dates) < 2 {
		return 40
	}

	intervals := make([]float64, 0, len(dates)-1)
	for i := 0; i < len(dates)-1; i++ {
		intervals = append(intervals, dates[i].Sub(dates[i+1]).Hours()/24)
	}
	if len(intervals) == 0 {
		return 50
	}

	return int(roundTo(clip(100-popStdDev(intervals)*2, 0, 100), 0))
}

// GlobalPercentile is the static "top X%" estimate used before any population exists.
func GlobalPercentile(impactIndex int64, totalStars, repoCount int) float64 {
	switch {
	case impactIndex > 10000 || totalStars > 500:
		return 0.1
	case impactIndex > 5000 || totalStars > 100:
		return 1.5
	case impactIndex > 1000 || totalStars > 50:
		return 5
	case impactIndex > 500 || repoCount > 50:
		return 12
	case impactIndex > 100:
		return 25
	default:
		return 50
	}
}

func ComparativeText(percentile float64) string {
	switch {
	case percentile <= 0.1:
		return "You are shaping the future of open source. A true legend among millions."
	case percentile <= 1.5:
		return fmt.Sprintf("Your impact score is higher than %.1f%% of all GitHub developers.", 100-percentile)
	case percentile <= 5:
		return fmt.Sprintf("You produce more value than %.0f%% of active GitHub users.", 100-percentile)
	case percentile <= 12:
		return "Your productivity is well above the global average. Keep pushing!"
	case percentile <= 25:
		return "You're in the top quarter of developers. Solid foundation!"
	default:
		return "You are on your way to greatness. Consistency is key."
	}
}

var iconicUsers = map[string]struct{}{
	"torvalds":     {},
	"gaearon":      {},
	"tj":           {},
	"sindresorhus": {},
	"yyx990803":    {},
	"addyosmani":   {},
}

func IsGodMode(login string, impactIndex int64) bool {
	_, iconic := iconicUsers[strings.ToLower(login)]
	return iconic || impactIndex > 15000
}
