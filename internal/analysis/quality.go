package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

const qualitySampleSize = 15

var bugKeywords = []string{"fix", "bug", "error", "patch", "hotfix", "issue"}

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func hasAnyKeyword(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// AnalyzeRisk derives the busiest weekday/hour and a bug-fix share from repo names.
func AnalyzeRisk(repos []types.Repo) RiskAnalysis {
	days := make([]int, 7)
	hours := make([]int, 24)
	bugRepos := 0
	for _, r := range repos {
		if hasAnyKeyword(r.Name, bugKeywords) {
			bugRepos++
		}
		if r.UpdatedAt.IsZero() {
			continue
		}
		t := r.UpdatedAt.UTC()
		days[int(t.Weekday())]++
		hours[t.Hour()]++
	}

	ra := RiskAnalysis{
		RiskiestDay:  dayNames[argmax(days)],
		RiskiestHour: argmax(hours),
	}
	if len(repos) > 0 {
		ra.BugFixPercentage = int(math.Min(100, math.Round(float64(bugRepos)/float64(len(repos))*300)))
	}

	insight := fmt.Sprintf("Your peak activity on %ss at %d:00 suggests ", ra.RiskiestDay, ra.RiskiestHour)
	switch h := ra.RiskiestHour; {
	case h >= 22 || h < 6:
		insight += "late-night coding sessions. Consider more rest to reduce bugs."
	case h >= 9 && h < 17:
		insight += "focused work hours. Your bug rate is likely lower during this time."
	default:
		insight += "evening productivity. Quality tends to be high during these hours."
	}
	ra.Insight = insight
	return ra
}

// ScoreQuality grades repository hygiene over the most starred repos, boosted
// by impact and consistency. The input slice is not reordered.
func ScoreQuality(repos []types.Repo, consistency int, impactIndex int64) QualityScore {
	if len(repos) == 0 {
		return QualityScore{Suggestion: "Start creating your first repository!"}
	}

	sample := append([]types.Repo(nil), repos...)
	sort.SliceStable(sample, func(i, j int) bool {
		return sample[i].StargazersCount > sample[j].StargazersCount
	})
	if len(sample) > qualitySampleSize {
		sample = sample[:qualitySampleSize]
	}

	var withDesc, withLicense, withReadme, original int
	hasTopics := false
	for _, r := range sample {
		if len(strings.TrimSpace(r.Description)) > 3 {
			withDesc++
		}
		if r.License != nil {
			withLicense++
		}
		if r.HasReadme || len(r.Description) > 15 {
			withReadme++
		}
		if !r.Fork {
			original++
		}
		if r.StargazersCount > 10 || r.HasWiki || r.HasPages {
			hasTopics = true
		}
	}

	n := float64(len(sample))
	descScore := float64(withDesc) / n * 15
	licenseScore := float64(withLicense) / n * 10
	readmeScore := float64(withReadme) / n * 20
	originalScore := float64(original) / n * 15
	authority := math.Min(25, float64(impactIndex)/2000*5)
	discipline := float64(consistency) / 100 * 15

	total := int(math.Min(100, math.Round(descScore+licenseScore+readmeScore+originalScore+authority+discipline+10)))

	q := QualityScore{
		Score: total,
		Breakdown: QualityBreakdown{
			HasDescription: float64(withDesc) > n*0.3,
			HasLicense:     float64(withLicense) > n*0.2,
			HasReadme:      float64(withReadme) > n*0.4,
			HasTopics:      hasTopics,
		},
	}

	switch {
	case total > 85:
		q.Suggestion = "Master level repository management. Your projects serve as a benchmark for quality."
	case total > 65:
		q.Suggestion = "Professional grade hygiene. Your documentation is clear and your repositories are well-maintained."
	case !q.Breakdown.HasReadme:
		q.Suggestion = "Quick fix: Adding READMEs to your most popular repos will drastically increase your quality score."
	default:
		q.Suggestion = "Consider standardizing your repository structure with Licenses and detailed descriptions."
	}
	return q
}
