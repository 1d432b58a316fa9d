package analysis

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// Persona IDs in evaluation order. On equal scores the later one wins.
var personaOrder = []string{
	"phantom", "polyglot", "architect", "evangelist",
	"sentinel", "sorcerer", "alchemist", "hunter", "ronin",
}

var personas = map[string]Persona{
	"phantom":    {ID: "phantom", Title: "The Midnight Phantom", Description: "Coding while the world sleeps. Connectivity is your muse."},
	"polyglot":   {ID: "polyglot", Title: "Polyglot Sensei", Description: "Master of syntax, speaker of many machine tongues."},
	"architect":  {ID: "architect", Title: "System Architect", Description: "Building digital skyscrapers with foundational excellence."},
	"evangelist": {ID: "evangelist", Title: "Tech Evangelist", Description: "Your voice echoes through the commit logs of thousands."},
	"sentinel":   {ID: "sentinel", Title: "Cyber Sentinel", Description: "Guardian of the back-end and master of secure infrastructure."},
	"sorcerer":   {ID: "sorcerer", Title: "UI Sorcerer", Description: "Bending pixels and the DOM to your aesthetic will."},
	"alchemist":  {ID: "alchemist", Title: "AI Alchemist", Description: "Transmuting raw data into digital gold and intelligence."},
	"hunter":     {ID: "hunter", Title: "Ghost Hunter", Description: "Exorcising bugs and refining code into its purest form."},
	"ronin":      {ID: "ronin", Title: "Code Ronin", Description: "A wandering warrior of code, seeking the perfect commit."},
}

var bioKeywords = map[string][]string{
	"sentinel":   {"security", "cyber", "backend", "server", "linux", "cloud", "infra"},
	"sorcerer":   {"frontend", "ui", "ux", "react", "vue", "web", "design", "css"},
	"alchemist":  {"ai", "ml", "data", "python", "intelligence", "neural", "tensor"},
	"hunter":     {"fix", "maintaining", "bug", "testing", "qa", "debug"},
	"evangelist": {"community", "speaker", "writing", "blog", "developer advocate", "open source"},
}

// PersonaScores scores each persona from bio keywords, languages and activity.
func PersonaScores(user types.GitHubUser, repos []types.Repo, languages []types.LanguageShare) map[string]int {
	scores := make(map[string]int, len(personaOrder))
	for _, id := range personaOrder {
		scores[id] = 0
	}
	scores["ronin"] = 1

	bio := strings.ToLower(user.Bio)
	for id, words := range bioKeywords {
		for _, w := range words {
			if strings.Contains(bio, w) {
				scores[id] += 5
			}
		}
	}

	if len(languages) >= 8 {
		scores["polyglot"] += 15
	}
	if len(languages) > 0 {
		switch strings.ToLower(languages[0].Name) {
		case "javascript", "typescript", "react":
			scores["sorcerer"] += 3
		case "python", "r", "julia":
			scores["alchemist"] += 3
		case "rust", "go", "c++", "c", "java":
			scores["sentinel"] += 3
		}
	}

	recent := repos
	if len(recent) > 20 {
		recent = recent[:20]
	}
	night := 0
	for _, r := range recent {
		if !r.UpdatedAt.IsZero() && r.UpdatedAt.UTC().Hour() < 6 {
			night++
		}
	}
	if night > 4 {
		scores["phantom"] += 12
	}

	if user.PublicRepos > 50 {
		scores["architect"] += 10
	}
	for _, r := range repos {
		if r.ForksCount > 50 {
			scores["architect"] += 5
			break
		}
	}
	if user.Followers > 500 {
		scores["evangelist"] += 15
	}
	return scores
}

// ClassifyPersona picks the highest scoring persona.
func ClassifyPersona(user types.GitHubUser, repos []types.Repo, languages []types.LanguageShare) Persona {
	scores := PersonaScores(user, repos, languages)
	winner := personaOrder[0]
	for _, id := range personaOrder[1:] {
		if scores[id] >= scores[winner] {
			winner = id
		}
	}
	return personas[winner]
}

// Badges awards community, impact, age and productivity badges.
func Badges(user types.GitHubUser, repos []types.Repo, now time.Time) []Badge {
	var badges []Badge

	switch {
	case user.Followers >= 1000:
		badges = append(badges, Badge{ID: "influencer", Label: "Global Influencer"})
	case user.Followers >= 100:
		badges = append(badges, Badge{ID: "community", Label: "Community Leader"})
	}

	maxStars := 0
	for _, r := range repos {
		if r.StargazersCount > maxStars {
			maxStars = r.StargazersCount
		}
	}
	switch {
	case maxStars >= 1000:
		badges = append(badges, Badge{ID: "legend", Label: "Lighthouse"})
	case maxStars >= 100:
		badges = append(badges, Badge{ID: "starlord", Label: "Star Lord"})
	}

	if !user.CreatedAt.IsZero() {
		ageYears := now.Sub(user.CreatedAt).Hours() / 24 / 365
		switch {
		case ageYears >= 10:
			badges = append(badges, Badge{ID: "elder", Label: "GitHub Elder"})
		case ageYears >= 5:
			badges = append(badges, Badge{ID: "og", Label: "OG Developer"})
		}
	}

	switch {
	case user.PublicRepos > 100:
		badges = append(badges, Badge{ID: "factory", Label: "Code Factory"})
	case user.PublicRepos > 30:
		badges = append(badges, Badge{ID: "prolific", Label: "Prolific Builder"})
	}
	return badges
}

// Streak estimates a best streak in days from repo density since the oldest
// repo, plus 0..4 days drawn from rng. Capped at 365.
func Streak(repos []types.Repo, now time.Time, rng *rand.Rand) int {
	if len(repos) == 0 {
		return 0
	}
	oldest := repos[0].CreatedAt
	for _, r := range repos[1:] {
		if !r.CreatedAt.IsZero() && (oldest.IsZero() || r.CreatedAt.Before(oldest)) {
			oldest = r.CreatedAt
		}
	}

	ageDays := now.Sub(oldest).Hours() / 24
	base := 2
	if ageDays > 0 {
		density := float64(len(repos)) / (ageDays / 30)
		base = int(math.Floor(density*4)) + 2
	}

	luck := 0
	if rng != nil {
		luck = rng.Intn(5)
	}
	if base+luck > 365 {
		return 365
	}
	return base + luck
}
