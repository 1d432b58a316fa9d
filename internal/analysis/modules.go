package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

var milestonePriority = map[MilestoneType]int{
	MilestoneBirth:    0,
	MilestoneColossus: 1,
	MilestonePeak:     2,
	MilestoneMastery:  3,
}

// TimeMachine builds the yearly milestone timeline, keeping one milestone per
// year by priority birth > colossus > peak > mastery.
func TimeMachine(repos []types.Repo) []Milestone {
	if len(repos) == 0 {
		return nil
	}

	byCreated := append([]types.Repo(nil), repos...)
	sort.SliceStable(byCreated, func(i, j int) bool {
		return byCreated[i].CreatedAt.Before(byCreated[j].CreatedAt)
	})

	var milestones []Milestone
	first := byCreated[0]
	milestones = append(milestones, Milestone{
		ID:          "birth",
		Year:        first.CreatedAt.UTC().Year(),
		Title:       "The Genesis",
		Description: fmt.Sprintf("Remember '%s'? That was your first spark in the GitHub universe.", first.Name),
		Type:        MilestoneBirth,
	})

	colossus := repos[0]
	for _, r := range repos[1:] {
		if r.StargazersCount > colossus.StargazersCount {
			colossus = r
		}
	}
	if colossus.StargazersCount > 0 {
		milestones = append(milestones, Milestone{
			ID:          "colossus",
			Year:        colossus.CreatedAt.UTC().Year(),
			Title:       "The Great Monument",
			Description: fmt.Sprintf("'%s' became your legacy. %d souls recognized your craft.", colossus.Name, colossus.StargazersCount),
			Type:        MilestoneColossus,
		})
	}

	for _, r := range byCreated {
		if r.StargazersCount == 0 {
			continue
		}
		if r.Name != colossus.Name {
			milestones = append(milestones, Milestone{
				ID:          "awakening",
				Year:        r.CreatedAt.UTC().Year(),
				Title:       "The Awakening",
				Description: fmt.Sprintf("Someone out there starred '%s'. Your code was not just for you anymore.", r.Name),
				Type:        MilestoneMastery,
			})
		}
		break
	}

	yearCounts := make(map[int]int)
	yearLangs := make(map[int]map[string]int)
	for _, r := range repos {
		y := r.CreatedAt.UTC().Year()
		yearCounts[y]++
		if r.Language == "" {
			continue
		}
		if yearLangs[y] == nil {
			yearLangs[y] = make(map[string]int)
		}
		yearLangs[y][r.Language]++
	}

	years := make([]int, 0, len(yearLangs))
	for y := range yearLangs {
		years = append(years, y)
	}
	sort.Ints(years)
	seen := make(map[string]bool)
	last := ""
	for _, y := range years {
		dominant := rankLanguages(yearLangs[y])[0]
		if dominant == last || seen[dominant] {
			continue
		}
		milestones = append(milestones, Milestone{
			ID:          fmt.Sprintf("shift-%d", y),
			Year:        y,
			Title:       dominant + " Specialist",
			Description: fmt.Sprintf("A shift in your tech stack! You started mastering %s this year.", dominant),
			Type:        MilestoneMastery,
		})
		last = dominant
		seen[dominant] = true
	}

	peakYear, peakCount := 0, 0
	for y, c := range yearCounts {
		if c > peakCount || (c == peakCount && y < peakYear) {
			peakYear, peakCount = y, c
		}
	}
	milestones = append(milestones, Milestone{
		ID:          "peak",
		Year:        peakYear,
		Title:       "Golden Era",
		Description: fmt.Sprintf("In %d, you were a coding machine. %d projects launched.", peakYear, peakCount),
		Type:        MilestonePeak,
	})

	perYear := make(map[int]Milestone)
	for _, m := range milestones {
		existing, ok := perYear[m.Year]
		if !ok || milestonePriority[m.Type] < milestonePriority[existing.Type] {
			perYear[m.Year] = m
		}
	}
	out := make([]Milestone, 0, len(perYear))
	for _, m := range perYear {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

var rareLanguages = map[string]bool{
	"COBOL": true, "Fortran": true, "Lisp": true, "Haskell": true,
	"Assembly": true, "Prolog": true, "Delphi": true,
}

var firefighterKeywords = []string{"fix", "bug", "patch", "hotfix", "issue"}

func githubAgeYears(user types.GitHubUser, now time.Time) int {
	if user.CreatedAt.IsZero() {
		return 0
	}
	return now.UTC().Year() - user.CreatedAt.UTC().Year()
}

func pct(v, of float64) float64 {
	return math.Min(100, v/of*100)
}

// Archeology evaluates the fixed achievement set.
func Archeology(user types.GitHubUser, repos []types.Repo, languages []types.LanguageShare, now time.Time) []Achievement {
	age := githubAgeYears(user, now)
	stars, forks := Totals(repos)

	ancient := Achievement{
		ID: "ancient", Title: "Ancient Architect",
		Description: fmt.Sprintf("Account active for %d years. You've witnessed the evolution of git.", age),
		Rarity:      RarityCommon, RarityScore: 0.15, Category: "ancient",
		Unlocked: age >= 2, ProgressToNext: pct(float64(age), 10),
	}
	switch {
	case age > 8:
		ancient.Rarity, ancient.RarityScore = RarityLegendary, 0.05
	case age > 3:
		ancient.Rarity = RarityRare
	}

	starlord := Achievement{
		ID: "starlord", Title: "Starlord",
		Description: "Amassed recognition from the global developer community.",
		Rarity:      RarityRare, RarityScore: 0.25, Category: "social",
		Unlocked: stars >= 10, ProgressToNext: pct(float64(stars), 1000),
	}
	switch {
	case stars > 500:
		starlord.Rarity, starlord.RarityScore = RarityLegendary, 0.08
	case stars > 100:
		starlord.Rarity, starlord.RarityScore = RarityEpic, 0.08
	}

	var artifacts []string
	for _, l := range languages {
		if rareLanguages[l.Name] {
			artifacts = append(artifacts, l.Name)
		}
	}
	collector := Achievement{
		ID: "artifact_collector", Title: "Artifact Hunter",
		Description: "No rare linguistic artifacts found in this sector yet.",
		Rarity:      RarityCommon, RarityScore: 0.12, Category: "discovery",
		Unlocked: len(artifacts) > 0, ProgressToNext: float64(len(artifacts)) / 3 * 100,
	}
	if len(artifacts) > 0 {
		collector.Description = "Found rare artifacts: " + strings.Join(artifacts, ", ")
		collector.Rarity = RarityEpic
	}

	fixes, night := 0, 0
	for _, r := range repos {
		if hasAnyKeyword(r.Name, firefighterKeywords) {
			fixes++
		}
		if !r.UpdatedAt.IsZero() && r.UpdatedAt.UTC().Hour() <= 5 {
			night++
		}
	}

	influencerRarity := RarityEpic
	if user.Followers > 100 {
		influencerRarity = RarityLegendary
	}
	polyglotRarity := RarityRare
	if len(languages) >= 6 {
		polyglotRarity = RarityEpic
	}

	return []Achievement{
		ancient,
		starlord,
		collector,
		{
			ID: "firefighter", Title: "Code Firefighter",
			Description: "Expert at neutralizing critical bugs under pressure.",
			Rarity:      RarityRare, RarityScore: 0.18, Category: "mastery",
			Unlocked: fixes >= 2, ProgressToNext: pct(float64(fixes), 10),
		},
		{
			ID: "forkmaster", Title: "Fork Master",
			Description: "Your architecture is a blueprint for others to follow.",
			Rarity:      RarityLegendary, RarityScore: 0.03, Category: "social",
			Unlocked: forks >= 15, ProgressToNext: pct(float64(forks), 50),
		},
		{
			ID: "night_owl", Title: "Midnight Phantom",
			Description: "Your best work happens when the world is asleep.",
			Rarity:      RarityRare, RarityScore: 0.15, Category: "mastery",
			Unlocked: night >= 5, ProgressToNext: pct(float64(night), 20),
		},
		{
			ID: "influencer", Title: "Global Influencer",
			Description: "A leader whose digital footsteps are followed by many.",
			Rarity:      influencerRarity, RarityScore: 0.05, Category: "social",
			Unlocked: user.Followers >= 20, ProgressToNext: pct(float64(user.Followers), 500),
		},
		{
			ID: "polyglot", Title: "Polyglot Wizard",
			Description: "A master of many tongues in the digital realm.",
			Rarity:      polyglotRarity, RarityScore: 0.1, Category: "mastery",
			Unlocked: len(languages) >= 4, ProgressToNext: pct(float64(len(languages)), 10),
		},
	}
}

// Duel derives the game stats. Later special-move rules override earlier ones.
func Duel(user types.GitHubUser, repos []types.Repo, languages []types.LanguageShare, consistency int, now time.Time) DuelStats {
	cap100 := func(v float64) int { return int(math.Min(100, math.Round(v))) }

	d := DuelStats{
		Attack:      cap100(float64(len(repos)) / 50 * 100),
		Defense:     cap100(float64(githubAgeYears(user, now)) / 10 * 100),
		Magic:       cap100(float64(len(languages)) / 12 * 100),
		Speed:       consistency,
		SpecialMove: "Kernel Panic",
	}
	if d.Magic > d.Attack {
		d.SpecialMove = "Polymorphic Strike"
	}
	if d.Defense > 80 {
		d.SpecialMove = "Unbreakable Firewall"
	}
	if d.Attack > 90 {
		d.SpecialMove = "Mainframe Overclock"
	}
	return d
}
