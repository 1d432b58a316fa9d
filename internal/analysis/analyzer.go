package analysis

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/types"
)

// Analyzer runs the full scoring pipeline over a fetched profile.
type Analyzer struct {
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock fixes the reference time used for ages and yearly windows.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithRand injects the source for the streak jitter.
func WithRand(rng *rand.Rand) Option {
	return func(a *Analyzer) { a.rng = rng }
}

// NewAnalyzer creates an analyzer using wall-clock time and a time-seeded rng.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes every score for the profile.
func (a *Analyzer) Analyze(p types.Profile) Report {
	now := a.now()
	user, repos, langs := p.User, p.Repos, p.Languages

	stars, forks := Totals(repos)
	impact := ImpactIndex(stars, forks, user.Followers, user.PublicRepos)
	consistency := ConsistencyScore(repos)
	percentile := GlobalPercentile(impact, stars, user.PublicRepos)

	a.mu.Lock()
	streak := Streak(repos, now, a.rng)
	a.mu.Unlock()

	return Report{
		Username:         user.Login,
		ImpactIndex:      impact,
		ImpactMagnitude:  ImpactMagnitude(user, repos),
		TotalStars:       stars,
		TotalForks:       forks,
		DominantLanguage: DominantLanguage(repos),
		CommitHabit:      AnalyzeCommitHabits(repos),
		TechEvolution:    AnalyzeTechEvolution(repos, now),
		ConsistencyScore: consistency,
		GlobalPercentile: percentile,
		ComparativeText:  ComparativeText(percentile),
		IsGodMode:        IsGodMode(user.Login, impact),
		RiskAnalysis:     AnalyzeRisk(repos),
		QualityScore:     ScoreQuality(repos, consistency, impact),
		Persona:          ClassifyPersona(user, repos, langs),
		Badges:           Badges(user, repos, now),
		Streak:           streak,
		Modules: Modules{
			TimeMachine: TimeMachine(repos),
			Archeology:  Archeology(user, repos, langs, now),
			DuelStats:   Duel(user, repos, langs, consistency, now),
		},
	}
}
