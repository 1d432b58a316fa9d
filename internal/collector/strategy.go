package collector

import (
	"fmt"
	"math"
)

// Level names a star band of the population.
type Level string

const (
	LevelElite    Level = "elite"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelBeginner Level = "beginner"
)

// Strategy is one star band and how many owners to take from it.
// MaxStars of zero means unbounded.
type Strategy struct {
	Level       Level  `json:"level"`
	MinStars    int    `json:"min_stars"`
	MaxStars    int    `json:"max_stars,omitempty"`
	Limit       int    `json:"limit"`
	Description string `json:"description"`
}

// DefaultStrategies samples every band from elite down to beginner.
var DefaultStrategies = []Strategy{
	{Level: LevelElite, MinStars: 10000, Limit: 500, Description: "Elite developers (10k+ stars)"},
	{Level: LevelHigh, MinStars: 1000, MaxStars: 10000, Limit: 2000, Description: "High-level developers (1k-10k stars)"},
	{Level: LevelMedium, MinStars: 100, MaxStars: 1000, Limit: 3000, Description: "Medium-level developers (100-1k stars)"},
	{Level: LevelLow, MinStars: 10, MaxStars: 100, Limit: 2000, Description: "Low-level developers (10-100 stars)"},
	{Level: LevelBeginner, MinStars: 1, MaxStars: 10, Limit: 2500, Description: "Beginner developers (1-10 stars)"},
}

// DefaultLanguages spreads the search over ecosystems so one language does
// not dominate a band.
var DefaultLanguages = []string{
	"JavaScript", "Python", "TypeScript", "Java", "Go", "Rust",
	"C++", "C#", "Ruby", "PHP", "Swift", "Kotlin", "Dart",
	"Scala", "Clojure", "Elixir", "Haskell", "OCaml",
}

// Query is the repository search for the band, optionally narrowed to a language.
func (s Strategy) Query(language string) string {
	q := fmt.Sprintf("stars:>=%d", s.MinStars)
	if s.MaxStars > 0 {
		q += fmt.Sprintf(" stars:<=%d", s.MaxStars)
	}
	if language != "" {
		q += " language:" + language
	}
	return q
}

// pagesPerLanguage spreads the band limit over the languages, ten owners per page.
func (s Strategy) pagesPerLanguage(languages int) int {
	if languages <= 0 {
		return 1
	}
	return int(math.Ceil(float64(s.Limit) / float64(languages*10)))
}
