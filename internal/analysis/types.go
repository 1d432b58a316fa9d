package analysis

// CommitHabit is the hour-of-day activity profile derived from repo updates.
type CommitHabit struct {
	Label            string  `json:"label"`
	HourDistribution [24]int `json:"hour_distribution"`
	PeakHour         int     `json:"peak_hour"`
}

// TechEvolution lists the top languages of repositories created in one year.
type TechEvolution struct {
	Year             int      `json:"year"`
	Languages        []string `json:"languages"`
	DominantLanguage string   `json:"dominant_language,omitempty"`
}

type RiskAnalysis struct {
	RiskiestDay      string `json:"riskiest_day"`
	RiskiestHour     int    `json:"riskiest_hour"`
	BugFixPercentage int    `json:"bug_fix_percentage"`
	Insight          string `json:"insight"`
}

type QualityBreakdown struct {
	HasDescription bool `json:"has_description"`
	HasLicense     bool `json:"has_license"`
	HasReadme      bool `json:"has_readme"`
	HasTopics      bool `json:"has_topics"`
}

type QualityScore struct {
	Score      int              `json:"score"`
	Breakdown  QualityBreakdown `json:"breakdown"`
	Suggestion string           `json:"suggestion"`
}

type Persona struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Badge struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MilestoneType orders milestones sharing a year; lower wins.
type MilestoneType string

const (
	MilestoneBirth    MilestoneType = "birth"
	MilestoneColossus MilestoneType = "colossus"
	MilestonePeak     MilestoneType = "peak"
	MilestoneMastery  MilestoneType = "mastery"
)

type Milestone struct {
	ID          string        `json:"id"`
	Year        int           `json:"year"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        MilestoneType `json:"type"`
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type Achievement struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Rarity         Rarity  `json:"rarity"`
	RarityScore    float64 `json:"rarity_score"`
	Category       string  `json:"category"`
	Unlocked       bool    `json:"unlocked"`
	ProgressToNext float64 `json:"progress_to_next"`
}

type DuelStats struct {
	Attack      int    `json:"attack"`
	Defense     int    `json:"defense"`
	Magic       int    `json:"magic"`
	Speed       int    `json:"speed"`
	SpecialMove string `json:"special_move"`
}

type Modules struct {
	TimeMachine []Milestone   `json:"time_machine"`
	Archeology  []Achievement `json:"archeology"`
	DuelStats   DuelStats     `json:"duel_stats"`
}

// Report is the full result of analyzing one profile.
type Report struct {
	Username         string          `json:"username"`
	ImpactIndex      int64           `json:"impact_index"`
	ImpactMagnitude  float64         `json:"impact_magnitude"`
	TotalStars       int             `json:"total_stars"`
	TotalForks       int             `json:"total_forks"`
	DominantLanguage string          `json:"dominant_language,omitempty"`
	CommitHabit      CommitHabit     `json:"commit_habit"`
	TechEvolution    []TechEvolution `json:"tech_evolution"`
	ConsistencyScore int             `json:"consistency_score"`
	GlobalPercentile float64         `json:"global_percentile"`
	ComparativeText  string          `json:"comparative_text"`
	IsGodMode        bool            `json:"is_god_mode"`
	RiskAnalysis     RiskAnalysis    `json:"risk_analysis"`
	QualityScore     QualityScore    `json:"quality_score"`
	Persona          Persona         `json:"persona"`
	Badges           []Badge         `json:"badges"`
	Streak           int             `json:"streak"`
	Modules          Modules         `json:"modules"`
}
