package types

import "time"

// GitHubUser is the subset of the GitHub user payload the analyzers consume.
type GitHubUser struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	Location    string    `json:"location"`
	Company     string    `json:"company"`
	Blog        string    `json:"blog"`
	HTMLURL     string    `json:"html_url"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// License is the license block attached to a repository.
type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Repo is one public repository of a user.
type Repo struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	Language        string    `json:"language"`
	HTMLURL         string    `json:"html_url"`
	Homepage        string    `json:"homepage"`
	Topics          []string  `json:"topics"`
	License         *License  `json:"license"`
	Fork            bool      `json:"fork"`
	HasWiki         bool      `json:"has_wiki"`
	HasPages        bool      `json:"has_pages"`
	HasIssues       bool      `json:"has_issues"`
	HasReadme       bool      `json:"has_readme"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Owner           RepoOwner `json:"owner"`
}

// RepoOwner is the owner block returned by repository search.
type RepoOwner struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// LanguageShare is a language with the number of repos using it as primary language.
type LanguageShare struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Profile is everything fetched for a single user.
type Profile struct {
	User      GitHubUser      `json:"user"`
	Repos     []Repo          `json:"repos"`
	Languages []LanguageShare `json:"languages"`
}

// CollectRequest starts a population collection run.
type CollectRequest struct {
	TargetCount int `json:"target_count" binding:"required,min=1,max=20000"`
}
