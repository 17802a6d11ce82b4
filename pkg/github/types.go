package github

import "time"

// RegistryEntry is one row of a curated mod listing file (the
// mods.json registry format): a repository reference plus the display
// metadata the listing maintainers track.
type RegistryEntry struct {
	Repo        string `json:"repo"` // "owner/name"
	Name        string `json:"name"`
	Author      string `json:"author"`
	LastUpdated string `json:"lastUpdated"`
	Stars       int    `json:"stars"`
	Description string `json:"description"`
}

// apiRepoItem is a repository as returned by the search API.
type apiRepoItem struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranch string    `json:"default_branch"`
	Stars         int       `json:"stargazers_count"`
	Description   string    `json:"description"`
	PushedAt      time.Time `json:"pushed_at"`
	HTMLURL       string    `json:"html_url"`
}

type searchResponse struct {
	TotalCount int           `json:"total_count"`
	Items      []apiRepoItem `json:"items"`
}

// apiCommit is the single-commit endpoint response, trimmed to the
// fields the crawler needs for fingerprinting.
type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}
