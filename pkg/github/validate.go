package github

import (
	"errors"
	"regexp"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

// Regex patterns for GitHub resource validation.
var (
	// GitHub usernames/orgs: 1-39 alphanumeric or hyphen, not starting with hyphen
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// GitHub repo names: 1-100 alphanumeric, hyphen, underscore, or dot
	validRepo = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateRepoID validates a repository identity against GitHub's
// naming rules. Used on configuration input before a crawl starts.
func ValidateRepoID(id mods.RepoID) error {
	if id.Owner == "" {
		return errors.New("owner is required")
	}
	if !validOwner.MatchString(id.Owner) {
		return errors.New("invalid owner: must be 1-39 alphanumeric characters or hyphens, cannot start with hyphen")
	}
	if id.Name == "" {
		return errors.New("repo is required")
	}
	if !validRepo.MatchString(id.Name) {
		return errors.New("invalid repo: must be 1-100 alphanumeric characters, hyphens, underscores, or dots")
	}
	return nil
}
