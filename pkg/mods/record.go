// Package mods defines the domain types shared across the crawler:
// repository descriptors produced by the API client, the ModRecord
// extracted by the metadata parser, and the per-run catalog handed to
// downstream rendering.
//
// # Schema versioning
//
// SchemaVersion gates both the cache codec and the exported artifact
// name. Bump it on any breaking change to ModRecord or the catalog
// shape so stale caches and consumers discard old data instead of
// misreading it.
package mods

import (
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the current version of the serialized ModRecord and
// catalog shapes.
const SchemaVersion = 3

// RepoID identifies a GitHub repository by owner and name.
type RepoID struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns the canonical "owner/name" form.
func (id RepoID) String() string { return id.Owner + "/" + id.Name }

// ParseRepoID parses an "owner/name" string into a RepoID.
func ParseRepoID(s string) (RepoID, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return RepoID{}, fmt.Errorf("invalid repository %q: use owner/name", s)
	}
	return RepoID{Owner: owner, Name: name}, nil
}

// RepositoryDescriptor describes a repository discovered during a crawl
// pass. It is produced by the API client and immutable once fetched;
// only the fingerprint survives a pass, as part of cache keys.
type RepositoryDescriptor struct {
	ID            RepoID    `json:"id"`
	DefaultBranch string    `json:"default_branch"`
	Fingerprint   string    `json:"fingerprint"` // latest commit SHA
	Stars         int       `json:"stars"`
	Description   string    `json:"description,omitempty"`
	PushedAt      time.Time `json:"pushed_at"`
	HTMLURL       string    `json:"html_url,omitempty"`
}

// ArchiveURL returns the downloadable zip archive for the descriptor's
// default branch.
func (d RepositoryDescriptor) ArchiveURL() string {
	branch := d.DefaultBranch
	if branch == "" {
		branch = "master"
	}
	return fmt.Sprintf("https://github.com/%s/archive/%s.zip", d.ID, branch)
}

// Dependency is a declared mod dependency: a name plus an optional,
// opaque version constraint. No constraint resolution happens here.
type Dependency struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// Completeness reports how much of a record the parser could recover.
type Completeness string

const (
	// CompletenessFull means both a name and a version were extracted.
	CompletenessFull Completeness = "full"

	// CompletenessPartial means a name was extracted but other fields
	// are missing.
	CompletenessPartial Completeness = "partial"
)

// ModRecord is the structured metadata extracted from a repository's
// mod manifest or README. Records are immutable after creation; a
// changed fingerprint produces a new record rather than mutating the
// stored one.
type ModRecord struct {
	Repo           RepoID       `json:"repo"`
	Name           string       `json:"name"`
	DisplayName    string       `json:"display_name,omitempty"`
	Author         string       `json:"author,omitempty"`
	Version        string       `json:"version,omitempty"` // opaque, no semver arithmetic
	Description    string       `json:"description,omitempty"`
	Dependencies   []Dependency `json:"dependencies,omitempty"`
	MinGameVersion string       `json:"min_game_version,omitempty"`
	Hidden         bool         `json:"hidden,omitempty"`
	MainScript     string       `json:"main_script,omitempty"`
	Stars          int          `json:"stars,omitempty"`
	Download       string       `json:"download,omitempty"` // zip archive of the crawled branch
	LastCommit     time.Time    `json:"last_commit,omitzero"`
	Completeness   Completeness `json:"completeness"`
}

// Equal reports whether two records carry identical metadata. Used by
// idempotence tests; dependency order is significant.
func (r ModRecord) Equal(other ModRecord) bool {
	if r.Repo != other.Repo ||
		r.Name != other.Name ||
		r.DisplayName != other.DisplayName ||
		r.Author != other.Author ||
		r.Version != other.Version ||
		r.Description != other.Description ||
		r.MinGameVersion != other.MinGameVersion ||
		r.Hidden != other.Hidden ||
		r.MainScript != other.MainScript ||
		r.Stars != other.Stars ||
		r.Download != other.Download ||
		!r.LastCommit.Equal(other.LastCommit) ||
		r.Completeness != other.Completeness {
		return false
	}
	if len(r.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i := range r.Dependencies {
		if r.Dependencies[i] != other.Dependencies[i] {
			return false
		}
	}
	return true
}
