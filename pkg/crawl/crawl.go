// Package crawl orchestrates a crawl pass: repository discovery feeds a
// bounded worker pool, each worker runs one repository through the
// fingerprint → cache → fetch → parse state machine, and the outcomes
// aggregate into an ordered catalog.
//
// The orchestrator owns no I/O of its own. Discovery and file fetching
// go through narrow interfaces satisfied by the GitHub client, and
// persistence goes through the store contract, so the whole state
// machine is testable with in-memory fakes.
//
// # Failure policy
//
// A repository that cannot be fingerprinted, fetched, or parsed becomes
// a catalog entry with a failure reason; it never aborts the run. Store
// failures degrade to cache misses with a logged warning. Only
// cancellation and discovery (pagination) errors end a pass early, and
// even then the catalog collected so far is returned.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindustry-mods/modlist/pkg/modfile"
	"github.com/mindustry-mods/modlist/pkg/mods"
)

// DefaultWorkers is the crawl concurrency when Options.Workers is unset.
// GitHub's secondary rate limits punish aggressive parallelism, so the
// default stays modest.
const DefaultWorkers = 8

// candidate is a file the crawler probes for metadata, in priority
// order. The first candidate that parses wins.
type candidate struct {
	path   string
	source modfile.Source
}

// DefaultCandidates are the file paths probed when Options.Candidates
// is unset.
var DefaultCandidates = []string{"mod.json", "mod.hjson", "README.md"}

// newCandidate infers the parse source from the path: markdown files go
// through the heuristic tier only, everything else is treated as a
// manifest.
func newCandidate(path string) candidate {
	src := modfile.SourceManifest
	if strings.HasSuffix(strings.ToLower(path), ".md") {
		src = modfile.SourceMarkdown
	}
	return candidate{path: path, source: src}
}

// RepoSource yields repository descriptors in discovery order. Both the
// search iterator and the curated-registry iterator satisfy it.
type RepoSource interface {
	Next(ctx context.Context) bool
	Repo() mods.RepositoryDescriptor
	Err() error
}

// Fetcher is the slice of the GitHub client the state machine needs:
// resolving a content fingerprint and fetching files pinned to it.
type Fetcher interface {
	Fingerprint(ctx context.Context, id mods.RepoID, ref string) (sha string, at time.Time, err error)
	FetchFile(ctx context.Context, id mods.RepoID, ref, path string) ([]byte, error)
}

// Options configures a single crawl pass.
type Options struct {
	// Workers bounds crawl concurrency. Zero means DefaultWorkers.
	Workers int

	// Refresh skips cache reads so every repository is re-fetched.
	// Results are still written back to the store.
	Refresh bool

	// Candidates overrides the metadata file paths probed per
	// repository, in priority order. Empty means DefaultCandidates.
	Candidates []string

	// Hooks receives per-repository progress events. Nil means no-op.
	Hooks Hooks

	candidates []candidate
}

func (o *Options) validate() error {
	if o.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Hooks == nil {
		o.Hooks = NopHooks{}
	}
	paths := o.Candidates
	if len(paths) == 0 {
		paths = DefaultCandidates
	}
	o.candidates = o.candidates[:0]
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("empty candidate path")
		}
		o.candidates = append(o.candidates, newCandidate(p))
	}
	return nil
}

// Result is the outcome of one crawl pass.
type Result struct {
	// RunID uniquely identifies the pass in logs and reports.
	RunID string

	// Catalog holds per-repository outcomes in discovery order.
	Catalog mods.Catalog

	// Summary aggregates the catalog into run-level counters.
	Summary mods.Summary

	// Elapsed is the wall-clock duration of the pass.
	Elapsed time.Duration
}
