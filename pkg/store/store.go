// Package store implements the crawler's content-addressed cache: an
// embedded, durable, ordered key-value store keyed by repository
// identity plus content fingerprint.
//
// A cache hit on (repository, fingerprint) means "this exact content
// has already been processed"; there is deliberately no latest-wins
// lookup. Entries for older fingerprints of the same repository
// coexist with newer ones so history can be inspected or pruned
// separately.
package store

import (
	"context"
	"errors"
)

var (
	// ErrCorrupt is returned when a stored entry cannot be decoded.
	// Callers treat it as a miss for that single entry, never as a
	// reason to abort a crawl.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// Store is the cache contract used by the crawl orchestrator. Puts are
// atomic: a crash mid-write leaves either the old entry or the fully
// written new one. Implementations must tolerate concurrent writers to
// distinct keys.
type Store interface {
	// Get performs a point lookup by exact (repository, fingerprint).
	// The boolean reports whether a usable entry exists; decode
	// failures surface as (nil, false, ErrCorrupt).
	Get(ctx context.Context, repo string, fingerprint string) (*Entry, bool, error)

	// Put atomically upserts the entry under (repository, fingerprint).
	// Entries for other fingerprints of the same repository are left
	// untouched.
	Put(ctx context.Context, repo string, fingerprint string, entry Entry) error

	// HasNegative reports whether a negative marker ("no parseable
	// metadata") exists for (repository, fingerprint).
	HasNegative(ctx context.Context, repo string, fingerprint string) (bool, error)

	// History range-scans all fingerprints stored for a repository, in
	// key order. Corrupt or foreign-schema entries are skipped.
	History(ctx context.Context, repo string) ([]Version, error)

	// Stats summarizes the whole store for diagnostics.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying store.
	Close() error
}

// Version pairs a fingerprint with its stored entry, as returned by
// History.
type Version struct {
	Fingerprint string
	Entry       Entry
}

// Stats summarizes store contents.
type Stats struct {
	Entries   int // total (repository, fingerprint) entries
	Negatives int // entries that are negative markers
	Repos     int // distinct repositories
}

// keyPrefix namespaces mod entries within the key space. The NUL
// separator keeps the encoding unambiguous and ordered: all
// fingerprints of one repository sort contiguously.
const keyPrefix = "mod\x00"

func entryKey(repo, fingerprint string) []byte {
	return []byte(keyPrefix + repo + "\x00" + fingerprint)
}

func repoPrefix(repo string) []byte {
	return []byte(keyPrefix + repo + "\x00")
}
