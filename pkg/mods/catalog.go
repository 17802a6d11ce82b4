package mods

// Outcome is the terminal parse state of a single repository within a
// crawl run. Cache hits replay the outcome recorded when the
// fingerprint was first processed, so two runs over unchanged
// repositories produce identical catalogs; Entry.FromCache records
// whether the network was touched.
type Outcome string

const (
	// OutcomeParsed means metadata was fully parsed.
	OutcomeParsed Outcome = "parsed"

	// OutcomeParsedPartial means metadata was only partially recovered
	// (typically a name without a version).
	OutcomeParsedPartial Outcome = "parsed_partial"

	// OutcomeNoMetadata means the repository carries no parseable
	// metadata at this fingerprint; a negative cache entry exists.
	OutcomeNoMetadata Outcome = "no_metadata"

	// OutcomeFetchFailed means fingerprinting or fetching failed after
	// retries; the repository was skipped, not aborted.
	OutcomeFetchFailed Outcome = "fetch_failed"
)

// Entry is one repository's outcome within a catalog. Record is set for
// parsed outcomes; Failure carries the reason for no-metadata and
// fetch-failed entries.
type Entry struct {
	Repo        RepoID     `json:"repo"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Outcome     Outcome    `json:"outcome"`
	Record      *ModRecord `json:"record,omitempty"`
	Failure     string     `json:"failure,omitempty"`
	FromCache   bool       `json:"from_cache,omitempty"`
}

// Catalog is the ordered per-run aggregate of all processed
// repositories. Order follows discovery (pagination) order and is
// deterministic for reproducible reports. The catalog is transient; it
// is never persisted directly.
type Catalog []Entry

// Records returns the parsed records in catalog order.
func (c Catalog) Records() []ModRecord {
	var out []ModRecord
	for _, e := range c {
		if e.Record != nil {
			out = append(out, *e.Record)
		}
	}
	return out
}

// Summary aggregates a catalog into run-level counters for the final
// report ("N processed, M cache hits, K failures").
type Summary struct {
	Processed int `json:"processed"`
	CacheHits int `json:"cache_hits"`
	Parsed    int `json:"parsed"`
	Partial   int `json:"partial"`
	Negative  int `json:"negative"`
	Failures  int `json:"failures"`
}

// Summarize tallies outcomes across the catalog.
func (c Catalog) Summarize() Summary {
	var s Summary
	s.Processed = len(c)
	for _, e := range c {
		if e.FromCache {
			s.CacheHits++
		}
		switch e.Outcome {
		case OutcomeParsed:
			s.Parsed++
		case OutcomeParsedPartial:
			s.Partial++
		case OutcomeNoMetadata:
			s.Negative++
		case OutcomeFetchFailed:
			s.Failures++
		}
	}
	return s
}
