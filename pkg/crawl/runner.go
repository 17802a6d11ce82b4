package crawl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/mindustry-mods/modlist/pkg/errors"
	"github.com/mindustry-mods/modlist/pkg/github"
	"github.com/mindustry-mods/modlist/pkg/modfile"
	"github.com/mindustry-mods/modlist/pkg/mods"
	"github.com/mindustry-mods/modlist/pkg/store"
)

// Runner executes crawl passes. It is stateless apart from its
// collaborators; one Runner can serve many passes, sequentially or not.
type Runner struct {
	Store   store.Store
	Fetcher Fetcher
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil store disables caching (every
// repository is fetched); a nil logger falls back to log.Default.
func NewRunner(st store.Store, fetcher Fetcher, logger *log.Logger) *Runner {
	if st == nil {
		st = store.Null{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: st, Fetcher: fetcher, Logger: logger}
}

// Run executes one crawl pass over the repositories yielded by source.
// Discovery runs in the calling goroutine (pagination is inherently
// sequential); each discovered repository is handed to a bounded worker
// pool. The returned catalog preserves discovery order regardless of
// worker completion order.
//
// Per-repository failures are recorded in the catalog, not returned.
// Run itself fails only on cancellation or a discovery error, and even
// then it returns the catalog collected so far alongside the error.
func (r *Runner) Run(ctx context.Context, source RepoSource, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	runID := uuid.NewString()
	logger := r.Logger.With("run", runID)
	start := time.Now()
	logger.Info("starting crawl", "workers", opts.Workers, "refresh", opts.Refresh)

	g, wctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var mu sync.Mutex
	results := make(map[int]mods.Entry)

	count := 0
	for source.Next(ctx) {
		desc := source.Repo()
		idx := count
		count++

		g.Go(func() error {
			if err := wctx.Err(); err != nil {
				return err
			}
			entry := r.processRepo(wctx, desc, opts, logger)
			mu.Lock()
			results[idx] = entry
			mu.Unlock()
			return nil
		})
	}
	discoverErr := source.Err()

	err := g.Wait()
	if err == nil {
		err = discoverErr
	}

	catalog := make(mods.Catalog, 0, len(results))
	indices := make([]int, 0, len(results))
	for i := range results {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		catalog = append(catalog, results[i])
	}

	result := &Result{
		RunID:   runID,
		Catalog: catalog,
		Summary: catalog.Summarize(),
		Elapsed: time.Since(start),
	}
	logger.Info("crawl finished",
		"processed", result.Summary.Processed,
		"cache_hits", result.Summary.CacheHits,
		"failures", result.Summary.Failures,
		"elapsed", result.Elapsed)

	if err != nil {
		return result, fmt.Errorf("crawl run %s: %w", runID, err)
	}
	return result, nil
}

// processRepo runs one repository through the state machine. It always
// produces a catalog entry; errors surface as fetch-failed outcomes.
func (r *Runner) processRepo(ctx context.Context, desc mods.RepositoryDescriptor, opts Options, logger *log.Logger) mods.Entry {
	started := time.Now()
	opts.Hooks.OnRepoStart(ctx, desc.ID)
	entry := r.crawlOne(ctx, desc, opts, logger)
	opts.Hooks.OnRepoDone(ctx, entry, time.Since(started))
	return entry
}

func (r *Runner) crawlOne(ctx context.Context, desc mods.RepositoryDescriptor, opts Options, logger *log.Logger) mods.Entry {
	entry := mods.Entry{Repo: desc.ID}
	repoKey := desc.ID.String()

	// Resolve the content fingerprint unless discovery already carried
	// one. Everything downstream is keyed and pinned by it.
	fingerprint := desc.Fingerprint
	var committedAt time.Time
	if fingerprint == "" {
		sha, at, err := r.Fetcher.Fingerprint(ctx, desc.ID, desc.DefaultBranch)
		if err != nil {
			logger.Warn("fingerprint failed", "repo", repoKey, "err", err)
			entry.Outcome = mods.OutcomeFetchFailed
			entry.Failure = fmt.Sprintf("fingerprint (%s): %v", apperrors.Classify(err), err)
			return entry
		}
		fingerprint, committedAt = sha, at
	}
	entry.Fingerprint = fingerprint

	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, repoKey, fingerprint, logger); ok {
			opts.Hooks.OnCacheHit(ctx, desc.ID, fingerprint)
			entry.Outcome = cached.Outcome
			entry.Record = cached.Record
			entry.Failure = cached.Failure
			entry.FromCache = true
			return entry
		}
	}
	opts.Hooks.OnCacheMiss(ctx, desc.ID, fingerprint)

	return r.fetchAndParse(ctx, desc, entry, fingerprint, committedAt, opts, logger)
}

// lookup reads the cache, downgrading store errors to misses.
func (r *Runner) lookup(ctx context.Context, repoKey, fingerprint string, logger *log.Logger) (*store.Entry, bool) {
	cached, ok, err := r.Store.Get(ctx, repoKey, fingerprint)
	if err != nil {
		logger.Warn("cache read failed, treating as miss", "repo", repoKey, "err", err)
		return nil, false
	}
	return cached, ok
}

// fetchAndParse probes the candidate files in order, parses the first
// one that yields metadata, and persists the result (including negative
// outcomes) under the fingerprint.
func (r *Runner) fetchAndParse(ctx context.Context, desc mods.RepositoryDescriptor, entry mods.Entry, fingerprint string, committedAt time.Time, opts Options, logger *log.Logger) mods.Entry {
	repoKey := desc.ID.String()

	for _, cand := range opts.candidates {
		data, err := r.Fetcher.FetchFile(ctx, desc.ID, fingerprint, cand.path)
		if errors.Is(err, github.ErrNotFound) {
			continue
		}
		if err != nil {
			logger.Warn("fetch failed", "repo", repoKey, "path", cand.path, "err", err)
			entry.Outcome = mods.OutcomeFetchFailed
			entry.Failure = fmt.Sprintf("fetch %s (%s): %v", cand.path, apperrors.Classify(err), err)
			return entry
		}

		res, err := modfile.Parse(data, cand.source)
		if err != nil {
			logger.Debug("candidate unparseable", "repo", repoKey, "path", cand.path, "err", err)
			continue
		}

		record := res.Record
		record.Repo = desc.ID
		record.Stars = desc.Stars
		record.Download = desc.ArchiveURL()
		record.LastCommit = committedAt
		if record.Description == "" {
			record.Description = desc.Description
		}

		entry.Record = &record
		if record.Completeness == mods.CompletenessFull {
			entry.Outcome = mods.OutcomeParsed
		} else {
			entry.Outcome = mods.OutcomeParsedPartial
		}
		r.persist(ctx, repoKey, fingerprint, entry, logger)
		return entry
	}

	// Every candidate was absent or unparseable: record a negative
	// entry so this fingerprint is never fetched again.
	entry.Outcome = mods.OutcomeNoMetadata
	entry.Failure = "no metadata found"
	r.persist(ctx, repoKey, fingerprint, entry, logger)
	return entry
}

// persist writes the outcome to the store. Write failures are logged,
// not fatal: the crawl result is still correct, just uncached.
func (r *Runner) persist(ctx context.Context, repoKey, fingerprint string, entry mods.Entry, logger *log.Logger) {
	err := r.Store.Put(ctx, repoKey, fingerprint, store.Entry{
		Outcome:  entry.Outcome,
		Record:   entry.Record,
		Failure:  entry.Failure,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("cache write failed", "repo", repoKey, "err", err)
	}
}
