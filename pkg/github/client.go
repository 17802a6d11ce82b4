// Package github implements the crawl-facing GitHub API client:
// paginated repository discovery, commit fingerprinting, and pinned
// file fetches, with shared rate-limit bookkeeping and retry/backoff.
//
// The client never writes to the cache; it only performs network I/O
// and quota accounting. Tokens are held in memory for the Authorization
// header and are never logged.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mindustry-mods/modlist/pkg/httputil"
	"github.com/mindustry-mods/modlist/pkg/mods"
)

const (
	defaultBaseURL = "https://api.github.com"
	httpTimeout    = 30 * time.Second

	acceptJSON = "application/vnd.github.v3+json"
	acceptRaw  = "application/vnd.github.v3.raw"
)

var (
	// ErrNotFound is returned when a repository or file doesn't exist.
	// It is permanent: callers must not retry.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned for 4xx responses other than rate
	// limiting. Also permanent.
	ErrForbidden = errors.New("access forbidden")
)

// Client is an authenticated GitHub API client. All requests share one
// [RateLimit] so concurrent crawl workers coordinate on a single quota
// counter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limit      *RateLimit
	attempts   int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests, GitHub Enterprise).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry overrides the transient-failure retry schedule.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.backoff = backoff
	}
}

// WithRateLimitThreshold sets the remaining-quota floor at which the
// client blocks until the window resets.
func WithRateLimitThreshold(n int) Option {
	return func(c *Client) { c.limit = newRateLimit(n) }
}

// NewClient creates a client authenticating with token. The token is
// required for crawling: unauthenticated search quota is too small to
// finish a pass.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
		limit:      newRateLimit(DefaultRateLimitThreshold),
		attempts:   3,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimit exposes the shared quota state for logging and stats.
func (c *Client) RateLimit() *RateLimit { return c.limit }

// Search returns a lazy iterator over repositories matching query
// (GitHub search syntax, e.g. "topic:mindustry-mod"). Each page advance
// is a network call; the iterator is restartable only from page 1.
func (c *Client) Search(query string, perPage int) *RepoIter {
	if perPage <= 0 || perPage > 100 {
		perPage = 50
	}
	return &RepoIter{c: c, query: query, perPage: perPage, page: 1}
}

// Registry fetches a curated listing file (the mods.json format) from
// a repository and returns its entries in file order.
func (c *Client) Registry(ctx context.Context, id mods.RepoID, path string) ([]RegistryEntry, error) {
	data, err := c.FetchFile(ctx, id, "HEAD", path)
	if err != nil {
		return nil, fmt.Errorf("fetch registry %s/%s: %w", id, path, err)
	}
	var entries []RegistryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode registry %s/%s: %w", id, path, err)
	}
	return entries, nil
}

// Fingerprint resolves the latest commit SHA of ref (a branch name, or
// "HEAD" for the default branch) along with its commit time. The SHA is
// the content fingerprint used for cache keys.
func (c *Client) Fingerprint(ctx context.Context, id mods.RepoID, ref string) (sha string, at time.Time, err error) {
	if ref == "" {
		ref = "HEAD"
	}
	u := fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.baseURL, id.Owner, id.Name, url.PathEscape(ref))
	var commit apiCommit
	if err := c.getJSON(ctx, u, &commit); err != nil {
		return "", time.Time{}, fmt.Errorf("fingerprint %s: %w", id, err)
	}
	return commit.SHA, commit.Commit.Committer.Date, nil
}

// FetchFile retrieves a file's raw bytes pinned at ref (a commit SHA,
// so the content is guaranteed to match the fingerprint being
// processed). Missing paths return [ErrNotFound].
func (c *Client) FetchFile(ctx context.Context, id mods.RepoID, ref, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, id.Owner, id.Name, path, url.QueryEscape(ref))
	var data []byte
	err := httputil.Retry(ctx, c.attempts, c.backoff, func() error {
		var err error
		data, err = c.do(ctx, u, acceptRaw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s@%s: %w", id, path, shortRef(ref), err)
	}
	return data, nil
}

// getJSON performs a GET with retries and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	var data []byte
	err := httputil.Retry(ctx, c.attempts, c.backoff, func() error {
		var err error
		data, err = c.do(ctx, url, acceptJSON)
		return err
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// do performs a single request attempt: wait out the quota if needed,
// issue the request, update quota bookkeeping, classify the status.
func (c *Client) do(ctx context.Context, url, accept string) ([]byte, error) {
	if err := c.limit.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("network error: %w", err)}
	}
	defer resp.Body.Close()

	c.limit.updateFromHeaders(resp.Header)

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || (code == http.StatusForbidden && rateLimited(resp)):
		after := retryAfter(resp)
		return &httputil.RetryAfterError{
			After: after,
			Err:   fmt.Errorf("rate limited: retry after %s", after),
		}
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("server error: status %d", code)}
	default:
		return fmt.Errorf("%w: status %d", ErrForbidden, code)
	}
}

// rateLimited distinguishes quota-exhaustion 403s from genuine
// permission failures.
func rateLimited(resp *http.Response) bool {
	return resp.Header.Get("Retry-After") != "" || resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// retryAfter reads the authoritative wait from the response, falling
// back to the quota reset timestamp, then to one minute.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				return d
			}
		}
	}
	return time.Minute
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}

// RepoIter iterates over repository search results one page at a time.
// Usage follows the scanner pattern:
//
//	it := client.Search("topic:mindustry-mod", 50)
//	for it.Next(ctx) {
//	    repo := it.Repo()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// Descriptors are yielded without a fingerprint; resolve it with
// [Client.Fingerprint] when the repository is actually processed, so
// pagination stays cheap.
type RepoIter struct {
	c       *Client
	query   string
	perPage int
	page    int
	buf     []mods.RepositoryDescriptor
	cur     mods.RepositoryDescriptor
	err     error
	done    bool
}

// Next advances to the next repository, fetching a page when the
// buffer is exhausted. It returns false at the end of results or on
// error; check [RepoIter.Err] afterwards.
func (it *RepoIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if len(it.buf) == 0 {
		if it.done {
			return false
		}
		if err := it.fetchPage(ctx); err != nil {
			it.err = err
			return false
		}
		if len(it.buf) == 0 {
			return false
		}
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

// Repo returns the descriptor produced by the last successful Next.
func (it *RepoIter) Repo() mods.RepositoryDescriptor { return it.cur }

// Err returns the first error encountered while paginating.
func (it *RepoIter) Err() error { return it.err }

func (it *RepoIter) fetchPage(ctx context.Context) error {
	u := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d&page=%d",
		it.c.baseURL, url.QueryEscape(it.query), it.perPage, it.page)

	var resp searchResponse
	if err := it.c.getJSON(ctx, u, &resp); err != nil {
		return fmt.Errorf("search page %d: %w", it.page, err)
	}

	it.buf = make([]mods.RepositoryDescriptor, 0, len(resp.Items))
	for _, item := range resp.Items {
		it.buf = append(it.buf, mods.RepositoryDescriptor{
			ID:            mods.RepoID{Owner: item.Owner.Login, Name: item.Name},
			DefaultBranch: item.DefaultBranch,
			Stars:         item.Stars,
			Description:   item.Description,
			PushedAt:      item.PushedAt,
			HTMLURL:       item.HTMLURL,
		})
	}
	if len(resp.Items) < it.perPage {
		it.done = true
	}
	it.page++
	return nil
}

// RegistryIter adapts a curated registry listing into the same
// iterator shape as [RepoIter], so the orchestrator is agnostic about
// the discovery source. Entries with malformed repository references
// are skipped.
type RegistryIter struct {
	entries []RegistryEntry
	cur     mods.RepositoryDescriptor
}

// NewRegistryIter creates an iterator over registry entries.
func NewRegistryIter(entries []RegistryEntry) *RegistryIter {
	return &RegistryIter{entries: entries}
}

// Next advances to the next well-formed registry entry.
func (it *RegistryIter) Next(_ context.Context) bool {
	for len(it.entries) > 0 {
		e := it.entries[0]
		it.entries = it.entries[1:]
		id, err := mods.ParseRepoID(e.Repo)
		if err != nil {
			continue
		}
		pushed, _ := time.Parse(time.RFC3339, e.LastUpdated)
		it.cur = mods.RepositoryDescriptor{
			ID:          id,
			Stars:       e.Stars,
			Description: e.Description,
			PushedAt:    pushed,
			HTMLURL:     "https://github.com/" + e.Repo,
		}
		return true
	}
	return false
}

// Repo returns the descriptor produced by the last successful Next.
func (it *RegistryIter) Repo() mods.RepositoryDescriptor { return it.cur }

// Err always returns nil; registry iteration is purely in-memory.
func (it *RegistryIter) Err() error { return nil }
