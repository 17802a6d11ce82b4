package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mindustry-mods/modlist/pkg/httputil"
	"github.com/mindustry-mods/modlist/pkg/mods"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient("test-token",
		WithBaseURL(serverURL),
		WithRetry(3, time.Millisecond),
	)
}

func writeSearchPage(w http.ResponseWriter, names ...string) {
	var resp searchResponse
	for _, n := range names {
		var item apiRepoItem
		item.Name = n
		item.Owner.Login = "acme"
		item.DefaultBranch = "master"
		item.Stars = 7
		resp.Items = append(resp.Items, item)
	}
	resp.TotalCount = len(resp.Items)
	json.NewEncoder(w).Encode(resp)
}

func TestSearch_Pagination(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			writeSearchPage(w, "first", "second")
		case "2":
			writeSearchPage(w, "third")
		default:
			writeSearchPage(w)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	it := c.Search("topic:mindustry-mod", 2)

	var got []string
	for it.Next(context.Background()) {
		got = append(got, it.Repo().ID.String())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}

	want := []string{"acme/first", "acme/second", "acme/third"}
	if len(got) != len(want) {
		t.Fatalf("got %d repos, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("repo[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// The short final page ends iteration without an extra request.
	if len(pages) != 2 {
		t.Errorf("expected 2 page fetches, got %v", pages)
	}
}

func TestSearch_AuthHeaderSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		writeSearchPage(w)
	}))
	defer server.Close()

	it := testClient(t, server.URL).Search("q", 10)
	for it.Next(context.Background()) {
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/cool-mod/commits/HEAD" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"sha":"abc123","commit":{"committer":{"date":"2020-03-18T16:35:29Z"}}}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	sha, at, err := c.Fingerprint(context.Background(), mods.RepoID{Owner: "acme", Name: "cool-mod"}, "")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if sha != "abc123" {
		t.Errorf("sha = %q, want abc123", sha)
	}
	if at.IsZero() {
		t.Error("commit time not parsed")
	}
}

func TestFetchFile_PinnedAtRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "abc123" {
			t.Errorf("ref = %q, want abc123", r.URL.Query().Get("ref"))
		}
		if got := r.Header.Get("Accept"); got != acceptRaw {
			t.Errorf("Accept = %q, want raw", got)
		}
		fmt.Fprint(w, "name: CoolMod\n")
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	data, err := c.FetchFile(context.Background(), mods.RepoID{Owner: "acme", Name: "cool-mod"}, "abc123", "mod.json")
	if err != nil {
		t.Fatalf("FetchFile failed: %v", err)
	}
	if string(data) != "name: CoolMod\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFetchFile_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.FetchFile(context.Background(), mods.RepoID{Owner: "a", Name: "b"}, "sha", "mod.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchFile_TransientRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	data, err := c.FetchFile(context.Background(), mods.RepoID{Owner: "a", Name: "b"}, "sha", "mod.json")
	if err != nil {
		t.Fatalf("expected recovery after 5xx, got %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("unexpected content %q", data)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchFile_TransientCeiling(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.FetchFile(context.Background(), mods.RepoID{Owner: "a", Name: "b"}, "sha", "mod.json")
	if err == nil {
		t.Fatal("expected failure after retry ceiling")
	}
	var re *httputil.RetryableError
	if !errors.As(err, &re) {
		t.Errorf("exhausted retries should surface as retryable (transient), got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRetryAfter_Honored(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	start := time.Now()
	_, err := c.FetchFile(context.Background(), mods.RepoID{Owner: "a", Name: "b"}, "sha", "mod.json")
	if err != nil {
		t.Fatalf("expected recovery after rate limit, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("client slept %v, want at least the Retry-After second", elapsed)
	}
}

func TestRateLimit_BlocksUntilReset(t *testing.T) {
	// First response reports an exhausted quota resetting shortly; the
	// client must not issue the second request before the reset time.
	reset := time.Now().Add(300 * time.Millisecond)
	var second time.Time
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix()+1, 10))
			fmt.Fprint(w, "first")
		default:
			second = time.Now()
			fmt.Fprint(w, "second")
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	id := mods.RepoID{Owner: "a", Name: "b"}
	ctx := context.Background()

	if _, err := c.FetchFile(ctx, id, "sha", "one"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if _, err := c.FetchFile(ctx, id, "sha", "two"); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	// Unix truncation means the effective reset is up to a second away;
	// the client must at least wait into the reset second.
	if second.Before(reset) {
		t.Errorf("second request at %v, before quota reset %v", second, reset)
	}
}

func TestRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"repo":"acme/cool-mod","name":"CoolMod","author":"acme","stars":25,
			 "lastUpdated":"2020-03-18T16:35:29Z","description":"a mod"},
			{"repo":"broken","name":"nope"}
		]`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	entries, err := c.Registry(context.Background(), mods.RepoID{Owner: "Anuken", Name: "MindustryMods"}, "mods.json")
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	it := NewRegistryIter(entries)
	var got []string
	for it.Next(context.Background()) {
		got = append(got, it.Repo().ID.String())
	}
	// The malformed "broken" reference is skipped.
	if len(got) != 1 || got[0] != "acme/cool-mod" {
		t.Errorf("unexpected descriptors %v", got)
	}
}

func TestValidateRepoID(t *testing.T) {
	tests := []struct {
		id      mods.RepoID
		wantErr bool
	}{
		{mods.RepoID{Owner: "acme", Name: "cool-mod"}, false},
		{mods.RepoID{Owner: "a1-b2", Name: "x.y_z"}, false},
		{mods.RepoID{Owner: "", Name: "repo"}, true},
		{mods.RepoID{Owner: "-bad", Name: "repo"}, true},
		{mods.RepoID{Owner: "owner", Name: ""}, true},
		{mods.RepoID{Owner: "owner", Name: "bad/name"}, true},
	}
	for _, tt := range tests {
		err := ValidateRepoID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRepoID(%v) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}
