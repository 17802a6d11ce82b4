package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultRateLimitThreshold is the remaining-quota floor below which
// the client blocks until the quota window resets.
const DefaultRateLimitThreshold = 2

// RateLimit tracks the API quota shared by every request a Client
// issues, across all crawl workers. It is a single remaining counter
// plus reset timestamp guarded by one mutex, so concurrent workers
// neither overrun the quota nor wait redundantly.
type RateLimit struct {
	mu        sync.Mutex
	remaining int // -1 until the first response is seen
	reset     time.Time
	threshold int
	now       func() time.Time
}

func newRateLimit(threshold int) *RateLimit {
	return &RateLimit{
		remaining: -1,
		threshold: threshold,
		now:       time.Now,
	}
}

// wait blocks until the quota window resets if the tracked remaining
// count is at or below the threshold. After sleeping, the counter is
// marked unknown so workers don't pile up on a stale value.
func (rl *RateLimit) wait(ctx context.Context) error {
	rl.mu.Lock()
	low := rl.remaining >= 0 && rl.remaining <= rl.threshold
	reset := rl.reset
	rl.mu.Unlock()

	if !low {
		return nil
	}
	delay := reset.Sub(rl.now())
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	rl.mu.Lock()
	if rl.reset.Equal(reset) {
		rl.remaining = -1
	}
	rl.mu.Unlock()
	return nil
}

// update records the quota state reported by a response.
func (rl *RateLimit) update(remaining int, reset time.Time) {
	rl.mu.Lock()
	rl.remaining = remaining
	rl.reset = reset
	rl.mu.Unlock()
}

// Snapshot returns the last observed remaining count and reset time.
// Remaining is -1 if no response has been seen yet.
func (rl *RateLimit) Snapshot() (remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.remaining, rl.reset
}

// updateFromHeaders reads the standard X-RateLimit-* headers, ignoring
// responses that don't carry them (raw content hosts, proxies). A
// response without a reset header keeps the reset last seen, so the
// whole read-modify-write runs under the mutex.
func (rl *RateLimit) updateFromHeaders(h http.Header) {
	rem := h.Get("X-RateLimit-Remaining")
	if rem == "" {
		return
	}
	remaining, err := strconv.Atoi(rem)
	if err != nil {
		return
	}
	var reset time.Time
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			reset = time.Unix(epoch, 0)
		}
	}

	rl.mu.Lock()
	rl.remaining = remaining
	if !reset.IsZero() {
		rl.reset = reset
	}
	rl.mu.Unlock()
}
