// Package httputil provides retry helpers for the GitHub API client.
//
// Transient failures are signaled by wrapping errors in
// [RetryableError]; rate-limit responses carrying an authoritative
// Retry-After delay use [RetryAfterError]. [Retry] drives the attempt
// loop with exponential backoff and context cancellation.
package httputil
