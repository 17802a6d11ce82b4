// Package errors classifies crawl failures into a small machine-readable
// taxonomy. The class drives behavior elsewhere: transient failures are
// retryable, permanent ones are not, parse failures become negative
// cache entries, and store failures degrade to cache misses.
package errors

import (
	"context"
	stderrors "errors"

	"github.com/mindustry-mods/modlist/pkg/github"
	"github.com/mindustry-mods/modlist/pkg/httputil"
	"github.com/mindustry-mods/modlist/pkg/modfile"
	"github.com/mindustry-mods/modlist/pkg/store"
)

// Class is a machine-readable failure category.
type Class string

const (
	// ClassTransient covers network errors, 5xx responses, and rate
	// limiting: retrying later can succeed.
	ClassTransient Class = "transient"

	// ClassPermanent covers missing resources and denied access:
	// retrying the same request cannot succeed.
	ClassPermanent Class = "permanent"

	// ClassParse covers metadata extraction failures.
	ClassParse Class = "parse"

	// ClassStore covers cache read/write failures.
	ClassStore Class = "store"

	// ClassCanceled covers context cancellation and timeouts.
	ClassCanceled Class = "canceled"

	// ClassUnknown is everything else.
	ClassUnknown Class = "unknown"
)

// Classify maps an error to its failure class by unwrapping to the
// sentinel or type that produced it.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case isTransient(err):
		return ClassTransient
	case stderrors.Is(err, github.ErrNotFound), stderrors.Is(err, github.ErrForbidden):
		return ClassPermanent
	case stderrors.Is(err, modfile.ErrNoMetadata), stderrors.Is(err, modfile.ErrMalformed):
		return ClassParse
	case stderrors.Is(err, store.ErrCorrupt):
		return ClassStore
	default:
		return ClassUnknown
	}
}

func isTransient(err error) bool {
	var retryable *httputil.RetryableError
	var retryAfter *httputil.RetryAfterError
	return stderrors.As(err, &retryable) || stderrors.As(err, &retryAfter)
}
