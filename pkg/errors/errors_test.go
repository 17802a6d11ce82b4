package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/mindustry-mods/modlist/pkg/github"
	"github.com/mindustry-mods/modlist/pkg/httputil"
	"github.com/mindustry-mods/modlist/pkg/modfile"
	"github.com/mindustry-mods/modlist/pkg/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"retryable", &httputil.RetryableError{Err: stderrors.New("status 503")}, ClassTransient},
		{"rate limited", &httputil.RetryAfterError{After: time.Minute, Err: stderrors.New("rate limited")}, ClassTransient},
		{"wrapped retryable", fmt.Errorf("fetch: %w", &httputil.RetryableError{Err: stderrors.New("boom")}), ClassTransient},
		{"not found", fmt.Errorf("fetch: %w", github.ErrNotFound), ClassPermanent},
		{"forbidden", github.ErrForbidden, ClassPermanent},
		{"no metadata", fmt.Errorf("parse: %w", modfile.ErrNoMetadata), ClassParse},
		{"malformed", modfile.ErrMalformed, ClassParse},
		{"corrupt entry", fmt.Errorf("get: %w", store.ErrCorrupt), ClassStore},
		{"canceled", context.Canceled, ClassCanceled},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), ClassCanceled},
		{"plain", stderrors.New("something else"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
