package crawl

import (
	"context"
	"time"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

// Hooks receives progress events during a crawl pass. Implementations
// must be safe for concurrent use; workers call them in parallel. The
// CLI uses hooks to drive its progress display without the orchestrator
// knowing anything about terminals.
type Hooks interface {
	// OnRepoStart fires when a worker picks up a repository.
	OnRepoStart(ctx context.Context, id mods.RepoID)

	// OnCacheHit fires when a fingerprint is served from the store.
	OnCacheHit(ctx context.Context, id mods.RepoID, fingerprint string)

	// OnCacheMiss fires before a repository's files are fetched.
	OnCacheMiss(ctx context.Context, id mods.RepoID, fingerprint string)

	// OnRepoDone fires with the repository's final catalog entry.
	OnRepoDone(ctx context.Context, entry mods.Entry, elapsed time.Duration)
}

// NopHooks is the default no-op Hooks implementation.
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) OnRepoStart(context.Context, mods.RepoID) {}

func (NopHooks) OnCacheHit(context.Context, mods.RepoID, string) {}

func (NopHooks) OnCacheMiss(context.Context, mods.RepoID, string) {}

func (NopHooks) OnRepoDone(context.Context, mods.Entry, time.Duration) {}
