package cli

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindustry-mods/modlist/pkg/crawl"
	"github.com/mindustry-mods/modlist/pkg/export"
	"github.com/mindustry-mods/modlist/pkg/github"
	"github.com/mindustry-mods/modlist/pkg/mods"
)

// crawlCommand creates the crawl command: discover repositories, extract
// metadata, and write the listing artifacts.
func (c *CLI) crawlCommand() *cobra.Command {
	var (
		query    string
		registry string
		workers  int
		output   string
		listing  string
		perPage  int
		refresh  bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl GitHub and build the mod metadata listing",
		Long: `Crawl discovers mod repositories (by search query or curated registry),
fingerprints each one by its latest commit, and extracts metadata from
mod.json, mod.hjson, or the README. Repositories whose fingerprint is
already cached are not re-fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if query != "" {
				cfg.Query = query
			}
			if registry != "" {
				cfg.Registry = registry
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			if output != "" {
				cfg.Output = output
			}
			if perPage > 0 {
				cfg.PerPage = perPage
			}
			if err := cfg.validateForCrawl(); err != nil {
				return err
			}

			return c.runCrawl(cmd.Context(), cfg, crawlFlags{
				listing: listing,
				refresh: refresh,
				noCache: noCache,
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", fmt.Sprintf("repository search query (default %q)", DefaultQuery))
	cmd.Flags().StringVar(&registry, "registry", "", "curated listing source, owner/name[:path]")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, fmt.Sprintf("crawl concurrency (default %d)", crawl.DefaultWorkers))
	cmd.Flags().StringVarP(&output, "output", "o", "", fmt.Sprintf("metadata artifact path (default %s)", export.ArtifactName()))
	cmd.Flags().StringVar(&listing, "listing", "", "also write the compact registry listing to this path")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "search results per page (1-100, default 50)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-fetch every repository, ignoring cached fingerprints")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the on-disk cache entirely")

	return cmd
}

type crawlFlags struct {
	listing string
	refresh bool
	noCache bool
}

func (c *CLI) runCrawl(ctx context.Context, cfg Config, flags crawlFlags) error {
	logger := loggerFromContext(ctx)
	client := github.NewClient(cfg.Token)

	source, err := newSource(ctx, client, cfg)
	if err != nil {
		return err
	}

	runner, closeStore, err := newRunner(client, flags.noCache, logger)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer closeStore()

	spinner := newSpinnerWithContext(ctx, "Crawling repositories...")
	spinner.Start()
	result, err := runner.Run(ctx, source, crawl.Options{
		Workers:    cfg.Workers,
		Refresh:    flags.refresh,
		Candidates: cfg.Candidates,
		Hooks:      &spinnerHooks{spinner: spinner},
	})
	switch {
	case err != nil && (result == nil || len(result.Catalog) == 0):
		spinner.StopWithError("Crawl failed")
		return err
	case err != nil:
		spinner.Stop()
		if spinner.Cancelled() {
			printWarning("Crawl interrupted; writing partial results")
		} else {
			printWarning("Crawl ended early: %v", err)
		}
	default:
		spinner.StopWithSuccess(fmt.Sprintf("Processed %d repositories in %s",
			result.Summary.Processed, result.Elapsed.Round(time.Millisecond)))
	}

	printSummary(result)

	if err := export.ExportJSON(result.Catalog, result.RunID, cfg.Output); err != nil {
		return err
	}
	artifact := cfg.Output
	if artifact == "" {
		artifact = export.ArtifactName()
	}
	printFile(artifact)

	if flags.listing != "" {
		if err := export.ExportListing(result.Catalog, flags.listing); err != nil {
			return err
		}
		printFile(flags.listing)
	}
	return nil
}

// newSource builds the discovery source: a curated registry when
// configured, otherwise repository search.
func newSource(ctx context.Context, client *github.Client, cfg Config) (crawl.RepoSource, error) {
	logger := loggerFromContext(ctx)
	if cfg.Registry == "" {
		logger.Debug("discovering via search", "query", cfg.Query)
		return client.Search(cfg.Query, cfg.PerPage), nil
	}

	ref, path, ok := strings.Cut(cfg.Registry, ":")
	if !ok {
		path = "mods.json"
	}
	id, err := mods.ParseRepoID(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %q: %w", cfg.Registry, err)
	}
	if err := github.ValidateRepoID(id); err != nil {
		return nil, fmt.Errorf("invalid registry %q: %w", cfg.Registry, err)
	}

	p := newProgress(logger)
	entries, err := client.Registry(ctx, id, path)
	if err != nil {
		return nil, err
	}
	p.done(fmt.Sprintf("Loaded registry %s (%d entries)", id, len(entries)))
	return github.NewRegistryIter(entries), nil
}

// spinnerHooks drives the progress spinner from crawl events.
type spinnerHooks struct {
	spinner *Spinner
	done    atomic.Int64
	hits    atomic.Int64
}

func (h *spinnerHooks) OnRepoStart(context.Context, mods.RepoID) {}

func (h *spinnerHooks) OnCacheHit(_ context.Context, _ mods.RepoID, _ string) {
	h.hits.Add(1)
}

func (h *spinnerHooks) OnCacheMiss(context.Context, mods.RepoID, string) {}

func (h *spinnerHooks) OnRepoDone(_ context.Context, _ mods.Entry, _ time.Duration) {
	done := h.done.Add(1)
	h.spinner.SetMessage(fmt.Sprintf("Crawling repositories... %d done, %d cached", done, h.hits.Load()))
}

// printSummary renders the run report.
func printSummary(result *crawl.Result) {
	s := result.Summary
	printKeyValue("processed", fmt.Sprintf("%d", s.Processed))
	printKeyValue("parsed", fmt.Sprintf("%d (%d partial)", s.Parsed+s.Partial, s.Partial))
	printKeyValue("cached", fmt.Sprintf("%d", s.CacheHits))
	printKeyValue("no metadata", fmt.Sprintf("%d", s.Negative))
	if s.Failures > 0 {
		printKeyValue("failures", StyleWarning.Render(fmt.Sprintf("%d", s.Failures)))
	}
	printDetail("run %s", result.RunID)
}
