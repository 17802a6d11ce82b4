// Package cli implements the modlist command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mindustry-mods/modlist/pkg/buildinfo"
	"github.com/mindustry-mods/modlist/pkg/crawl"
	"github.com/mindustry-mods/modlist/pkg/github"
	"github.com/mindustry-mods/modlist/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "modlist"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. Every subcommand's context carries the CLI logger, so
// helpers below the command layer retrieve it with loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "Modlist crawls GitHub for Mindustry mod metadata",
		Long:         `Modlist discovers mod repositories on GitHub, extracts their metadata from manifests and READMEs, and publishes a versioned mod listing. Unchanged repositories are served from a local cache keyed by commit SHA.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	}

	root.AddCommand(c.crawlCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand creates the version command.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildinfo.String())
		},
	}
}

// newRunner creates a crawl runner backed by the on-disk cache, or by a
// null store when caching is disabled.
func newRunner(client *github.Client, noCache bool, logger *log.Logger) (*crawl.Runner, func(), error) {
	st, closeStore, err := newStore(noCache, logger)
	if err != nil {
		return nil, nil, err
	}
	return crawl.NewRunner(st, client, logger), closeStore, nil
}

func newStore(noCache bool, logger *log.Logger) (store.Store, func(), error) {
	if noCache {
		return store.Null{}, func() {}, nil
	}
	dir, err := resolveCacheDir()
	if err != nil {
		logger.Warn("cache directory unavailable, caching disabled for this run", "err", err)
		return store.Null{}, func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	db, err := store.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// resolveCacheDir returns the configured cache directory, falling back
// to the XDG default.
func resolveCacheDir() (string, error) {
	if cfg, err := loadConfig(); err == nil && cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/modlist/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
