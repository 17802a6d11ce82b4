package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultQuery is the search used when neither the config file nor the
// --query flag provides one.
const DefaultQuery = "topic:mindustry-mod"

// Config is the crawler configuration, loaded from the TOML config file
// and overridden by environment variables and flags. The token is never
// logged or written anywhere.
type Config struct {
	// Token authenticates GitHub API requests. Environment variables
	// (MODLIST_GITHUB_TOKEN, then GITHUB_TOKEN) take precedence over
	// the config file.
	Token string `toml:"token"`

	// Query is the repository search expression.
	Query string `toml:"query"`

	// Registry is an optional curated listing source, "owner/name" or
	// "owner/name:path/to/mods.json".
	Registry string `toml:"registry"`

	// Workers bounds crawl concurrency.
	Workers int `toml:"workers"`

	// PerPage is the search page size (1-100).
	PerPage int `toml:"per_page"`

	// Output is the metadata artifact path.
	Output string `toml:"output"`

	// CacheDir overrides the default cache location (~/.cache/modlist).
	CacheDir string `toml:"cache_dir"`

	// Candidates overrides the metadata file paths probed per
	// repository.
	Candidates []string `toml:"candidates"`
}

// configPath returns the config file location using the XDG standard
// (~/.config/modlist/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadConfig reads the config file if present and applies environment
// overrides. A missing file is not an error; invalid TOML is.
func loadConfig() (Config, error) {
	var cfg Config

	path, err := configPath()
	if err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if tok := os.Getenv("MODLIST_GITHUB_TOKEN"); tok != "" {
		cfg.Token = tok
	} else if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		cfg.Token = tok
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	return cfg, nil
}

// validateForCrawl checks that a crawl can actually start. These are
// configuration failures: they abort before any network or cache work.
func (cfg Config) validateForCrawl() error {
	if cfg.Token == "" {
		return errors.New("no GitHub token configured: set MODLIST_GITHUB_TOKEN, GITHUB_TOKEN, or token in the config file")
	}
	if cfg.Query == "" && cfg.Registry == "" {
		return errors.New("nothing to crawl: configure a search query or a registry")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}
