package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindustry-mods/modlist/pkg/store"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the crawl metadata cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand. With a
// repository argument it lists that repository's cached fingerprints.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [owner/name]",
		Short: "Summarize cached entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			db, err := store.Open(dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer db.Close()

			if len(args) == 1 {
				return printRepoHistory(cmd, db, args[0])
			}

			stats, err := db.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printKeyValue("entries", fmt.Sprintf("%d", stats.Entries))
			printKeyValue("repositories", fmt.Sprintf("%d", stats.Repos))
			printKeyValue("negatives", fmt.Sprintf("%d", stats.Negatives))
			printDetail("directory: %s", dir)
			return nil
		},
	}
}

func printRepoHistory(cmd *cobra.Command, db *store.DB, repo string) error {
	history, err := db.History(cmd.Context(), repo)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		printInfo("No cached entries for %s", repo)
		return nil
	}
	printInfo("%s: %d cached fingerprints", repo, len(history))
	for _, v := range history {
		printDetail("%s  %s  (%s)", v.Fingerprint, v.Entry.Outcome, v.Entry.StoredAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cache cleared")
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}
