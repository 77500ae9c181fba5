package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quelltext/provenia/internal/cache"
	"github.com/quelltext/provenia/internal/console"
	"github.com/quelltext/provenia/internal/resolve"
)

var clearResolve bool

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the local caches",
	Long: `Provenia keeps two kinds of local state: the page cache of fetched
catalog pages, and the disambiguation cache of operator decisions
(labels.txt, values.txt, skips.txt). The page cache is disposable; the
disambiguation cache is accumulated operator work, so clearing it needs
an explicit flag.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		pages := cache.NewDisk(cfg.Cache.Dir, cfg.Cache.TTL)
		fmt.Printf("page cache:            %d entries (%s)\n", pages.Count(), cfg.Cache.Dir)

		store := resolve.NewStore(cfg.Resolve.Dir, &console.Silent{})
		if err := store.Load(); err != nil {
			return fmt.Errorf("load disambiguation cache: %w", err)
		}
		labels, values, skips := store.Stats()
		fmt.Printf("resolved values:       %d\n", values)
		fmt.Printf("cached labels:         %d\n", labels)
		fmt.Printf("permanently skipped:   %d\n", skips)

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the page cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		pages := cache.NewDisk(cfg.Cache.Dir, cfg.Cache.TTL)
		if err := pages.Clear(); err != nil {
			return fmt.Errorf("clear page cache: %w", err)
		}
		fmt.Println("page cache cleared")

		if clearResolve {
			store := resolve.NewStore(cfg.Resolve.Dir, &console.Silent{})
			store.Clear()
			if err := store.Persist(); err != nil {
				return fmt.Errorf("clear disambiguation cache: %w", err)
			}
			fmt.Println("disambiguation cache cleared")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&clearResolve, "resolve", false, "also clear the disambiguation cache (operator decisions)")
}
