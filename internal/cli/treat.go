package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quelltext/provenia/internal/cache"
	"github.com/quelltext/provenia/internal/console"
	"github.com/quelltext/provenia/internal/llm"
	"github.com/quelltext/provenia/internal/merge"
	"github.com/quelltext/provenia/internal/model"
	"github.com/quelltext/provenia/internal/origins"
	"github.com/quelltext/provenia/internal/pipeline"
	"github.com/quelltext/provenia/internal/resolve"
	"github.com/quelltext/provenia/internal/sparql"
	"github.com/quelltext/provenia/internal/util"
	"github.com/quelltext/provenia/internal/wiki"
	"github.com/quelltext/provenia/internal/worker"
)

var (
	restrict    string
	always      bool
	batch       bool
	skipSocial  bool
	noCache     bool
	timeout     time.Duration
	userAgent   string
	insecureTLS bool
)

// treatCmd represents the treat command
var treatCmd = &cobra.Command{
	Use:   "treat <entity-id>...",
	Short: "Harvest catalog origins for one or more entities",
	Long: `Treat processes each entity in order: every external identifier on it is
routed to its origin rule table, the catalog page is fetched, facts are
extracted and merged back into the entity's claims.

The --restrict flag narrows a run to one property: "P214" processes only
that field, "P214+" continues into everything discovered after it, and
"P214*" skips the field itself but still follows what it uncovers.

Example:
  provenia treat Q42
  provenia treat Q42 --restrict P214+ --always
  provenia treat Q42 Q1339 --batch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTreat,
}

func init() {
	rootCmd.AddCommand(treatCmd)

	treatCmd.Flags().StringVar(&restrict, "restrict", "", "restrict the run to one property (P123, P123+ or P123*)")
	treatCmd.Flags().BoolVar(&always, "always", false, "create claims without per-origin confirmation")
	treatCmd.Flags().BoolVar(&batch, "batch", false, "non-interactive run: no prompts, unknown values stay unresolved")
	treatCmd.Flags().BoolVar(&skipSocial, "skip-social", false, "ignore social media cross references")
	treatCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetches)")
	treatCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request HTTP timeout")
	treatCmd.Flags().StringVar(&userAgent, "ua", "", "override the HTTP User-Agent")
	treatCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification")
}

func runTreat(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.InsecureTLS = insecureTLS
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if skipSocial {
		cfg.Origins.SkipSocial = true
	}

	var ui console.Interactor
	if batch {
		ui = &console.Silent{Accept: always}
	} else {
		ui = console.NewTerminal()
	}

	store := resolve.NewStore(cfg.Resolve.Dir, ui)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load disambiguation cache: %w", err)
	}
	defer func() {
		if err := store.Persist(); err != nil {
			fmt.Fprintf(os.Stderr, "persist disambiguation cache: %v\n", err)
		}
	}()

	if cfg.LLM.Provider != "" {
		hinter, err := llm.NewHinter(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hint provider disabled: %v\n", err)
		} else {
			store.SetHinter(hinter)
		}
	}

	client := wiki.NewClient(cfg.Wiki.APIEndpoint, cfg.HTTP.UserAgent,
		cfg.Wiki.Username, cfg.Wiki.Password, cfg.Wiki.Language, cfg.HTTP.Timeout)
	store.SetLabelFunc(client.Label)

	registry := origins.NewRegistry(cfg.Origins.SkipSocial)
	if cfg.Origins.Dir != "" {
		if err := origins.LoadDir(registry, cfg.Origins.Dir); err != nil {
			return fmt.Errorf("load origin tables: %w", err)
		}
	}

	fetcher := pipeline.NewFetcher(buildFetchOptions(cfg))

	engine := merge.NewEngine(
		client,
		fetcher,
		sparql.NewClient(cfg.Origins.SparqlAgent),
		registry,
		store,
		ui,
		always,
		cfg.Output.Verbose,
	)

	return treatAll(context.Background(), engine, args, restrict, cfg.Output.Verbose)
}

// processor is the slice of the merge engine the treat loop drives.
type processor interface {
	Process(ctx context.Context, entityID, restrict string) error
}

// treatAll processes the entities in order. A failure aborts only the
// entity it happened on; the remaining ones still run.
func treatAll(ctx context.Context, engine processor, ids []string, restrict string, verbose bool) error {
	var failed []string
	for _, entityID := range ids {
		if verbose {
			fmt.Fprintf(os.Stderr, "Treating %s\n", entityID)
		}
		if err := engine.Process(ctx, entityID, restrict); err != nil {
			fmt.Fprintf(os.Stderr, "treat %s: %v\n", entityID, err)
			failed = append(failed, entityID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d entities failed: %s", len(failed), len(ids), strings.Join(failed, ", "))
	}
	return nil
}

func buildFetchOptions(cfg *model.Config) pipeline.Options {
	opts := pipeline.Options{
		Timeout:     cfg.HTTP.Timeout,
		UserAgent:   cfg.HTTP.UserAgent,
		MaxBytes:    cfg.HTTP.MaxBodyBytes,
		CacheTTL:    cfg.Cache.TTL,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		InsecureTLS: cfg.HTTP.InsecureTLS,
		Limiter:     worker.NewLimiter(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst),
	}
	if cfg.Cache.Enabled {
		opts.Cache = cache.NewLayered(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}
	if cfg.HTTP.RespectRobots {
		opts.Robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	return opts
}
