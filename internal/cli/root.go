package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quelltext/provenia/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "provenia",
	Short: "Provenia - harvest catalog evidence into Wikibase claims",
	Long: `Provenia walks the external identifiers of a Wikibase entity, fetches the
catalog page behind each one, extracts structured facts with per-origin
pattern tables, and reconciles them against the entity's live claims.

Values already present get the catalog attached as a reference; genuinely
new values become claims after operator confirmation. Identifiers
discovered along the way join the work queue, so one VIAF id can unfold
into a dozen sourced catalogs in a single run.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("provenia v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.provenia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.provenia")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PROVENIA_*
	viper.SetEnvPrefix("PROVENIA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig layers the config file and environment over the defaults.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	stringKeys := map[string]*string{
		"wiki.api_endpoint":    &cfg.Wiki.APIEndpoint,
		"wiki.language":        &cfg.Wiki.Language,
		"wiki.username":        &cfg.Wiki.Username,
		"wiki.password":        &cfg.Wiki.Password,
		"http.user_agent":      &cfg.HTTP.UserAgent,
		"http.http_proxy":      &cfg.HTTP.HTTPProxy,
		"http.https_proxy":     &cfg.HTTP.HTTPSProxy,
		"cache.dir":            &cfg.Cache.Dir,
		"resolve.dir":          &cfg.Resolve.Dir,
		"origins.dir":          &cfg.Origins.Dir,
		"origins.sparql_agent": &cfg.Origins.SparqlAgent,
		"llm.provider":         &cfg.LLM.Provider,
		"llm.model":            &cfg.LLM.Model,
		"llm.base_url":         &cfg.LLM.BaseURL,
	}
	for key, target := range stringKeys {
		if viper.IsSet(key) {
			*target = viper.GetString(key)
		}
	}

	if viper.IsSet("http.timeout") {
		cfg.HTTP.Timeout = viper.GetDuration("http.timeout")
	}
	if viper.IsSet("http.requests_per_second") {
		cfg.HTTP.RequestsPerSecond = viper.GetFloat64("http.requests_per_second")
	}
	if viper.IsSet("http.respect_robots") {
		cfg.HTTP.RespectRobots = viper.GetBool("http.respect_robots")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	}
	if viper.IsSet("origins.skip_social") {
		cfg.Origins.SkipSocial = viper.GetBool("origins.skip_social")
	}

	// Secrets prefer the environment over the file.
	if password := os.Getenv("PROVENIA_WIKI_PASSWORD"); password != "" {
		cfg.Wiki.Password = password
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}

	cfg.Output.Verbose = verbose
	return cfg
}
