package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete provenia configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Cache   CacheConfig   `yaml:"cache"`
	Resolve ResolveConfig `yaml:"resolve"`
	Wiki    WikiConfig    `yaml:"wiki"`
	Origins OriginsConfig `yaml:"origins"`
	LLM     LLMConfig     `yaml:"llm"`
	Output  OutputConfig  `yaml:"output"`
}

// HTTPConfig controls origin page fetching.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // per origin host
	Burst             int           `yaml:"burst"`
	RespectRobots     bool          `yaml:"respect_robots"`
	InsecureTLS       bool          `yaml:"insecure_tls"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty"`
}

// CacheConfig controls the fetched-page cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// ResolveConfig controls the disambiguation cache.
type ResolveConfig struct {
	Dir string `yaml:"dir"` // directory holding the three flat cache files
}

// WikiConfig points at the Wikibase instance being populated.
type WikiConfig struct {
	APIEndpoint string `yaml:"api_endpoint"`
	Language    string `yaml:"language"` // preferred label language
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"` // prefer PROVENIA_WIKI_PASSWORD over the file
}

// OriginsConfig controls the origin rule-table registry.
type OriginsConfig struct {
	Dir           string `yaml:"dir"` // extra YAML rule tables loaded at startup
	SkipSocial    bool   `yaml:"skip_social"`
	SparqlAgent   string `yaml:"sparql_agent"`
	SparqlTimeout int    `yaml:"sparql_timeout"`
}

// LLMConfig configures the optional disambiguation hint provider. Empty
// provider disables it; hints are advisory text in the prompt, never answers.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// OutputConfig controls operator-facing output.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".provenia")

	return &Config{
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Provenia/0.1 (+https://github.com/quelltext/provenia)",
			MaxBodyBytes:      4_000_000,
			RequestsPerSecond: 1,
			Burst:             3,
			RespectRobots:     true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(base, "pages"),
			TTL:     24 * time.Hour,
		},
		Resolve: ResolveConfig{
			Dir: base,
		},
		Wiki: WikiConfig{
			APIEndpoint: "https://www.wikidata.org/w/api.php",
			Language:    "en",
		},
		Origins: OriginsConfig{
			SkipSocial:    false,
			SparqlAgent:   "Provenia/0.1",
			SparqlTimeout: 60,
		},
	}
}
