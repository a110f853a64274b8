// Package config provides configuration loading for the documentation search server.
//
// Values are layered: DefaultConfig, then an optional YAML file, then
// DOCSEARCH_* environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by ApplyEnv and Load.
const (
	EnvConfigFile    = "DOCSEARCH_CONFIG"
	EnvDataDir       = "DOCSEARCH_DATA_DIR"
	EnvCacheTTL      = "DOCSEARCH_CACHE_TTL"
	EnvMaxResults    = "DOCSEARCH_MAX_RESULTS"
	EnvConcurrency   = "DOCSEARCH_CONCURRENCY"
	EnvHTTPAddr      = "DOCSEARCH_HTTP_ADDR"
	EnvWatch         = "DOCSEARCH_WATCH"
	EnvWatchDebounce = "DOCSEARCH_WATCH_DEBOUNCE"
)

// EmbeddedSourceName names the built-in payload used when no source is configured.
const EmbeddedSourceName = "default"

// Config represents the complete server configuration
type Config struct {
	// DataDir holds downloaded payloads and the search index (discovered when empty)
	DataDir string `yaml:"data_dir"`
	// CacheTTL is the age after which remote payloads are considered stale
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// MaxResults caps the number of search hits returned per query
	MaxResults int `yaml:"max_results"`
	// Concurrency bounds how many sources load in parallel
	Concurrency int `yaml:"concurrency"`

	HTTP    HTTPConfig  `yaml:"http"`
	Watch   WatchConfig `yaml:"watch"`
	Sources []Source    `yaml:"sources"`
}

// HTTPConfig configures the REST API
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig configures live reload of local payload files
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Source is one search index payload. Exactly one of URL and Path is set.
type Source struct {
	Name string `yaml:"name"`
	// URL of a remote search_index.js, cached under DataDir
	URL string `yaml:"url"`
	// Path of a local payload file
	Path string `yaml:"path"`
	// BaseURL is the documentation site root used to build absolute links
	BaseURL string `yaml:"base_url"`
}

// IsRemote reports whether the source is downloaded.
func (s Source) IsRemote() bool { return s.URL != "" }

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:    7 * 24 * time.Hour, // 7 days
		MaxResults:  10,
		Concurrency: 4,
		HTTP: HTTPConfig{
			Addr: ":8090",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load builds the configuration from path (or $DOCSEARCH_CONFIG when path is
// empty), applies environment overrides and validates the result
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from DOCSEARCH_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	c.DataDir = envOr(EnvDataDir, c.DataDir)
	c.CacheTTL = envDuration(EnvCacheTTL, c.CacheTTL)
	c.MaxResults = envInt(EnvMaxResults, c.MaxResults)
	c.Concurrency = envInt(EnvConcurrency, c.Concurrency)
	c.HTTP.Addr = envOr(EnvHTTPAddr, c.HTTP.Addr)
	c.Watch.Enabled = envBool(EnvWatch, c.Watch.Enabled)
	c.Watch.Debounce = envDuration(EnvWatchDebounce, c.Watch.Debounce)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, src.Name)
		}
		seen[src.Name] = true

		if (src.URL == "") == (src.Path == "") {
			return fmt.Errorf("sources[%d] (%s): exactly one of url or path is required", i, src.Name)
		}
	}
	return nil
}

// Source returns the source named name
func (c *Config) Source(name string) (Source, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

// ResolveDataDir picks the data directory and creates it.
//
// Priority: configured DataDir, then ~/.docsearch-mcp, then ./data.
func (c *Config) ResolveDataDir() string {
	if c.DataDir != "" {
		if err := ensureLayout(c.DataDir); err != nil {
			log.Printf("Warning: Could not create data directory at %s: %v", c.DataDir, err)
		} else {
			log.Printf("✓ Data directory: %s (configured)", c.DataDir)
		}
		return c.DataDir
	}

	// Strategy 1: user home directory
	// ~/.docsearch-mcp/ on Unix, C:\Users\...\.docsearch-mcp\ on Windows
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userDataDir := filepath.Join(homeDir, ".docsearch-mcp")
		if err := ensureLayout(userDataDir); err == nil {
			c.DataDir = userDataDir
			log.Printf("✓ Data directory: %s (user home)", c.DataDir)
			return c.DataDir
		}
		log.Printf("Warning: Could not create user data directory at %s: %v", userDataDir, err)
	} else {
		log.Printf("Warning: Could not determine user home directory: %v", err)
	}

	// Strategy 2: last resort fallback to current working directory
	c.DataDir = filepath.Join(".", "data")
	log.Printf("⚠️  Data directory (fallback): %s", c.DataDir)
	ensureLayout(c.DataDir)
	return c.DataDir
}

// ensureLayout creates dir with its docs/ and search/ subdirectories
func ensureLayout(dir string) error {
	for _, sub := range []string{"docs", "search"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
