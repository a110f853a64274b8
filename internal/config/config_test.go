package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.False(t, cfg.Watch.Enabled)
	assert.Empty(t, cfg.Sources)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/docsearch
cache_ttl: 24h
max_results: 5
http:
  addr: 127.0.0.1:9000
watch:
  enabled: true
  debounce: 250ms
sources:
  - name: stable
    url: https://example.org/docs/stable/search_index.js
    base_url: https://example.org/docs/stable/
  - name: local
    path: ./build/search_index.js
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docsearch", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 4, cfg.Concurrency, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)

	require.Len(t, cfg.Sources, 2)
	assert.True(t, cfg.Sources[0].IsRemote())
	assert.False(t, cfg.Sources[1].IsRemote())
	assert.Equal(t, "https://example.org/docs/stable/", cfg.Sources[0].BaseURL)

	src, ok := cfg.Source("local")
	require.True(t, ok)
	assert.Equal(t, "./build/search_index.js", src.Path)

	_, ok = cfg.Source("missing")
	assert.False(t, ok)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeConfig(t, "sources: [unclosed")
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/docsearch")
	t.Setenv(EnvCacheTTL, "1h")
	t.Setenv(EnvMaxResults, "3")
	t.Setenv(EnvConcurrency, "not-a-number")
	t.Setenv(EnvHTTPAddr, ":7000")
	t.Setenv(EnvWatch, "true")
	t.Setenv(EnvWatchDebounce, "2s")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/docsearch", cfg.DataDir)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxResults)
	assert.Equal(t, 4, cfg.Concurrency, "invalid values fall back")
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoad(t *testing.T) {
	t.Run("file from environment", func(t *testing.T) {
		path := writeConfig(t, "max_results: 7\n")
		t.Setenv(EnvConfigFile, path)
		t.Setenv(EnvMaxResults, "")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.MaxResults)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := writeConfig(t, "max_results: 7\n")
		t.Setenv(EnvMaxResults, "2")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxResults)
	})

	t.Run("invalid file content", func(t *testing.T) {
		path := writeConfig(t, "max_results: 0\n")
		t.Setenv(EnvMaxResults, "")

		_, err := Load(path)
		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "embedded default",
			mutate: func(*Config) {},
		},
		{
			name: "local and remote sources",
			mutate: func(c *Config) {
				c.Sources = []Source{
					{Name: "stable", URL: "https://example.org/search_index.js"},
					{Name: "dev", Path: "search_index.js"},
				}
			},
		},
		{
			name:    "empty name",
			mutate:  func(c *Config) { c.Sources = []Source{{Path: "a.js"}} },
			wantErr: "name is required",
		},
		{
			name: "duplicate name",
			mutate: func(c *Config) {
				c.Sources = []Source{{Name: "a", Path: "a.js"}, {Name: "a", Path: "b.js"}}
			},
			wantErr: "duplicate name",
		},
		{
			name:    "neither url nor path",
			mutate:  func(c *Config) { c.Sources = []Source{{Name: "a"}} },
			wantErr: "exactly one of url or path",
		},
		{
			name: "both url and path",
			mutate: func(c *Config) {
				c.Sources = []Source{{Name: "a", Path: "a.js", URL: "https://example.org/a.js"}}
			},
			wantErr: "exactly one of url or path",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.CacheTTL = 0 },
			wantErr: "cache_ttl",
		},
		{
			name:    "non-positive max results",
			mutate:  func(c *Config) { c.MaxResults = -1 },
			wantErr: "max_results",
		},
		{
			name:    "non-positive concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name: "watch without debounce",
			mutate: func(c *Config) {
				c.Watch.Enabled = true
				c.Watch.Debounce = 0
			},
			wantErr: "watch.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		cfg := DefaultConfig()
		cfg.DataDir = dir

		assert.Equal(t, dir, cfg.ResolveDataDir())
		assert.DirExists(t, filepath.Join(dir, "docs"))
		assert.DirExists(t, filepath.Join(dir, "search"))
	})

	t.Run("user home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)

		cfg := DefaultConfig()
		got := cfg.ResolveDataDir()

		assert.Equal(t, filepath.Join(home, ".docsearch-mcp"), got)
		assert.Equal(t, got, cfg.DataDir)
		assert.DirExists(t, filepath.Join(got, "search"))
	})
}
