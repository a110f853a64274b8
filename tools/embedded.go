package tools

import (
	"embed"
)

// Embed the default search index payload into the binary
// This ensures the MCP server works standalone without any configured
// documentation source or network access.

//go:embed data/search_index.js
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS.
// This is the production implementation that uses actual embedded files.
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a production DataProvider that uses embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

// ReadFile reads the named file from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

// Default provider used by package-level functions
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()

// EmbeddedPayload returns the built-in search index payload
func EmbeddedPayload() ([]byte, error) {
	return defaultDataProvider.ReadFile(embeddedPayload)
}
