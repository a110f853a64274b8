package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/krakend/docsearch-mcp/internal/config"
	"github.com/krakend/docsearch-mcp/internal/docset"
	"github.com/krakend/docsearch-mcp/internal/indexing"
	"github.com/krakend/docsearch-mcp/tools"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <index-dir> [payload...]",
		Short: "Build a search index directory from payloads",
		Long: `Build loads every payload given on the command line (or, when none is given,
every configured source) and writes the bleve index, the fragment snapshot
and the schema version file into index-dir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBuild,
	}
	cmd.Flags().Bool("force", false, "re-download remote sources even when the cache is fresh")
	cmd.Flags().String("base-url", "", "documentation site root for payloads given on the command line")
	return cmd
}

// payloadSources turns payload paths into sources named after their file stem
func payloadSources(paths []string, baseURL string) []config.Source {
	sources := make([]config.Source, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		sources = append(sources, config.Source{Name: name, Path: p, BaseURL: baseURL})
	}
	return sources
}

func runBuild(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	indexDir := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	baseURL, _ := cmd.Flags().GetString("base-url")

	sources := cfg.Sources
	if len(args) > 1 {
		sources = payloadSources(args[1:], baseURL)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleColor.Sprintf("Documentation Indexer v%d", indexing.IndexSchemaVersion))

	loader := &docset.Loader{
		CacheDir:    filepath.Join(cfg.ResolveDataDir(), "docs"),
		CacheTTL:    cfg.CacheTTL,
		Concurrency: cfg.Concurrency,
		Embedded:    tools.EmbeddedPayload,
	}
	loaded, err := loader.LoadAll(cmd.Context(), sources, force)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	for _, src := range loaded {
		fmt.Fprintf(out, "  %-16s %d fragments %s\n", src.Name, src.Index.Size(), dimColor.Sprintf("(%s)", src.Origin))
	}

	stats := docset.ComputeStats(docset.Docs(loaded))
	fmt.Fprintf(out, "%s Prepared %d documents (avg: %d tokens, %d oversized)\n",
		okColor.Sprint("✓"), stats.Documents, stats.AvgTokens, stats.Oversized)
	if stats.Oversized > 0 {
		fmt.Fprintln(out, warnColor.Sprintf("Warning: %d documents exceed %d tokens", stats.Oversized, indexing.MaxChunkTokens))
	}

	index, err := docset.WriteDir(indexDir, loaded)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if err := index.Close(); err != nil {
		log.Printf("Warning: Failed to close index: %v", err)
	}

	fmt.Fprintf(out, "%s Indexing complete in %v\n", okColor.Sprint("✓"), time.Since(startTime).Round(time.Millisecond))
	fmt.Fprintf(out, "  Location:       %s\n", indexDir)
	fmt.Fprintf(out, "  Schema version: v%d\n", indexing.IndexSchemaVersion)
	return nil
}
