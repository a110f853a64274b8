package docset

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/krakend/docsearch-mcp/internal/config"
	"github.com/krakend/docsearch-mcp/internal/indexing"
)

// On-disk layout of a built document set directory
const (
	IndexDirName     = "index"
	SnapshotFileName = "fragments.mp"
	VersionFileName  = ".index_version"
)

// Docs converts every fragment of every source into search documents
func Docs(sources []Source) []indexing.SearchDoc {
	var docs []indexing.SearchDoc
	for _, src := range sources {
		docs = append(docs, indexing.BuildDocs(src.Name, src.BaseURL, src.Index)...)
	}
	return docs
}

// BuildMem indexes sources into an in-memory bleve index
func BuildMem(sources []Source) (bleve.Index, error) {
	return indexing.BuildIndex("", Docs(sources))
}

// Stats summarises the documents built from a set of sources
type Stats struct {
	Documents int
	AvgTokens int
	Oversized int
}

// ComputeStats reports document count, average size and documents over MaxChunkTokens
func ComputeStats(docs []indexing.SearchDoc) Stats {
	st := Stats{Documents: len(docs)}
	if len(docs) == 0 {
		return st
	}
	total := 0
	for _, doc := range docs {
		total += doc.TokenCount
		if doc.TokenCount > indexing.MaxChunkTokens {
			st.Oversized++
		}
	}
	st.AvgTokens = total / len(docs)
	return st
}

// WriteDir builds the bleve index of sources under dir, next to a fragment
// snapshot and a schema version file, and returns the opened index.
//
// The index is built in a temporary directory and renamed into place, so a
// crash never leaves a half-written index behind.
func WriteDir(dir string, sources []Source) (bleve.Index, error) {
	startTime := time.Now()
	indexPath := filepath.Join(dir, IndexDirName)
	tempIndexPath := indexPath + ".tmp"

	// Clean up any leftover temp index from previous crash
	os.RemoveAll(tempIndexPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	docs := Docs(sources)
	st := ComputeStats(docs)
	log.Printf("Indexing %d documents from %d sources (avg: %d tokens, %d over limit)...",
		st.Documents, len(sources), st.AvgTokens, st.Oversized)

	indexStart := time.Now()
	newIndex, err := indexing.BuildIndex(tempIndexPath, docs)
	if err != nil {
		os.RemoveAll(tempIndexPath)
		return nil, err
	}
	log.Printf("Indexed %d documents in %v", len(docs), time.Since(indexStart).Round(time.Millisecond))

	// Close temp index before moving
	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempIndexPath)
		return nil, fmt.Errorf("failed to close temp index: %w", err)
	}

	if err := os.RemoveAll(indexPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempIndexPath)
		return nil, fmt.Errorf("failed to remove old index: %w", err)
	}

	// Rename temp to final location (atomic operation on POSIX)
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return nil, fmt.Errorf("failed to rename temp index: %w", err)
	}

	snap := &indexing.Snapshot{}
	for _, src := range sources {
		ss := indexing.NewSourceSnapshot(src.Name, src.BaseURL, src.Index)
		ss.UpdatedAt = src.UpdatedAt
		snap.Sources = append(snap.Sources, ss)
	}
	if err := indexing.WriteSnapshot(filepath.Join(dir, SnapshotFileName), snap); err != nil {
		return nil, err
	}

	if err := writeVersion(dir); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}

	finalIndex, err := bleve.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open new index: %w", err)
	}

	log.Printf("✓ Index written to %s in %v", dir, time.Since(startTime).Round(time.Millisecond))
	return finalIndex, nil
}

// OpenDir opens a directory written by WriteDir, restoring the sources from
// the fragment snapshot. A schema version mismatch returns an error wrapping
// indexing.ErrSnapshotSchema.
func OpenDir(dir string) (bleve.Index, []Source, error) {
	if v := ReadVersion(dir); v != indexing.IndexSchemaVersion {
		return nil, nil, fmt.Errorf("%w (have: v%d, want: v%d)", indexing.ErrSnapshotSchema, v, indexing.IndexSchemaVersion)
	}

	snap, err := indexing.ReadSnapshot(filepath.Join(dir, SnapshotFileName))
	if err != nil {
		return nil, nil, err
	}

	index, err := bleve.Open(filepath.Join(dir, IndexDirName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	sources := make([]Source, 0, len(snap.Sources))
	for _, ss := range snap.Sources {
		sources = append(sources, Source{
			Name:      ss.Name,
			BaseURL:   ss.BaseURL,
			Origin:    OriginSnapshot,
			UpdatedAt: ss.UpdatedAt,
			Index:     ss.Index(),
		})
	}
	return index, sources, nil
}

// RemoveDir deletes everything WriteDir creates under dir
func RemoveDir(dir string) {
	os.RemoveAll(filepath.Join(dir, IndexDirName))
	os.Remove(filepath.Join(dir, SnapshotFileName))
	os.Remove(filepath.Join(dir, VersionFileName))
}

// ReadVersion reads the index schema version written in dir
func ReadVersion(dir string) int {
	data, err := os.ReadFile(filepath.Join(dir, VersionFileName))
	if err != nil {
		return 0 // No version file = v0 (old format)
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return version
}

func writeVersion(dir string) error {
	content := strconv.Itoa(indexing.IndexSchemaVersion)
	return os.WriteFile(filepath.Join(dir, VersionFileName), []byte(content), 0644)
}

// Matches reports whether loaded holds exactly the configured sources, in order.
// An empty configuration matches the single embedded source.
func Matches(loaded []Source, configured []config.Source) bool {
	if len(configured) == 0 {
		return len(loaded) == 1 && loaded[0].Name == config.EmbeddedSourceName
	}
	if len(loaded) != len(configured) {
		return false
	}
	for i := range loaded {
		if loaded[i].Name != configured[i].Name || loaded[i].BaseURL != configured[i].BaseURL {
			return false
		}
	}
	return true
}
