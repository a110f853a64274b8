package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/krakend/docsearch-mcp/internal/config"
	"github.com/krakend/docsearch-mcp/internal/docset"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

const (
	searchDir       = "search"
	docsDir         = "docs"
	lockFile        = "search/index.lock"
	lockTimeout     = 5 * time.Second // Max time to wait for lock
	lockRetryWait   = 500 * time.Millisecond
	embeddedPayload = "data/search_index.js"

	// MaxResultsLimit caps max_results regardless of configuration
	MaxResultsLimit = 50
)

var (
	dataDir string                  // Data directory for payload cache and search index
	cfg     = config.DefaultConfig() // Active configuration
)

// Configure sets the configuration used by the documentation search system
// and resolves its data directory. It must be called before InitializeDocSearch.
func Configure(c *config.Config) {
	cfg = c
	dataDir = c.ResolveDataDir()
}

func ensureConfigured() {
	if dataDir == "" {
		dataDir = cfg.ResolveDataDir()
	}
}

func newLoader() *docset.Loader {
	return &docset.Loader{
		CacheDir:    filepath.Join(dataDir, docsDir),
		CacheTTL:    cfg.CacheTTL,
		Concurrency: cfg.Concurrency,
		Embedded:    EmbeddedPayload,
	}
}

// isProcessRunning is implemented in platform-specific files:
// - docsearch_unix.go for Unix/Linux/macOS
// - docsearch_windows.go for Windows

// cleanStaleLock removes lock file if the owning process is dead
func cleanStaleLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No lock file, nothing to clean
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("Warning: Corrupted lock file (invalid PID), removing...")
		return os.Remove(lockPath)
	}

	if isProcessRunning(pid) {
		return fmt.Errorf("lock held by running process %d", pid)
	}

	log.Printf("Stale lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(lockPath)
}

// acquireLock attempts to acquire the index lock with retry
func acquireLock() error {
	lockPath := filepath.Join(dataDir, lockFile)
	ourPID := os.Getpid()

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	// Check if we already have the lock
	if data, err := os.ReadFile(lockPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == ourPID {
			return nil
		}
	}

	startTime := time.Now()

	for {
		if err := cleanStaleLock(); err != nil {
			elapsed := time.Since(startTime)
			if elapsed >= lockTimeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed, err)
			}

			log.Printf("Index locked by another process, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			time.Sleep(lockRetryWait)
			continue
		}

		if err := os.WriteFile(lockPath, []byte(strconv.Itoa(ourPID)), 0644); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		log.Printf("✓ Index lock acquired (PID %d)", ourPID)
		return nil
	}
}

// releaseLock releases the index lock
func releaseLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Lock already removed
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() {
		log.Printf("Warning: Lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	log.Printf("✓ Index lock released")
	return nil
}

// docSet is an immutable searchable snapshot of every loaded source
type docSet struct {
	index   Index
	sources []docset.Source
	builtAt time.Time
}

func (s *docSet) source(name string) (docset.Source, error) {
	return docset.Lookup(s.sources, name)
}

// indexHolder manages concurrent access to the active document set
type indexHolder struct {
	// current holds the active document set (atomic access for lock-free reads)
	current atomic.Pointer[docSet]

	// refreshMu prevents concurrent refresh operations
	// NOT used for searches - they are lock-free via atomic pointer
	refreshMu sync.Mutex

	// wg tracks in-flight reads for graceful cleanup of old indexes
	wg sync.WaitGroup
}

var (
	indexMgr = &indexHolder{}
)

// InitializeDocSearch initializes the documentation search system
// Priority: on-disk index matching the configured sources > rebuild from sources
func InitializeDocSearch() error {
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()
	return initDocSearch()
}

// initDocSearch does the work of InitializeDocSearch. Callers must hold
// indexMgr.refreshMu, since concurrent builds share the same index paths.
func initDocSearch() error {
	startTime := time.Now()
	log.Printf("Initializing documentation search...")
	ensureConfigured()

	dir := filepath.Join(dataDir, searchDir)

	log.Printf("Acquiring index lock...")
	lockStart := time.Now()
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	log.Printf("Lock acquired in %v", time.Since(lockStart).Round(time.Millisecond))

	// Strategy 1: reuse the index from a previous run
	if _, err := os.Stat(filepath.Join(dir, docset.IndexDirName)); err == nil {
		index, sources, err := docset.OpenDir(dir)
		switch {
		case err != nil:
			log.Printf("Warning: Local index unusable (%v), removing...", err)
			docset.RemoveDir(dir)
		case !docset.Matches(sources, cfg.Sources):
			log.Printf("Configured sources changed, rebuilding index...")
			index.Close()
		default:
			install(&docSet{index: NewBleveIndexWrapper(index), sources: sources, builtAt: time.Now()})
			count := docCount()
			log.Printf("✓ Documentation search initialized (%d docs, %d sources, local index) in %v",
				count, len(sources), time.Since(startTime).Round(time.Millisecond))

			if needsRefresh() {
				log.Printf("ℹ️  Remote documentation is older than %v. Consider using refresh_documentation_index tool to update.", cfg.CacheTTL)
			}
			return nil
		}
	}

	// Strategy 2: load every source and build a fresh index
	if err := rebuildDocSearch(context.Background(), false); err != nil {
		return err
	}

	log.Printf("✓ Documentation search initialized (%d docs) in %v",
		docCount(), time.Since(startTime).Round(time.Millisecond))
	return nil
}

// rebuildDocSearch loads every configured source, writes a new on-disk index
// and swaps it in. The previous document set stays live on failure.
func rebuildDocSearch(ctx context.Context, force bool) error {
	loadStart := time.Now()
	sources, err := newLoader().LoadAll(ctx, cfg.Sources, force)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	for _, src := range sources {
		log.Printf("  %s: %d fragments (%s)", src.Name, src.Index.Size(), src.Origin)
	}
	log.Printf("Loaded %d sources in %v", len(sources), time.Since(loadStart).Round(time.Millisecond))

	index, err := docset.WriteDir(filepath.Join(dataDir, searchDir), sources)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	install(&docSet{index: NewBleveIndexWrapper(index), sources: sources, builtAt: time.Now()})
	return nil
}

// install swaps set in and closes the previous index once in-flight reads finish
func install(set *docSet) {
	old := indexMgr.current.Swap(set)
	if old == nil {
		return
	}

	go func(old *docSet) {
		waitStart := time.Now()

		// Wait for all in-flight reads on the old set to complete
		indexMgr.wg.Wait()

		if err := old.index.Close(); err != nil {
			log.Printf("Warning: Error closing old index: %v", err)
		} else {
			log.Printf("✓ Old index closed (waited %v)", time.Since(waitStart).Round(time.Millisecond))
		}
	}(old)
}

// docCount returns the number of documents in the active index
func docCount() int {
	set := indexMgr.current.Load()
	if set == nil {
		return 0
	}
	count, err := set.index.DocCount()
	if err != nil {
		return 0
	}
	n, err := safecast.Conv[int](count)
	if err != nil {
		return 0
	}
	return n
}

// needsRefresh reports whether any remote source cache is stale
func needsRefresh() bool {
	l := newLoader()
	for _, src := range cfg.Sources {
		if src.IsRemote() && l.Stale(src.Name) {
			return true
		}
	}
	return false
}

// lastUpdate returns the oldest download time among remote sources
func lastUpdate() time.Time {
	l := newLoader()
	var oldest time.Time
	for _, src := range cfg.Sources {
		if !src.IsRemote() {
			continue
		}
		t := l.LastUpdate(src.Name)
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	return oldest
}

// refreshDocumentationIndex re-downloads stale remote sources and re-indexes
func refreshDocumentationIndex(ctx context.Context, force bool) (bool, error) {
	startTime := time.Now()
	ensureConfigured()

	if !force && !needsRefresh() {
		log.Printf("Documentation cache is fresh, skipping refresh")
		return false, nil
	}

	// Serialize refresh operations (prevent concurrent refreshes)
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	// Another goroutine may have already refreshed while we were waiting
	if !force && !needsRefresh() {
		log.Printf("Documentation was refreshed by another goroutine, skipping")
		return false, nil
	}

	log.Printf("Starting documentation refresh (force=%v)...", force)

	// Acquire inter-process lock for re-indexing (will wait if another process has it)
	// Lock will be released by CloseDocSearch() when process exits
	if err := acquireLock(); err != nil {
		return false, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	if err := rebuildDocSearch(ctx, force); err != nil {
		return false, err
	}

	log.Printf("✓ Documentation refresh completed in %v", time.Since(startTime).Round(time.Millisecond))
	return true, nil
}

// reloadDocSearch rebuilds the index after a local payload changed
func reloadDocSearch(ctx context.Context, reason string) error {
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	log.Printf("Reloading documentation (%s)...", reason)
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock for reload: %w", err)
	}
	if err := rebuildDocSearch(ctx, false); err != nil {
		log.Printf("Warning: Reload failed, keeping previous documentation: %v", err)
		return err
	}
	log.Printf("✓ Documentation reloaded (%d docs)", docCount())
	return nil
}

// acquireSet returns the active document set, initializing it on first use.
// Callers must hold indexMgr.wg.
func acquireSet() (*docSet, error) {
	if set := indexMgr.current.Load(); set != nil {
		return set, nil
	}

	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	// Another caller may have initialized while we were waiting
	set := indexMgr.current.Load()
	if set != nil {
		return set, nil
	}

	log.Printf("Doc index not initialized, initializing now...")
	if err := initDocSearch(); err != nil {
		return nil, fmt.Errorf("failed to initialize documentation index: %w", err)
	}
	if set = indexMgr.current.Load(); set == nil {
		return nil, docset.ErrNotReady
	}
	return set, nil
}

// clampResults applies the configured default and the hard cap to a requested limit
func clampResults(requested int) int {
	if requested <= 0 {
		requested = cfg.MaxResults
	}
	return min(requested, MaxResultsLimit)
}

// Search runs a full-text query against the active document set
func Search(ctx context.Context, q docset.Query) (docset.Result, error) {
	// Track in-flight reads for graceful cleanup (MUST be before Load)
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	set, err := acquireSet()
	if err != nil {
		return docset.Result{}, err
	}

	if q.Source != "" {
		if _, err := set.source(q.Source); err != nil {
			return docset.Result{}, err
		}
	}

	q.Limit = clampResults(q.Limit)
	return docset.Search(set.index, q)
}

// Sources describes every loaded source
func Sources() []docset.SourceInfo {
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	set := indexMgr.current.Load()
	if set == nil {
		return nil
	}
	out := make([]docset.SourceInfo, 0, len(set.sources))
	for _, src := range set.sources {
		out = append(out, src.Info())
	}
	return out
}

// Pages returns the page outline of a source; "" selects the first source
func Pages(source string) (string, []searchindex.Page, error) {
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	set, err := acquireSet()
	if err != nil {
		return "", nil, err
	}
	src, err := set.source(source)
	if err != nil {
		return "", nil, err
	}
	return src.Name, src.Index.Pages(), nil
}

// Page returns the fragments of one page in payload order
func Page(source, title string) (string, []searchindex.DocFragment, error) {
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	set, err := acquireSet()
	if err != nil {
		return "", nil, err
	}
	src, err := set.source(source)
	if err != nil {
		return "", nil, err
	}
	frags, err := docset.PageFragments(src, title)
	if err != nil {
		return "", nil, err
	}
	return src.Name, frags, nil
}

// SearchDocumentationInput defines input for search_documentation tool
type SearchDocumentationInput struct {
	Query      string `json:"query" jsonschema:"Search query for documentation"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to the configured max_results)"`
	Source     string `json:"source,omitempty" jsonschema:"Restrict results to one documentation source (optional)"`
	Category   string `json:"category,omitempty" jsonschema:"Restrict results to 'page' or 'section' fragments (optional)"`
}

// SearchDocumentationOutput defines output for search_documentation tool
type SearchDocumentationOutput struct {
	Results    []docset.Hit `json:"results"`
	Query      string       `json:"query"`
	TotalHits  int          `json:"total_hits"`
	SourceURLs []string     `json:"source_urls"`
}

// ListPagesInput defines input for list_pages tool
type ListPagesInput struct {
	Source string `json:"source,omitempty" jsonschema:"Documentation source (optional, defaults to the first source)"`
}

// ListPagesOutput defines output for list_pages tool
type ListPagesOutput struct {
	Source string             `json:"source"`
	Pages  []searchindex.Page `json:"pages"`
}

// GetPageInput defines input for get_page tool
type GetPageInput struct {
	Page   string `json:"page" jsonschema:"Page title as returned by list_pages"`
	Source string `json:"source,omitempty" jsonschema:"Documentation source (optional, defaults to the first source)"`
}

// GetPageOutput defines output for get_page tool
type GetPageOutput struct {
	Source    string                    `json:"source"`
	Page      string                    `json:"page"`
	Fragments []searchindex.DocFragment `json:"fragments"`
}

// RefreshDocumentationIndexInput defines input for refresh_documentation_index tool
type RefreshDocumentationIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Force re-download and re-indexing (optional, defaults to false)"`
}

// RefreshDocumentationIndexOutput defines output for refresh_documentation_index tool
type RefreshDocumentationIndexOutput struct {
	Updated     bool      `json:"updated"`
	LastUpdate  time.Time `json:"last_update"`
	DocsIndexed int       `json:"docs_indexed"`
	Message     string    `json:"message"`
}

// SearchDocumentation searches through the loaded documentation
func SearchDocumentation(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentationInput) (*mcp.CallToolResult, SearchDocumentationOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchDocumentationOutput{}, errors.New("query is required")
	}

	res, err := Search(ctx, docset.Query{
		Text:     input.Query,
		Source:   input.Source,
		Category: input.Category,
		Limit:    input.MaxResults,
	})
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}

	output := SearchDocumentationOutput{
		Results:    res.Hits,
		Query:      res.Query,
		TotalHits:  res.TotalHits,
		SourceURLs: []string{},
	}
	for _, info := range Sources() {
		if info.BaseURL != "" && (input.Source == "" || input.Source == info.Name) {
			output.SourceURLs = append(output.SourceURLs, info.BaseURL)
		}
	}

	return nil, output, nil
}

// ListPages lists the pages of a documentation source with their sections
func ListPages(ctx context.Context, req *mcp.CallToolRequest, input ListPagesInput) (*mcp.CallToolResult, ListPagesOutput, error) {
	name, pages, err := Pages(input.Source)
	if err != nil {
		return nil, ListPagesOutput{}, err
	}
	return nil, ListPagesOutput{Source: name, Pages: pages}, nil
}

// GetPage returns every fragment of one page
func GetPage(ctx context.Context, req *mcp.CallToolRequest, input GetPageInput) (*mcp.CallToolResult, GetPageOutput, error) {
	name, frags, err := Page(input.Source, input.Page)
	if err != nil {
		return nil, GetPageOutput{}, err
	}
	return nil, GetPageOutput{Source: name, Page: input.Page, Fragments: frags}, nil
}

// RefreshDocumentationIndex re-downloads remote sources and re-indexes
func RefreshDocumentationIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshDocumentationIndexInput) (*mcp.CallToolResult, RefreshDocumentationIndexOutput, error) {
	output := RefreshDocumentationIndexOutput{}

	updated, err := refreshDocumentationIndex(ctx, input.Force)
	if err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}

	output.DocsIndexed = docCount()
	if !updated {
		output.LastUpdate = lastUpdate()
		output.Message = "Cache is fresh"
		if !output.LastUpdate.IsZero() {
			output.Message = fmt.Sprintf("Cache is fresh (last updated: %s)", output.LastUpdate.Format(time.RFC3339))
		}
		return nil, output, nil
	}

	output.Updated = true
	output.LastUpdate = time.Now()
	output.Message = fmt.Sprintf("Documentation refreshed successfully, %d documents indexed", output.DocsIndexed)

	return nil, output, nil
}

// RegisterDocSearchTools registers documentation search tools
func RegisterDocSearchTools(server *mcp.Server) error {
	// Initialize doc search synchronously
	if err := InitializeDocSearch(); err != nil {
		log.Printf("Warning: Documentation search initialization failed: %v", err)
		log.Printf("Documentation search will attempt to initialize on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_documentation",
			Description: "Search the documentation using full-text search. Returns the most relevant page and section fragments with links.",
		},
		SearchDocumentation,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_pages",
			Description: "List the pages of a documentation source with their section headings, in site order.",
		},
		ListPages,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_page",
			Description: "Return every fragment (page text and section headings) of one documentation page.",
		},
		GetPage,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_documentation_index",
			Description: "Force re-download and re-index of remote documentation sources (auto-runs when the cache is older than the configured TTL)",
		},
		RefreshDocumentationIndex,
	)

	return nil
}

// CloseDocSearch closes the documentation search index and releases the lock
func CloseDocSearch() error {
	var closeErr error

	// Atomically swap to nil (prevents new reads)
	if set := indexMgr.current.Swap(nil); set != nil {
		log.Printf("Waiting for in-flight searches to complete before closing...")
		indexMgr.wg.Wait()

		closeErr = set.index.Close()
		if closeErr != nil {
			log.Printf("Error closing doc index: %v", closeErr)
		} else {
			log.Printf("✓ Doc index closed successfully")
		}
	}

	// Always attempt to release inter-process lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}

	return closeErr
}
