package tools

import (
	"context"
	"time"

	"github.com/krakend/docsearch-mcp/internal/docset"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// Backend exposes the active document set to non-MCP front ends such as the
// HTTP API. It holds no state of its own.
type Backend struct{}

// NewBackend returns a Backend over the process-wide document set
func NewBackend() *Backend {
	return &Backend{}
}

func (*Backend) Search(ctx context.Context, q docset.Query) (docset.Result, error) {
	return Search(ctx, q)
}

func (*Backend) Sources() []docset.SourceInfo {
	return Sources()
}

func (*Backend) Pages(source string) (string, []searchindex.Page, error) {
	return Pages(source)
}

func (*Backend) Page(source, title string) (string, []searchindex.DocFragment, error) {
	return Page(source, title)
}

// Ready reports whether a document set is installed and when it was built
func (*Backend) Ready() (bool, time.Time) {
	set := indexMgr.current.Load()
	if set == nil {
		return false, time.Time{}
	}
	return true, set.builtAt
}
