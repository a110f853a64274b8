package docset

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/blevesearch/bleve/v2"

	"github.com/krakend/docsearch-mcp/internal/indexing"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// Searcher is the part of a bleve index used for queries
type Searcher interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

// Query is a full-text search restricted by optional filters
type Query struct {
	Text     string
	Source   string
	Category string
	Limit    int
}

// Hit is one matching search document with its score
type Hit struct {
	Doc   indexing.SearchDoc `json:"doc"`
	Score float64            `json:"score"`
}

// Result is the outcome of Search
type Result struct {
	Query     string `json:"query"`
	Hits      []Hit  `json:"hits"`
	TotalHits int    `json:"total_hits"`
}

// Search runs q against s. The caller is responsible for clamping Limit.
func Search(s Searcher, q Query) (Result, error) {
	if q.Category != "" && !searchindex.Category(q.Category).Valid() {
		return Result{}, fmt.Errorf("%w %q (want %q or %q)",
			ErrInvalidCategory, q.Category, searchindex.CategoryPage, searchindex.CategorySection)
	}

	req := bleve.NewSearchRequest(indexing.NewSearchQuery(q.Text, q.Source, q.Category))
	req.Size = q.Limit
	req.Fields = []string{"*"}

	res, err := s.Search(req)
	if err != nil {
		return Result{}, fmt.Errorf("search failed: %w", err)
	}

	total, err := safecast.Conv[int](res.Total)
	if err != nil {
		return Result{}, fmt.Errorf("search total out of range: %w", err)
	}

	out := Result{
		Query:     q.Text,
		Hits:      make([]Hit, 0, len(res.Hits)),
		TotalHits: total,
	}
	for _, hit := range res.Hits {
		out.Hits = append(out.Hits, Hit{
			Doc:   indexing.DocFromHit(hit),
			Score: hit.Score,
		})
	}
	return out, nil
}

// PageFragments materialises the fragments of page in source order
func PageFragments(src Source, page string) ([]searchindex.DocFragment, error) {
	var out []searchindex.DocFragment
	for f := range src.Index.FragmentsForPage(page) {
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q in source %s", ErrPageNotFound, page, src.Name)
	}
	return out, nil
}
