package indexing

import (
	"fmt"
	"log"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// NewIndexMapping returns the bleve mapping for SearchDoc
// Filter fields (source, category, location) are indexed verbatim and kept
// out of the composite _all field; prose fields use the English analyzer
func NewIndexMapping() mapping.IndexMapping {
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name
	keywordField.IncludeInAll = false

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.IncludeInAll = false

	numericField := bleve.NewNumericFieldMapping()
	numericField.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("source", keywordField)
	doc.AddFieldMappingsAt("category", keywordField)
	doc.AddFieldMappingsAt("location", keywordField)
	doc.AddFieldMappingsAt("page", textField)
	doc.AddFieldMappingsAt("title", textField)
	doc.AddFieldMappingsAt("content", textField)
	doc.AddFieldMappingsAt("breadcrumb", textField)
	doc.AddFieldMappingsAt("keywords", textField)
	doc.AddFieldMappingsAt("url", storedOnly)
	doc.AddFieldMappingsAt("position", numericField)
	doc.AddFieldMappingsAt("token_count", numericField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = en.AnalyzerName
	return im
}

// BuildIndex creates a bleve index at path and indexes docs in batches
// An empty path creates an in-memory index
func BuildIndex(path string, docs []SearchDoc) (bleve.Index, error) {
	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(NewIndexMapping())
	} else {
		index, err = bleve.New(path, NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	batch := index.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}

		// Submit batch every BatchSize documents
		if (i+1)%BatchSize == 0 {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return nil, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
			log.Printf("  Indexed %d/%d documents...", i+1, len(docs))
		}
	}

	// Submit remaining
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to index final batch: %w", err)
		}
	}

	return index, nil
}

// NewSearchQuery builds a match query on text, restricted to a source and a
// category when they are not empty. An empty text matches every document
func NewSearchQuery(text, source, category string) query.Query {
	var main query.Query
	if text == "" {
		main = bleve.NewMatchAllQuery()
	} else {
		main = bleve.NewMatchQuery(text)
	}

	if source == "" && category == "" {
		return main
	}

	conjunction := bleve.NewConjunctionQuery(main)
	if source != "" {
		tq := bleve.NewTermQuery(source)
		tq.SetField("source")
		conjunction.AddQuery(tq)
	}
	if category != "" {
		tq := bleve.NewTermQuery(category)
		tq.SetField("category")
		conjunction.AddQuery(tq)
	}
	return conjunction
}

// DocFromHit rebuilds a SearchDoc from the stored fields of a search hit
func DocFromHit(hit *search.DocumentMatch) SearchDoc {
	doc := SearchDoc{ID: hit.ID}

	str := func(name string) string {
		s, _ := hit.Fields[name].(string)
		return s
	}
	doc.Source = str("source")
	doc.Location = str("location")
	doc.Page = str("page")
	doc.Title = str("title")
	doc.Category = str("category")
	doc.Content = str("content")
	doc.URL = str("url")
	doc.Breadcrumb = str("breadcrumb")

	// Single-valued arrays come back as a plain string
	switch keywords := hit.Fields["keywords"].(type) {
	case []interface{}:
		doc.Keywords = make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kwStr, ok := kw.(string); ok {
				doc.Keywords = append(doc.Keywords, kwStr)
			}
		}
	case string:
		doc.Keywords = []string{keywords}
	}

	if position, ok := hit.Fields["position"].(float64); ok {
		doc.Position = int(position)
	}
	if tokenCount, ok := hit.Fields["token_count"].(float64); ok {
		doc.TokenCount = int(tokenCount)
	}

	return doc
}
