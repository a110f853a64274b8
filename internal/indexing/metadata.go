package indexing

import (
	"net/url"
	"strings"

	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// EstimateTokens estimates the token count for a text string
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// ExtractKeywords extracts key terms from title and content
func ExtractKeywords(title, content string) []string {
	// Simple keyword extraction: get significant words from title
	// and first few lines of content
	words := strings.Fields(strings.ToLower(title))

	// Add words from first 200 chars of content
	contentPreview := content
	if len(content) > 200 {
		contentPreview = content[:200]
	}
	words = append(words, strings.Fields(strings.ToLower(contentPreview))...)

	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"but": true, "in": true, "on": true, "at": true, "to": true,
		"for": true, "of": true, "as": true, "by": true, "is": true,
		"it": true, "be": true, "with": true, "from": true, "that": true,
		"we": true, "will": true, "this": true, "are": true, "can": true,
	}

	// Keep first-seen order so the result is stable across runs
	seen := make(map[string]bool)
	keywords := make([]string, 0, 10)
	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
		})
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == 10 {
			break
		}
	}

	return keywords
}

// BuildBreadcrumb joins page and section title, skipping the title when it
// repeats the page name
// Example: ("Expected Utility Theory", "Load Packages") -> "Expected Utility Theory > Load Packages"
func BuildBreadcrumb(page, title string) string {
	var parts []string
	if page != "" {
		parts = append(parts, page)
	}
	if title != "" && title != page {
		parts = append(parts, title)
	}
	return strings.Join(parts, " > ")
}

// ResolveURL resolves a fragment location against the documentation site root
// Returns "" when baseURL is empty or invalid
// Example: ("https://example.org/docs/", "guide/#Setup") -> "https://example.org/docs/guide/#Setup"
func ResolveURL(baseURL, location string) string {
	if baseURL == "" {
		return ""
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" {
		return ""
	}
	ref, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// EnrichMetadata adds breadcrumb, keywords, URL, and token count to a document
func EnrichMetadata(doc *SearchDoc, baseURL string) {
	doc.Breadcrumb = BuildBreadcrumb(doc.Page, doc.Title)
	doc.URL = ResolveURL(baseURL, doc.Location)
	doc.Keywords = ExtractKeywords(doc.Title, doc.Content)
	doc.TokenCount = EstimateTokens(doc.Content)
}

// NewSearchDoc converts the fragment at position in source into a search document
func NewSearchDoc(source string, position int, fragment searchindex.DocFragment) SearchDoc {
	return SearchDoc{
		ID:       DocID(source, position),
		Source:   source,
		Position: position,
		Location: fragment.Location,
		Page:     fragment.Page,
		Title:    fragment.Title,
		Category: string(fragment.Category),
		Content:  fragment.Text,
	}
}
