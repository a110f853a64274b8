package indexing

// SearchDoc is a documentation fragment as stored in the search index
type SearchDoc struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`                // Name of the payload the fragment came from
	Position   int      `json:"position"`              // Index of the fragment in its payload
	Location   string   `json:"location"`              // Relative URL, optionally with #anchor
	Page       string   `json:"page"`                  // Title of the containing page
	Title      string   `json:"title"`                 // Section title
	Category   string   `json:"category"`              // "page" or "section"
	Content    string   `json:"content"`               // Rendered text
	URL        string   `json:"url,omitempty"`         // Absolute URL when the source has a base URL
	Breadcrumb string   `json:"breadcrumb,omitempty"`  // "Page > Title"
	Keywords   []string `json:"keywords,omitempty"`    // Key terms extracted from content
	TokenCount int      `json:"token_count,omitempty"` // Estimated token count for monitoring
}
