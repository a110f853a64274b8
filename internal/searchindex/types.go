package searchindex

import "strings"

// Category distinguishes whole-page fragments from section headings.
type Category string

const (
	CategoryPage    Category = "page"
	CategorySection Category = "section"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryPage || c == CategorySection
}

// DocFragment is one entry of a search index payload.
type DocFragment struct {
	Location string   `json:"location" msgpack:"location"`
	Page     string   `json:"page" msgpack:"page"`
	Title    string   `json:"title" msgpack:"title"`
	Text     string   `json:"text" msgpack:"text"`
	Category Category `json:"category" msgpack:"category"`
}

// Path returns the location without its anchor.
func (f DocFragment) Path() string {
	path, _, _ := strings.Cut(f.Location, "#")
	return path
}

// Anchor returns the part of the location after '#', or "" if there is none.
func (f DocFragment) Anchor() string {
	_, anchor, _ := strings.Cut(f.Location, "#")
	return anchor
}

// IsSection reports whether the fragment is a section heading.
func (f DocFragment) IsSection() bool {
	return f.Category == CategorySection
}
