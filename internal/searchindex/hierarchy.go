package searchindex

// Page is an outline of one documentation page rebuilt from fragment
// positions. The payload itself is flat; sections are attached to the page
// named by their own page field, in the order they appear.
type Page struct {
	Title string `json:"title"`
	// Location is the anchor-free location of the first fragment of the page.
	Location  string    `json:"location"`
	Fragments int       `json:"fragments"`
	Sections  []Section `json:"sections"`
}

// Section is a section heading within a Page.
type Section struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	// Position is the index of the fragment in the payload.
	Position int `json:"position"`
}

// Pages groups fragments by page title, ordered by first appearance.
func (ix *Index) Pages() []Page {
	pages := make([]Page, 0)
	byTitle := make(map[string]int)

	for i, f := range ix.all() {
		idx, ok := byTitle[f.Page]
		if !ok {
			idx = len(pages)
			byTitle[f.Page] = idx
			pages = append(pages, Page{
				Title:    f.Page,
				Location: f.Path(),
				Sections: []Section{},
			})
		}

		page := &pages[idx]
		page.Fragments++
		if f.IsSection() {
			page.Sections = append(page.Sections, Section{
				Title:    f.Title,
				Location: f.Location,
				Position: i,
			})
		}
	}

	return pages
}

// CategoryCounts returns how many fragments fall in each category.
func (ix *Index) CategoryCounts() map[Category]int {
	counts := make(map[Category]int, 2)
	for _, f := range ix.all() {
		counts[f.Category]++
	}
	return counts
}
