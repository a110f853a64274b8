package searchindex

import (
	"iter"
	"slices"
)

// Index is an immutable, ordered sequence of fragments.
type Index struct {
	fragments []DocFragment
	variable  string
}

// New builds an index from fragments already in reading order. The slice is
// copied; later changes to it do not affect the index.
func New(fragments []DocFragment) *Index {
	return newIndex(slices.Clone(fragments))
}

func newIndex(fragments []DocFragment) *Index {
	if fragments == nil {
		fragments = []DocFragment{}
	}
	return &Index{fragments: fragments}
}

// all returns the fragments; a nil *Index behaves as an empty one.
func (ix *Index) all() []DocFragment {
	if ix == nil {
		return nil
	}
	return ix.fragments
}

// Size returns the number of fragments.
func (ix *Index) Size() int {
	return len(ix.all())
}

// At returns the fragment at position i. It panics if i is out of range.
func (ix *Index) At(i int) DocFragment {
	return ix.all()[i]
}

// Variable returns the JavaScript variable the payload was assigned to, or ""
// for a bare JSON payload.
func (ix *Index) Variable() string {
	if ix == nil {
		return ""
	}
	return ix.variable
}

// Fragments yields every fragment with its position, in reading order.
func (ix *Index) Fragments() iter.Seq2[int, DocFragment] {
	return func(yield func(int, DocFragment) bool) {
		for i, f := range ix.all() {
			if !yield(i, f) {
				return
			}
		}
	}
}

// FragmentsForPage yields the fragments whose page equals title, preserving
// their relative order. The sequence is evaluated lazily and can be ranged
// over any number of times.
func (ix *Index) FragmentsForPage(title string) iter.Seq[DocFragment] {
	return func(yield func(DocFragment) bool) {
		for _, f := range ix.all() {
			if f.Page != title {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// PageTitles returns the distinct page titles in order of first appearance.
func (ix *Index) PageTitles() []string {
	seen := make(map[string]bool)
	titles := make([]string, 0)
	for _, f := range ix.all() {
		if seen[f.Page] {
			continue
		}
		seen[f.Page] = true
		titles = append(titles, f.Page)
	}
	return titles
}

// Slice returns a copy of all fragments.
func (ix *Index) Slice() []DocFragment {
	return slices.Clone(ix.all())
}

// Equal reports whether both indexes hold the same fragments in the same
// order. The JavaScript variable name is not compared.
func (ix *Index) Equal(other *Index) bool {
	return slices.Equal(ix.all(), other.all())
}
