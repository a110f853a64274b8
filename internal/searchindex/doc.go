// Package searchindex loads the client-side search payloads emitted by static
// documentation generators.
//
// A payload is a single object whose "docs" member is an ordered list of
// fragments. Each fragment names its location (a relative URL with an
// optional anchor), the page it belongs to, the section title, the rendered
// text and a category of either "page" or "section":
//
//	{"docs": [{"location": "a/", "page": "A", "title": "A", "text": "", "category": "page"}]}
//
// Documenter.jl writes the object as a JavaScript assignment
// (var documenterSearchIndex = {...}); [Load] accepts both forms.
//
// A loaded [Index] is immutable. It may be shared between goroutines without
// locking.
package searchindex
