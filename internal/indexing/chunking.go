package indexing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// DocID returns the document ID of the fragment at position in source
func DocID(source string, position int) string {
	return fmt.Sprintf("%s:%d", source, position)
}

// ForceSplitText splits text by character count at word boundaries
func ForceSplitText(text string, maxChars, overlapChars int) []string {
	var parts []string

	for len(text) > 0 {
		chunkSize := maxChars
		if len(text) < chunkSize {
			chunkSize = len(text)
		}

		// Try to break at word boundary
		if chunkSize < len(text) {
			// Look back for space or newline
			for i := chunkSize; i > chunkSize-100 && i > 0; i-- {
				if text[i] == ' ' || text[i] == '\n' {
					chunkSize = i
					break
				}
			}
		}

		// Never cut inside a multi-byte rune
		if cut := runeStartBefore(text, chunkSize); cut > 0 {
			chunkSize = cut
		} else if chunkSize < len(text) {
			_, chunkSize = utf8.DecodeRuneInString(text)
		}

		parts = append(parts, text[:chunkSize])

		// Move forward with overlap, but always make progress
		next := chunkSize
		if chunkSize > overlapChars && chunkSize+overlapChars < len(text) {
			if start := runeStartBefore(text, chunkSize-overlapChars); start > 0 {
				next = start
			}
		}
		text = text[next:]
	}

	return parts
}

// splitBlocks splits fragment text into paragraphs, falling back to lines
// for code listings and console output that have no blank lines
func splitBlocks(content string) []string {
	blocks := strings.Split(content, "\n\n")
	if len(blocks) <= 1 {
		blocks = strings.Split(content, "\n")
	}

	var out []string
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			out = append(out, block)
		}
	}
	return out
}

// runeStartBefore moves byte offset i of s back to the start of a rune
func runeStartBefore(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// tail returns at most n trailing bytes of s, starting on a rune boundary
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// SubdivideDoc splits a large document into smaller ones with overlap
// Documents within MaxChunkTokens are returned as-is with enriched metadata
func SubdivideDoc(doc SearchDoc, baseURL string) []SearchDoc {
	if EstimateTokens(doc.Content) <= MaxChunkTokens {
		EnrichMetadata(&doc, baseURL)
		return []SearchDoc{doc}
	}

	maxChars := MaxChunkTokens * CharsPerToken
	overlapChars := OverlapTokens * CharsPerToken

	var parts []string
	var current strings.Builder
	var previous string

	flush := func() {
		if current.Len() == 0 {
			return
		}
		content := current.String()
		if previous != "" {
			content = tail(previous, overlapChars) + "\n" + content
		}
		parts = append(parts, content)
		previous = current.String()
		current.Reset()
	}

	for _, block := range splitBlocks(doc.Content) {
		// A single oversized block is force-split on its own
		if EstimateTokens(block) > MaxChunkTokens {
			flush()
			for _, piece := range ForceSplitText(block, maxChars, overlapChars) {
				parts = append(parts, piece)
				previous = piece
			}
			continue
		}

		if current.Len() > 0 && EstimateTokens(current.String())+EstimateTokens(block) > TargetChunkTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(block)
	}
	flush()

	if len(parts) == 0 {
		EnrichMetadata(&doc, baseURL)
		return []SearchDoc{doc}
	}

	subdocs := make([]SearchDoc, 0, len(parts))
	for i, part := range parts {
		sub := doc
		sub.ID = fmt.Sprintf("%s_sub%d", doc.ID, i)
		sub.Content = part
		EnrichMetadata(&sub, baseURL)
		subdocs = append(subdocs, sub)
	}
	return subdocs
}

// BuildDocs converts every fragment of a loaded payload into search documents
func BuildDocs(source, baseURL string, ix *searchindex.Index) []SearchDoc {
	docs := make([]SearchDoc, 0, ix.Size())
	for position, fragment := range ix.Fragments() {
		doc := NewSearchDoc(source, position, fragment)
		docs = append(docs, SubdivideDoc(doc, baseURL)...)
	}
	return docs
}
