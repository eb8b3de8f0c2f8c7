// Package rag indexes reference documents as searchable chunks and retrieves
// the passages most relevant to a question. The HR assistant feeds retrieved
// chunks into its prompt as grounding context.
package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1200

	// DefaultChunkOverlap is how many trailing characters each chunk
	// shares with the next one.
	DefaultChunkOverlap = 240
)

var (
	pageNumberRe = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
	spaceRunsRe  = regexp.MustCompile(`[ \t]+`)
)

// cleanText strips bare page-number lines and collapses whitespace while
// keeping paragraph breaks, so chunk boundaries land on real structure.
func cleanText(text string) string {
	text = pageNumberRe.ReplaceAllString(text, "")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	text = spaceRunsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// chunkSeparators are tried in order when looking for a break point near the
// chunk size: paragraph break, line break, sentence end, word boundary.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// splitText cuts text into chunks of roughly size characters with the given
// overlap, preferring to break at natural boundaries.
func splitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= size {
			if chunk := strings.TrimSpace(text); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := breakPoint(text, size)
		chunk := strings.TrimSpace(text[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := runeStart(text, cut-overlap)
		if next <= 0 {
			next = cut
		}
		text = text[next:]
	}
	return chunks
}

// breakPoint finds the best position to cut a chunk at or before limit.
// When no separator is near, the cut falls back to a rune boundary so a
// chunk never ends mid-character in multibyte text.
func breakPoint(text string, limit int) int {
	window := text[:limit]
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(window, sep); idx > limit/2 {
			return idx + len(sep)
		}
	}
	if cut := runeStart(text, limit); cut > 0 {
		return cut
	}
	_, n := utf8.DecodeRuneInString(text)
	return n
}

// runeStart walks i back to the start of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
