// ABOUTME: Deterministic paragraph segmentation for outbound message bodies
// ABOUTME: Splits block-marked text into ordered non-empty paragraphs for card rendering

package msgfmt

import (
	"regexp"
	"strings"
)

// blockMarker matches the block markers a body may contain: line breaks and
// paragraph open/close tags, with or without attributes or self-closing
// slashes, case-insensitively.
var blockMarker = regexp.MustCompile(`(?i)<br\s*/?\s*>|</?p\b[^>]*>`)

// HasBlockMarkers reports whether the body contains any block marker and
// should therefore be rendered as a structured card.
func HasBlockMarkers(body string) bool {
	return blockMarker.MatchString(body)
}

// Segments splits a body into its ordered non-empty paragraphs. Bodies
// without block markers yield a single trimmed paragraph; empty or
// all-whitespace bodies yield an empty slice. Pure function, no side effects.
func Segments(body string) []string {
	parts := blockMarker.Split(body, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
