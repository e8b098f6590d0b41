// ABOUTME: Markdown rendering for administrative message bodies
// ABOUTME: Converts markdown to block-marked HTML so it flows through card segmentation

package msgfmt

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts a markdown body to HTML. The result carries the
// paragraph markers Segments understands, so multi-paragraph markdown ends
// up as a multi-block card.
func RenderMarkdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
