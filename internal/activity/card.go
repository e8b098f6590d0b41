// ABOUTME: Structured card attachment types for multi-paragraph messages
// ABOUTME: Renders an ordered paragraph sequence as one adaptive card attachment

package activity

// CardContentType is the attachment content type for adaptive cards.
const CardContentType = "application/vnd.microsoft.card.adaptive"

// Attachment carries structured content alongside (or instead of) plain text.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content,omitempty"`
}

// Card is a minimal adaptive card: an ordered list of text blocks.
type Card struct {
	Type    string      `json:"type"`
	Version string      `json:"version"`
	Body    []TextBlock `json:"body"`
}

// TextBlock is one paragraph of a card body.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Wrap bool   `json:"wrap"`
}

// NewCardMessage builds an outbound message carrying one card attachment
// with one text block per paragraph, in order.
func NewCardMessage(paragraphs []string) *Activity {
	blocks := make([]TextBlock, len(paragraphs))
	for i, p := range paragraphs {
		blocks[i] = TextBlock{Type: "TextBlock", Text: p, Wrap: true}
	}

	a := NewMessage("")
	a.Attachments = []Attachment{{
		ContentType: CardContentType,
		Content:     Card{Type: "AdaptiveCard", Version: "1.4", Body: blocks},
	}}
	return a
}
