// ABOUTME: Command-word recognition for inbound message text
// ABOUTME: Substring matched, first match wins in a fixed priority order

package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/courierbot/courier/internal/activity"
)

// Command priority. Matching is case-insensitive substring and first match
// wins: a message containing both "convid" and "myid" answers "myid".
var commandOrder = []string{"myid", "convid", "myname", "count", "redis", "status"}

// commandReply resolves the inbound text to exactly one reply string.
// Unrecognized text is echoed back with an acknowledgement prefix.
func (b *Bot) commandReply(ctx context.Context, act *activity.Activity) (string, error) {
	text := strings.ToLower(act.Text)

	for _, word := range commandOrder {
		if !strings.Contains(text, word) {
			continue
		}
		switch word {
		case "myid":
			return fmt.Sprintf("Your ID is: %s", act.From.ID), nil
		case "convid":
			return fmt.Sprintf("Your Conversation ID is: %s", act.Conversation.ID), nil
		case "myname":
			return fmt.Sprintf("Your Name is: %s", act.From.Name), nil
		case "count":
			return b.countReply(ctx)
		case "redis", "status":
			return b.statusReply(ctx)
		}
	}

	return fmt.Sprintf("You sent: %s", act.Text), nil
}

func (b *Bot) countReply(ctx context.Context) (string, error) {
	refs, err := b.store.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("counting conversations: %w", err)
	}
	return fmt.Sprintf("Tracking %d conversation(s).", len(refs)), nil
}

func (b *Bot) statusReply(ctx context.Context) (string, error) {
	status, err := b.store.Diagnostics(ctx)
	if err != nil {
		// Diagnostics are best effort; report the failure instead of failing the turn.
		return fmt.Sprintf("Engine status unavailable: %v", err), nil
	}

	reply := fmt.Sprintf("Engine: %s, records: %d", status.Engine, status.TotalRecords)
	if status.Version != "" {
		reply += fmt.Sprintf(", version: %s", status.Version)
	}
	if status.UsedMemory != "" {
		reply += fmt.Sprintf(", memory: %s", status.UsedMemory)
	}
	if status.ConnectedClients > 0 {
		reply += fmt.Sprintf(", clients: %d", status.ConnectedClients)
	}
	return reply, nil
}
