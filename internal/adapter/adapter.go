// ABOUTME: Channel adapter interface for delivering activities to the messaging service
// ABOUTME: Defines ContinueConversation, ReplyTo and the conversation-gone sentinel

package adapter

import (
	"context"
	"errors"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/refstore"
)

// ErrConversationGone is returned when the channel reports the conversation
// no longer exists or the bot was removed from it. There is nobody left to
// reply to, so callers log and move on.
var ErrConversationGone = errors.New("conversation no longer reachable")

// Adapter delivers outbound activities to the messaging channel.
type Adapter interface {
	// ContinueConversation re-enters a stored conversation without an
	// inbound trigger and posts the activity into it.
	ContinueConversation(ctx context.Context, ref *refstore.ConversationReference, act *activity.Activity) error

	// ReplyTo posts a reply activity into the conversation an inbound
	// activity arrived from.
	ReplyTo(ctx context.Context, inbound, reply *activity.Activity) error
}
