// ABOUTME: Activity envelope types exchanged with the messaging channel
// ABOUTME: Inbound webhook payloads and outbound messages share this schema

package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/courierbot/courier/internal/refstore"
)

// Activity type constants
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
	TypeTrace              = "trace"
)

// Account identifies a participant as it appears on the wire.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Conversation identifies the conversation an activity belongs to.
type Conversation struct {
	ID      string `json:"id"`
	IsGroup *bool  `json:"isGroup,omitempty"`
}

// Activity is one turn envelope: an inbound event delivered by the channel
// or an outbound message posted back to it.
type Activity struct {
	Type         string       `json:"type"`
	ID           string       `json:"id,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	ChannelID    string       `json:"channelId,omitempty"`
	ServiceURL   string       `json:"serviceUrl,omitempty"`
	From         Account      `json:"from"`
	Recipient    Account      `json:"recipient"`
	Conversation Conversation `json:"conversation"`
	Text         string       `json:"text,omitempty"`
	ReplyToID    string       `json:"replyToId,omitempty"`
	MembersAdded []Account    `json:"membersAdded,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`

	// Trace fields, only meaningful when Type == TypeTrace
	Label     string `json:"label,omitempty"`
	Name      string `json:"name,omitempty"`
	Value     any    `json:"value,omitempty"`
	ValueType string `json:"valueType,omitempty"`
}

// NewMessage builds an outbound plain-text message activity.
func NewMessage(text string) *Activity {
	return &Activity{
		Type:      TypeMessage,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Text:      text,
	}
}

// Reference extracts the conversation reference implied by an activity's
// envelope. For inbound activities the sender is the remote user and the
// recipient is the bot.
func Reference(a *Activity) *refstore.ConversationReference {
	return &refstore.ConversationReference{
		ActivityID: a.ID,
		Bot:        refstore.ChannelAccount{ID: a.Recipient.ID, Name: a.Recipient.Name},
		ChannelID:  a.ChannelID,
		Conversation: refstore.ConversationAccount{
			ID:      a.Conversation.ID,
			IsGroup: a.Conversation.IsGroup,
		},
		ServiceURL: a.ServiceURL,
		User:       refstore.ChannelAccount{ID: a.From.ID, Name: a.From.Name},
	}
}

// ApplyReference addresses an outbound activity to a stored conversation.
// Bot and user swap roles relative to the inbound direction: the bot sends,
// the stored user receives.
func ApplyReference(a *Activity, ref *refstore.ConversationReference) {
	a.ChannelID = ref.ChannelID
	a.ServiceURL = ref.ServiceURL
	a.From = Account{ID: ref.Bot.ID, Name: ref.Bot.Name}
	a.Recipient = Account{ID: ref.User.ID, Name: ref.User.Name}
	a.Conversation = Conversation{ID: ref.Conversation.ID, IsGroup: ref.Conversation.IsGroup}
}
