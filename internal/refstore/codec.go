// ABOUTME: Flat string-record codec for conversation references
// ABOUTME: Bridges ConversationReference to the hash-field format used by Redis and SQLite

package refstore

import "strings"

// Flat record field names. These match the hash fields written by earlier
// deployments, so existing records decode unchanged.
const (
	fieldActivityID  = "activity_id"
	fieldBotID       = "bot_id"
	fieldBotName     = "bot_name"
	fieldChannelID   = "channel_id"
	fieldConvID      = "conversation_id"
	fieldConvIsGroup = "conversation_is_group"
	fieldServiceURL  = "service_url"
	fieldUserID      = "user_id"
	fieldUserName    = "user_name"
)

// EncodeRecord converts a reference to a flat string-keyed record. Every
// field is always present; absent values encode as the empty string, and the
// tri-state group flag encodes as ""/"true"/"false".
func EncodeRecord(ref *ConversationReference) map[string]string {
	if ref == nil {
		ref = &ConversationReference{}
	}
	return map[string]string{
		fieldActivityID:  ref.ActivityID,
		fieldBotID:       ref.Bot.ID,
		fieldBotName:     ref.Bot.Name,
		fieldChannelID:   ref.ChannelID,
		fieldConvID:      ref.Conversation.ID,
		fieldConvIsGroup: encodeGroupFlag(ref.Conversation.IsGroup),
		fieldServiceURL:  ref.ServiceURL,
		fieldUserID:      ref.User.ID,
		fieldUserName:    ref.User.Name,
	}
}

// DecodeRecord reconstructs a reference from a flat record. Missing fields
// decode to empty strings; malformed boolean text falls back to unknown
// rather than failing.
func DecodeRecord(record map[string]string) *ConversationReference {
	return &ConversationReference{
		ActivityID: record[fieldActivityID],
		Bot: ChannelAccount{
			ID:   record[fieldBotID],
			Name: record[fieldBotName],
		},
		ChannelID: record[fieldChannelID],
		Conversation: ConversationAccount{
			ID:      record[fieldConvID],
			IsGroup: decodeGroupFlag(record[fieldConvIsGroup]),
		},
		ServiceURL: record[fieldServiceURL],
		User: ChannelAccount{
			ID:   record[fieldUserID],
			Name: record[fieldUserName],
		},
	}
}

func encodeGroupFlag(g *bool) string {
	switch {
	case g == nil:
		return ""
	case *g:
		return "true"
	default:
		return "false"
	}
}

func decodeGroupFlag(s string) *bool {
	switch strings.ToLower(s) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
