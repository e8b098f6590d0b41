// ABOUTME: Legacy nested-object JSON schema for file storage and migration
// ABOUTME: One top-level object keyed by conversation id with bot/conversation/user sub-objects

package refstore

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode is returned when a legacy JSON record cannot be decoded
var ErrDecode = errors.New("malformed legacy record")

// legacyAccount mirrors the nested bot/user sub-objects of the legacy format.
type legacyAccount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// legacyConversation mirrors the nested conversation sub-object.
type legacyConversation struct {
	ID      string `json:"id"`
	IsGroup *bool  `json:"is_group"`
}

// legacyReference is one value of the legacy top-level JSON object.
type legacyReference struct {
	ActivityID   string             `json:"activity_id"`
	Bot          legacyAccount      `json:"bot"`
	ChannelID    string             `json:"channel_id"`
	Conversation legacyConversation `json:"conversation"`
	ServiceURL   string             `json:"service_url"`
	User         legacyAccount      `json:"user"`
}

func toLegacy(ref *ConversationReference) legacyReference {
	return legacyReference{
		ActivityID: ref.ActivityID,
		Bot:        legacyAccount{ID: ref.Bot.ID, Name: ref.Bot.Name},
		ChannelID:  ref.ChannelID,
		Conversation: legacyConversation{
			ID:      ref.Conversation.ID,
			IsGroup: ref.Conversation.IsGroup,
		},
		ServiceURL: ref.ServiceURL,
		User:       legacyAccount{ID: ref.User.ID, Name: ref.User.Name},
	}
}

func fromLegacy(l legacyReference) *ConversationReference {
	return &ConversationReference{
		ActivityID: l.ActivityID,
		Bot:        ChannelAccount{ID: l.Bot.ID, Name: l.Bot.Name},
		ChannelID:  l.ChannelID,
		Conversation: ConversationAccount{
			ID:      l.Conversation.ID,
			IsGroup: l.Conversation.IsGroup,
		},
		ServiceURL: l.ServiceURL,
		User:       ChannelAccount{ID: l.User.ID, Name: l.User.Name},
	}
}

// decodeLegacyFile parses a legacy JSON object into references keyed by
// conversation id. Any malformed value fails the whole parse.
func decodeLegacyFile(data []byte) (map[string]*ConversationReference, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	refs := make(map[string]*ConversationReference, len(raw))
	for id, msg := range raw {
		var l legacyReference
		if err := json.Unmarshal(msg, &l); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrDecode, id, err)
		}
		refs[id] = fromLegacy(l)
	}
	return refs, nil
}

// encodeLegacyFile serializes references to the legacy JSON object format.
func encodeLegacyFile(refs map[string]*ConversationReference) ([]byte, error) {
	out := make(map[string]legacyReference, len(refs))
	for id, ref := range refs {
		out[id] = toLegacy(ref)
	}
	return json.MarshalIndent(out, "", "    ")
}
