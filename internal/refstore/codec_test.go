// ABOUTME: Tests for the flat string-record codec
// ABOUTME: Covers round-trips, optional-field defaults and boolean tolerance

package refstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func fullReference() *ConversationReference {
	return &ConversationReference{
		ActivityID:   "act-1",
		Bot:          ChannelAccount{ID: "bot-1", Name: "courier"},
		ChannelID:    "msteams",
		Conversation: ConversationAccount{ID: "conv-1", IsGroup: boolPtr(true)},
		ServiceURL:   "https://smba.example.com/apis",
		User:         ChannelAccount{ID: "user-1", Name: "Ada"},
	}
}

func TestCodec_RoundTripFull(t *testing.T) {
	ref := fullReference()

	decoded := DecodeRecord(EncodeRecord(ref))

	assert.Equal(t, ref, decoded)
}

func TestCodec_RoundTripPartial(t *testing.T) {
	ref := &ConversationReference{
		ChannelID:    "emulator",
		Conversation: ConversationAccount{ID: "conv-2"},
		ServiceURL:   "http://localhost:3978",
	}

	decoded := DecodeRecord(EncodeRecord(ref))

	assert.Equal(t, "conv-2", decoded.Conversation.ID)
	assert.Equal(t, "emulator", decoded.ChannelID)
	assert.Empty(t, decoded.ActivityID)
	assert.Equal(t, ChannelAccount{}, decoded.Bot)
	assert.Equal(t, ChannelAccount{}, decoded.User)
	assert.Nil(t, decoded.Conversation.IsGroup)
}

func TestCodec_EncodeNilReference(t *testing.T) {
	record := EncodeRecord(nil)

	require.NotNil(t, record)
	for _, field := range []string{"activity_id", "bot_id", "channel_id", "conversation_id", "service_url"} {
		v, ok := record[field]
		assert.True(t, ok, "field %s must be present", field)
		assert.Empty(t, v)
	}
}

func TestCodec_EncodeAlwaysEmitsEveryField(t *testing.T) {
	record := EncodeRecord(&ConversationReference{})

	assert.Len(t, record, 9)
}

func TestCodec_GroupFlagDecoding(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want *bool
	}{
		{"lowercase true", "true", boolPtr(true)},
		{"uppercase true", "TRUE", boolPtr(true)},
		{"mixed case false", "False", boolPtr(false)},
		{"empty is unknown", "", nil},
		{"garbage is unknown", "maybe", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := DecodeRecord(map[string]string{"conversation_is_group": tt.wire})
			assert.Equal(t, tt.want, decoded.Conversation.IsGroup)
		})
	}
}

func TestCodec_GroupFlagAbsentIsUnknown(t *testing.T) {
	decoded := DecodeRecord(map[string]string{"conversation_id": "conv-3"})

	assert.Nil(t, decoded.Conversation.IsGroup)
}

func TestCodec_GroupFlagRoundTrip(t *testing.T) {
	for _, g := range []*bool{nil, boolPtr(true), boolPtr(false)} {
		ref := &ConversationReference{Conversation: ConversationAccount{ID: "c", IsGroup: g}}
		decoded := DecodeRecord(EncodeRecord(ref))
		assert.Equal(t, g, decoded.Conversation.IsGroup)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	ref := fullReference()

	clone := ref.Clone()
	clone.User.Name = "Grace"
	*clone.Conversation.IsGroup = false

	assert.Equal(t, "Ada", ref.User.Name)
	assert.True(t, *ref.Conversation.IsGroup)
}

func TestDeliverable(t *testing.T) {
	assert.True(t, fullReference().Deliverable())
	assert.False(t, (&ConversationReference{ChannelID: "msteams"}).Deliverable())
	assert.False(t, (&ConversationReference{ServiceURL: "https://x"}).Deliverable())
	assert.False(t, (*ConversationReference)(nil).Deliverable())
}
