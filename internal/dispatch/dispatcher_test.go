// ABOUTME: Tests for the proactive dispatcher
// ABOUTME: Covers card vs plain sends, not-found lookups and broadcast isolation

package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/adapter"
	"github.com/courierbot/courier/internal/refstore"
)

// fakeAdapter records deliveries and fails for conversations in failFor.
type fakeAdapter struct {
	mu        sync.Mutex
	delivered []*activity.Activity
	targets   []string
	failFor   map[string]error
}

func (f *fakeAdapter) ContinueConversation(_ context.Context, ref *refstore.ConversationReference, act *activity.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, ref.Conversation.ID)
	if err, ok := f.failFor[ref.Conversation.ID]; ok {
		return err
	}
	f.delivered = append(f.delivered, act)
	return nil
}

func (f *fakeAdapter) ReplyTo(context.Context, *activity.Activity, *activity.Activity) error {
	return nil
}

func seedStore(t *testing.T, ids ...string) *refstore.MemoryStore {
	t.Helper()
	s := refstore.NewMemoryStore()
	for _, id := range ids {
		ref := &refstore.ConversationReference{
			ChannelID:    "msteams",
			Conversation: refstore.ConversationAccount{ID: id},
			ServiceURL:   "https://smba.example.com/apis",
		}
		require.NoError(t, s.Upsert(context.Background(), id, ref))
	}
	return s
}

func TestDeliver_PlainTextBody(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t), fa, 0)

	ref := &refstore.ConversationReference{
		ChannelID:    "msteams",
		Conversation: refstore.ConversationAccount{ID: "conv-1"},
		ServiceURL:   "https://smba.example.com/apis",
	}
	require.NoError(t, d.Deliver(context.Background(), ref, "  hello there  "))

	require.Len(t, fa.delivered, 1)
	assert.Equal(t, "hello there", fa.delivered[0].Text)
	assert.Empty(t, fa.delivered[0].Attachments)
}

func TestDeliver_BlockMarkedBodyBecomesCard(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t), fa, 0)

	ref := &refstore.ConversationReference{
		ChannelID:    "msteams",
		Conversation: refstore.ConversationAccount{ID: "conv-1"},
		ServiceURL:   "https://smba.example.com/apis",
	}
	require.NoError(t, d.Deliver(context.Background(), ref, "<p>Hello</p><br /><p>World</p>"))

	require.Len(t, fa.delivered, 1)
	act := fa.delivered[0]
	require.Len(t, act.Attachments, 1)
	card := act.Attachments[0].Content.(activity.Card)
	require.Len(t, card.Body, 2)
	assert.Equal(t, "Hello", card.Body[0].Text)
	assert.Equal(t, "World", card.Body[1].Text)
}

func TestDeliver_EmptyBodySendsNothing(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t), fa, 0)

	ref := &refstore.ConversationReference{
		ChannelID:    "msteams",
		Conversation: refstore.ConversationAccount{ID: "conv-1"},
		ServiceURL:   "https://smba.example.com/apis",
	}

	assert.ErrorIs(t, d.Deliver(context.Background(), ref, "   "), ErrEmptyMessage)
	assert.ErrorIs(t, d.Deliver(context.Background(), ref, "<p></p><br />"), ErrEmptyMessage)
	assert.Empty(t, fa.delivered)
}

func TestDeliver_UndeliverableReference(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t), fa, 0)

	ref := &refstore.ConversationReference{Conversation: refstore.ConversationAccount{ID: "conv-1"}}

	assert.ErrorIs(t, d.Deliver(context.Background(), ref, "hello"), ErrUndeliverable)
	assert.Empty(t, fa.delivered)
}

func TestDeliverTo_UnknownConversation(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t), fa, 0)

	err := d.DeliverTo(context.Background(), "nonexistent", "hello")
	assert.ErrorIs(t, err, refstore.ErrNotFound)
	assert.Empty(t, fa.targets, "no delivery may be attempted for an unknown id")
}

func TestDeliverTo_KnownConversation(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t, "conv-1"), fa, 0)

	require.NoError(t, d.DeliverTo(context.Background(), "conv-1", "hello"))
	assert.Equal(t, []string{"conv-1"}, fa.targets)
}

func TestBroadcast_DeliversToAll(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(seedStore(t, "conv-1", "conv-2", "conv-3"), fa, 2)

	result, err := d.Broadcast(context.Background(), "proactive hello")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Delivered)
	assert.Zero(t, result.Failed)
	assert.ElementsMatch(t, []string{"conv-1", "conv-2", "conv-3"}, fa.targets)
}

func TestBroadcast_OneFailureDoesNotStopSiblings(t *testing.T) {
	fa := &fakeAdapter{
		failFor: map[string]error{"conv-2": adapter.ErrConversationGone},
	}
	d := New(seedStore(t, "conv-1", "conv-2", "conv-3"), fa, 0)

	result, err := d.Broadcast(context.Background(), "proactive hello")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	assert.ElementsMatch(t, []string{"conv-1", "conv-2", "conv-3"}, fa.targets,
		"every conversation must see a delivery attempt")
}

func TestBroadcast_EmptyStore(t *testing.T) {
	fa := &fakeAdapter{}
	d := New(refstore.NewMemoryStore(), fa, 0)

	result, err := d.Broadcast(context.Background(), "hello")
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.Zero(t, result.Failed)
}

func TestBroadcast_AllFailuresAreCounted(t *testing.T) {
	fa := &fakeAdapter{
		failFor: map[string]error{
			"conv-1": errors.New("timeout"),
			"conv-2": adapter.ErrConversationGone,
		},
	}
	d := New(seedStore(t, "conv-1", "conv-2"), fa, 0)

	result, err := d.Broadcast(context.Background(), "hello")
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.Equal(t, 2, result.Failed)
}
