// ABOUTME: Proactive dispatcher re-opening stored conversations to deliver messages
// ABOUTME: Single sends, lookups by conversation id and bounded best-effort broadcast

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/adapter"
	"github.com/courierbot/courier/internal/msgfmt"
	"github.com/courierbot/courier/internal/refstore"
)

// defaultWorkers bounds concurrent deliveries during a broadcast.
const defaultWorkers = 8

// ErrEmptyMessage is returned when a body segments to nothing; no activity
// is built and nothing is sent.
var ErrEmptyMessage = errors.New("message body is empty")

// ErrUndeliverable is returned for stored references missing the endpoint
// data required for an outbound send.
var ErrUndeliverable = errors.New("reference is missing service url or channel id")

// BroadcastResult reports the outcome of a fan-out.
type BroadcastResult struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Dispatcher delivers proactive messages through the channel adapter.
type Dispatcher struct {
	store   refstore.Store
	adapter adapter.Adapter
	workers int
	logger  *slog.Logger
}

// New creates a dispatcher. workers bounds broadcast concurrency; values
// below 1 fall back to the default.
func New(store refstore.Store, ad adapter.Adapter, workers int) *Dispatcher {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		store:   store,
		adapter: ad,
		workers: workers,
		logger:  slog.Default().With("component", "dispatcher"),
	}
}

// Deliver re-opens the conversation behind ref and sends body. Bodies with
// block markers become a structured card with one block per paragraph;
// marker-free bodies go out as plain text.
func (d *Dispatcher) Deliver(ctx context.Context, ref *refstore.ConversationReference, body string) error {
	if !ref.Deliverable() {
		return fmt.Errorf("%w: conversation %s", ErrUndeliverable, ref.Conversation.ID)
	}

	act, err := buildActivity(body)
	if err != nil {
		return err
	}
	return d.adapter.ContinueConversation(ctx, ref, act)
}

// DeliverTo looks up the conversation and delivers body into it. Returns
// refstore.ErrNotFound without a send attempt when the id is unknown.
func (d *Dispatcher) DeliverTo(ctx context.Context, conversationID, body string) error {
	ref, err := d.store.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	return d.Deliver(ctx, ref, body)
}

// Broadcast delivers body to every known conversation, best effort. Failing
// deliveries are logged and counted; they never cancel sibling deliveries.
func (d *Dispatcher) Broadcast(ctx context.Context, body string) (*BroadcastResult, error) {
	refs, err := d.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BroadcastResult
	)
	sem := make(chan struct{}, d.workers)

	for id, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string, ref *refstore.ConversationReference) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.Deliver(ctx, ref, body)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				d.logger.Error("broadcast delivery failed", "conversation_id", id, "error", err)
				return
			}
			result.Delivered++
		}(id, ref)
	}
	wg.Wait()

	d.logger.Info("broadcast complete", "delivered", result.Delivered, "failed", result.Failed)
	return &result, nil
}

// buildActivity turns a message body into an outbound activity. Segmentation
// is a pure transform; an empty result means nothing to send.
func buildActivity(body string) (*activity.Activity, error) {
	if !msgfmt.HasBlockMarkers(body) {
		paragraphs := msgfmt.Segments(body)
		if len(paragraphs) == 0 {
			return nil, ErrEmptyMessage
		}
		return activity.NewMessage(paragraphs[0]), nil
	}

	paragraphs := msgfmt.Segments(body)
	if len(paragraphs) == 0 {
		return nil, ErrEmptyMessage
	}
	return activity.NewCardMessage(paragraphs), nil
}
