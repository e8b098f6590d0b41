// ABOUTME: Turn observer that records conversation references from inbound activities
// ABOUTME: Handles command words and echoes, replying through the channel adapter

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/adapter"
	"github.com/courierbot/courier/internal/refstore"
)

const (
	welcomeMessage = "Welcome to the group!"
	apologyMessage = "Something went wrong handling that message. Please try again."
)

// Bot observes inbound turns. Every conversation-update or message activity
// upserts the conversation reference before any other handling, so an
// administrative dispatch issued right after the turn can find the record.
type Bot struct {
	store   refstore.Store
	adapter adapter.Adapter
	logger  *slog.Logger
}

// New creates a bot writing references into store and replying via ad.
func New(store refstore.Store, ad adapter.Adapter) *Bot {
	return &Bot{
		store:   store,
		adapter: ad,
		logger:  slog.Default().With("component", "bot"),
	}
}

// OnTurn processes one inbound activity. Internal failures are answered with
// a generic apology; a gone conversation is logged and suppressed since
// there is nobody left to reply to.
func (b *Bot) OnTurn(ctx context.Context, act *activity.Activity) error {
	err := b.handle(ctx, act)
	if err == nil {
		return nil
	}

	if errors.Is(err, adapter.ErrConversationGone) {
		b.logger.Warn("conversation gone, dropping reply", "conversation_id", act.Conversation.ID)
		return nil
	}

	b.logger.Error("turn handling failed", "type", act.Type, "conversation_id", act.Conversation.ID, "error", err)
	if apologyErr := b.adapter.ReplyTo(ctx, act, activity.NewMessage(apologyMessage)); apologyErr != nil {
		b.logger.Error("failed to send apology", "error", apologyErr)
	}
	return err
}

func (b *Bot) handle(ctx context.Context, act *activity.Activity) error {
	switch act.Type {
	case activity.TypeConversationUpdate:
		if err := b.recordReference(ctx, act); err != nil {
			return err
		}
		return b.welcomeMembers(ctx, act)

	case activity.TypeMessage:
		if err := b.recordReference(ctx, act); err != nil {
			return err
		}
		reply, err := b.commandReply(ctx, act)
		if err != nil {
			return err
		}
		return b.adapter.ReplyTo(ctx, act, activity.NewMessage(reply))

	case activity.TypeTrace:
		return nil

	default:
		b.logger.Debug("ignoring activity", "type", act.Type)
		return nil
	}
}

// recordReference upserts the reference implied by the activity envelope.
// This is the sole write path populating the store from live traffic.
func (b *Bot) recordReference(ctx context.Context, act *activity.Activity) error {
	ref := activity.Reference(act)
	if ref.Conversation.ID == "" {
		b.logger.Warn("activity without conversation id, skipping", "type", act.Type)
		return nil
	}
	if err := b.store.Upsert(ctx, ref.Conversation.ID, ref); err != nil {
		return fmt.Errorf("recording conversation reference: %w", err)
	}
	return nil
}

// welcomeMembers greets every added member except the bot itself.
func (b *Bot) welcomeMembers(ctx context.Context, act *activity.Activity) error {
	for _, member := range act.MembersAdded {
		if member.ID == act.Recipient.ID {
			continue
		}
		if err := b.adapter.ReplyTo(ctx, act, activity.NewMessage(welcomeMessage)); err != nil {
			return err
		}
	}
	return nil
}
