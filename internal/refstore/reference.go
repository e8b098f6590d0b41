// ABOUTME: Conversation reference types and the Store interface for durable persistence
// ABOUTME: Defines ChannelAccount, ConversationAccount, ConversationReference and EngineStatus

package refstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested conversation reference does not exist
var ErrNotFound = errors.New("conversation reference not found")

// ChannelAccount identifies a participant (bot or user) on a messaging channel
type ChannelAccount struct {
	ID   string
	Name string
}

// ConversationAccount identifies a conversation on a messaging channel.
// IsGroup is tri-state: nil means the channel never said either way.
type ConversationAccount struct {
	ID      string
	IsGroup *bool
}

// ConversationReference holds the durable coordinates needed to re-open a
// conversation without a new inbound trigger. Conversation.ID is the store key.
type ConversationReference struct {
	ActivityID   string
	Bot          ChannelAccount
	ChannelID    string
	Conversation ConversationAccount
	ServiceURL   string
	User         ChannelAccount
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate the canonical record through a shared pointer.
func (r *ConversationReference) Clone() *ConversationReference {
	if r == nil {
		return nil
	}
	c := *r
	if r.Conversation.IsGroup != nil {
		g := *r.Conversation.IsGroup
		c.Conversation.IsGroup = &g
	}
	return &c
}

// Deliverable reports whether the record carries enough endpoint data for an
// outbound send. A record failing this is stored-but-undeliverable, not invalid.
func (r *ConversationReference) Deliverable() bool {
	return r != nil && r.ServiceURL != "" && r.ChannelID != ""
}

// EngineStatus is a best-effort snapshot of the persistence engine's health
type EngineStatus struct {
	Engine           string `json:"engine"`
	Version          string `json:"version,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
	UsedMemory       string `json:"used_memory,omitempty"`
	TotalRecords     int    `json:"total_records"`
}

// Store defines the interface for conversation reference persistence.
//
// Failure policy: Get and ListAll degrade on engine failure (ErrNotFound /
// empty map) so the service stays up when the backend wobbles; Upsert, Delete
// and Clear surface errors because the caller must know a write did not land.
// Constructors fail fast on an unreachable backend.
type Store interface {
	// Upsert writes or fully replaces the record for conversationID.
	// Last-write-wins; no field merging.
	Upsert(ctx context.Context, conversationID string, ref *ConversationReference) error

	// Get returns a copy of the current record, or ErrNotFound.
	Get(ctx context.Context, conversationID string) (*ConversationReference, error)

	// ListAll returns a snapshot of every record keyed by conversation id.
	ListAll(ctx context.Context) (map[string]*ConversationReference, error)

	// Delete removes a record. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, conversationID string) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Diagnostics returns engine health/capacity metrics.
	Diagnostics(ctx context.Context) (*EngineStatus, error)

	// Close releases any resources held by the store
	Close() error
}
