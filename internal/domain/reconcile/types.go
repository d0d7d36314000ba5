package reconcile

import (
	"context"

	"github.com/janhq/support-relay/internal/domain/provider"
)

// Locker serializes find-or-create sequences sharing a key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Config tunes the reconciler.
type Config struct {
	// RequesterEmailDomain is used to synthesize ticketing identities for users without an email.
	RequesterEmailDomain string
	// Greeting opens a conversation when no message body is available.
	Greeting string
}

// ConversationHandle describes the support-inbox conversation a relay chain should use.
type ConversationHandle struct {
	ID    string
	Kind  provider.ConversationKind
	State provider.ConversationState
	// Created is true when this call created the conversation with the initial body,
	// so the body must not be posted a second time.
	Created  bool
	Reopened bool
}

// Requester identifies the app-side author of a ticket comment.
type Requester struct {
	Name  string
	Email string
	// Key is a stable local identifier used when Email is empty.
	Key string
}

// TicketHandle describes the ticket a relay chain touched.
type TicketHandle struct {
	ID      int64
	Status  provider.TicketStatus
	Created bool
	// RequesterID is the ticketing user the comment was authored as, zero for agent notes.
	RequesterID int64
}
