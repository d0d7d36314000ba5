package provider

import (
	"context"
	"time"
)

// ConversationKind is stored on each support-inbox conversation the relay creates.
type ConversationKind string

const (
	ConversationKindPersonal ConversationKind = "personal"
	ConversationKindGroup    ConversationKind = "group"
)

// ConversationKindFor picks the kind from the number of participants.
func ConversationKindFor(participants int) ConversationKind {
	if participants > 1 {
		return ConversationKindGroup
	}
	return ConversationKindPersonal
}

// ConversationState is the provider-side status of a conversation.
type ConversationState string

const (
	ConversationOpen    ConversationState = "open"
	ConversationClosed  ConversationState = "closed"
	ConversationSnoozed ConversationState = "snoozed"
)

// Contact is a support-inbox end user.
type Contact struct {
	ID         string
	ExternalID string
	Email      string
	Name       string
}

// Conversation is a support-inbox thread as seen by the relay.
type Conversation struct {
	ID         string
	State      ConversationState
	Kind       ConversationKind
	ContactIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Parts      []ConversationPart
}

// IsOpen reports whether no reopen call is needed.
func (c *Conversation) IsOpen() bool {
	return c.State == ConversationOpen
}

// AuthorType identifies who wrote a conversation part.
type AuthorType string

const (
	AuthorUser  AuthorType = "user"
	AuthorAdmin AuthorType = "admin"
	AuthorBot   AuthorType = "bot"
)

// ConversationPart is one message inside a support-inbox conversation.
type ConversationPart struct {
	ID         string
	Body       string
	AuthorType AuthorType
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
}

type CreateContactRequest struct {
	ExternalID string
	Email      string
	Name       string
}

type CreateConversationRequest struct {
	ContactIDs []string
	Body       string
}

// Reply identifies the part created by a reply call.
type Reply struct {
	ConversationID string
	PartID         string
}

// InboxClient is the support-inbox port used by the reconciler and the router.
type InboxClient interface {
	// FindContactByExternalID returns nil without error when no contact matches.
	FindContactByExternalID(ctx context.Context, externalID string) (*Contact, error)
	CreateContact(ctx context.Context, req CreateContactRequest) (*Contact, error)
	ListConversationsByContact(ctx context.Context, contactID string) ([]Conversation, error)
	// SearchGroupConversations returns group conversations involving any of contactIDs.
	SearchGroupConversations(ctx context.Context, contactIDs []string) ([]Conversation, error)
	CreateConversation(ctx context.Context, req CreateConversationRequest) (*Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	ReopenConversation(ctx context.Context, conversationID string) error
	// AddContacts attaches contactIDs to an existing conversation and marks it as a group conversation.
	AddContacts(ctx context.Context, conversationID string, contactIDs []string) error
	ReplyAsUser(ctx context.Context, conversationID, contactID, body string) (*Reply, error)
	ReplyAsAdmin(ctx context.Context, conversationID, body string) (*Reply, error)
}
