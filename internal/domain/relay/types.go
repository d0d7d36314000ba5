package relay

import (
	"context"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/reconcile"
)

// State is the position of one relay chain.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingProviderAck State = "awaiting_provider_ack"
	StateAwaitingRelayToApp  State = "awaiting_relay_to_app"
	StateDelivered           State = "delivered"
	StateIgnored             State = "ignored"
	StateFailed              State = "failed"
)

const (
	directionOutbound = "outbound"
	directionTicket   = "inbound_ticket"
	directionInbox    = "inbound_inbox"
)

// Ticket webhook event types.
const (
	TicketEventCommentAdded  = "ticket.comment_added"
	TicketEventStatusChanged = "ticket.status_changed"
	TicketEventCreated       = "ticket.created"
	TicketEventUpdated       = "ticket.updated"
)

// InboxTopicAdminReplied is the only support-inbox topic the relay acts on.
const InboxTopicAdminReplied = "conversation.admin.replied"

// SendParams is an app-originated message.
type SendParams struct {
	GroupID     uint             `json:"group_id" validate:"required"`
	UserID      uint             `json:"user_id" validate:"required"`
	Content     string           `json:"content" validate:"required,max=20000"`
	MessageType chat.MessageType `json:"message_type,omitempty" validate:"omitempty,oneof=text image video"`
	MediaURL    *string          `json:"media_url,omitempty" validate:"omitempty,url"`
}

// TicketEvent is the ticketing provider's webhook payload.
type TicketEvent struct {
	Type    string              `json:"type"`
	Ticket  TicketEventTicket   `json:"ticket"`
	Comment *TicketEventComment `json:"comment,omitempty"`
}

type TicketEventTicket struct {
	ID          int64    `json:"id"`
	Status      string   `json:"status,omitempty"`
	Tags        []string `json:"tags"`
	RequesterID int64    `json:"requester_id,omitempty"`
}

type TicketEventComment struct {
	ID     int64             `json:"id,omitempty"`
	Body   string            `json:"body"`
	Public *bool             `json:"is_public"`
	Author TicketEventAuthor `json:"author"`
}

type TicketEventAuthor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// InboxEvent is the support-inbox notification payload.
type InboxEvent struct {
	Topic string         `json:"topic"`
	Data  InboxEventData `json:"data"`
}

type InboxEventData struct {
	Item InboxEventItem `json:"item"`
}

type InboxEventItem struct {
	ID                string                 `json:"id"`
	ConversationParts InboxEventPartsWrapper `json:"conversation_parts"`
}

type InboxEventPartsWrapper struct {
	Parts []InboxEventPart `json:"conversation_parts"`
}

type InboxEventPart struct {
	ID       string           `json:"id"`
	PartType string           `json:"part_type"`
	Body     string           `json:"body"`
	Author   InboxEventAuthor `json:"author"`
}

type InboxEventAuthor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Result describes how a relay chain ended.
type Result struct {
	State   State         `json:"state"`
	Reason  string        `json:"reason,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
}

// Reconciler is the identity reconciliation the router drives.
type Reconciler interface {
	EnsureContact(ctx context.Context, user *chat.User) (*chat.User, error)
	ResolveConversation(ctx context.Context, user *chat.User, participantIDs []string, initialBody string) (*reconcile.ConversationHandle, error)
	ReopenIfNeeded(ctx context.Context, conversationID string) (*reconcile.ConversationHandle, error)
	ResolveTicket(ctx context.Context, conversationID string, requester reconcile.Requester, body string, isAgentMessage bool) (*reconcile.TicketHandle, error)
}

// Broadcaster pushes group events to connected clients.
type Broadcaster interface {
	EmitToGroup(groupID uint, event string, payload any) int
}

// EchoGuard remembers provider part ids the relay itself produced.
type EchoGuard interface {
	Remember(id string)
	Seen(id string) bool
}

// Service is the relay entrypoint used by the HTTP and socket layers.
type Service interface {
	SendAppMessage(ctx context.Context, params SendParams) (*chat.Message, error)
	HandleTicketEvent(ctx context.Context, event TicketEvent) (*Result, error)
	HandleInboxEvent(ctx context.Context, event InboxEvent) (*Result, error)
}
