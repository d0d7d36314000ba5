package provider

import (
	"context"
	"strings"
	"time"
)

const conversationTagPrefix = "conversation_"

// ConversationTag is the join key between a ticket and a support-inbox conversation.
func ConversationTag(conversationID string) string {
	return conversationTagPrefix + conversationID
}

// ConversationIDFromTags returns the conversation id carried by the first conversation tag.
func ConversationIDFromTags(tags []string) (string, bool) {
	for _, tag := range tags {
		if id, ok := strings.CutPrefix(strings.TrimSpace(tag), conversationTagPrefix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// TicketStatus is the ticketing lifecycle state.
type TicketStatus string

const (
	TicketNew     TicketStatus = "new"
	TicketOpen    TicketStatus = "open"
	TicketPending TicketStatus = "pending"
	TicketHold    TicketStatus = "hold"
	TicketSolved  TicketStatus = "solved"
	TicketClosed  TicketStatus = "closed"
)

// IsOpenLike reports whether the ticket can still receive relay comments.
func (s TicketStatus) IsOpenLike() bool {
	switch s {
	case TicketNew, TicketOpen, TicketPending:
		return true
	}
	return false
}

type TicketPriority string

const TicketPriorityNormal TicketPriority = "normal"

// Ticket is a ticketing-provider support case.
type Ticket struct {
	ID          int64
	Subject     string
	Status      TicketStatus
	Tags        []string
	RequesterID int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasTag reports whether the ticket carries tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// TicketUser is an identity known to the ticketing provider.
type TicketUser struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

// TicketComment is appended to tickets. AuthorID zero means the API user.
type TicketComment struct {
	Body     string
	Public   bool
	AuthorID int64
}

type CreateTicketRequest struct {
	Subject     string
	Comment     TicketComment
	Priority    TicketPriority
	Status      TicketStatus
	Tags        []string
	RequesterID int64
}

type UpdateTicketRequest struct {
	Comment TicketComment
	Status  TicketStatus
}

// TicketingClient is the ticketing port used by the reconciler.
type TicketingClient interface {
	SearchTicketsByTag(ctx context.Context, tag string) ([]Ticket, error)
	// ListTickets walks a bounded number of pages of the full ticket list.
	ListTickets(ctx context.Context) ([]Ticket, error)
	CreateTicket(ctx context.Context, req CreateTicketRequest) (*Ticket, error)
	UpdateTicket(ctx context.Context, ticketID int64, req UpdateTicketRequest) (*Ticket, error)
	// FindUserByEmail returns nil without error when nobody matches.
	FindUserByEmail(ctx context.Context, email string) (*TicketUser, error)
	CreateUser(ctx context.Context, name, email string) (*TicketUser, error)
}
