package chat

import "time"

// UserRole distinguishes app users from the local stand-ins created for support agents.
type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAgent  UserRole = "agent"
)

// User is a local identity. ExternalContactID and ExternalSourceID are the support-inbox
// correlation keys; once set they are never overwritten.
type User struct {
	ID                uint      `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	Role              UserRole  `json:"role"`
	AgentRef          *string   `json:"-"`
	ExternalContactID *string   `json:"external_contact_id,omitempty"`
	ExternalSourceID  *string   `json:"external_source_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasContact reports whether the support-inbox contact is already known.
func (u *User) HasContact() bool {
	return u != nil && u.ExternalContactID != nil && *u.ExternalContactID != ""
}

// ContactID returns the external contact id or an empty string.
func (u *User) ContactID() string {
	if !u.HasContact() {
		return ""
	}
	return *u.ExternalContactID
}

// Group is the local chat room. It maps to at most one support-inbox conversation.
type Group struct {
	ID                     uint      `json:"id"`
	Name                   string    `json:"name"`
	OwnerID                uint      `json:"owner_id"`
	ExternalConversationID *string   `json:"external_conversation_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ConversationID returns the pinned external conversation id or an empty string.
func (g *Group) ConversationID() string {
	if g == nil || g.ExternalConversationID == nil {
		return ""
	}
	return *g.ExternalConversationID
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

type GroupMember struct {
	GroupID  uint       `json:"group_id"`
	UserID   uint       `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo:
		return true
	}
	return false
}

// Direction marks which side of the relay a message came from.
type Direction string

const (
	// DirectionIncoming is a message written by the app user.
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing is a message written on the support agent side.
	DirectionOutgoing Direction = "outgoing"
)

// Message is an append-only record of one confirmed relay.
type Message struct {
	ID          uint           `json:"-"`
	PublicID    string         `json:"id"`
	GroupID     uint           `json:"group_id"`
	SenderID    uint           `json:"sender_id"`
	MessageType MessageType    `json:"message_type"`
	Content     string         `json:"content"`
	MediaURL    *string        `json:"media_url,omitempty"`
	Direction   Direction      `json:"direction"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Metadata keys recorded on relayed messages.
const (
	MetaConversationID = "conversation_id"
	MetaPartID         = "part_id"
	MetaTicketID       = "ticket_id"
	MetaAuthorID       = "author_id"
)
