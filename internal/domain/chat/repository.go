package chat

import "context"

// UserRepository persists local users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByAgentRef(ctx context.Context, ref string) (*User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*User, error)
	// AssignExternalIDs fills null correlation keys only and returns the stored row.
	AssignExternalIDs(ctx context.Context, id uint, contactID, sourceID string) (*User, error)
}

// GroupRepository persists groups and their memberships.
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	FindByID(ctx context.Context, id uint) (*Group, error)
	// FindByExternalConversationID returns the oldest group pinned to conversationID.
	FindByExternalConversationID(ctx context.Context, conversationID string) (*Group, error)
	// ListByExternalConversationID returns every group pinned to conversationID,
	// oldest first. Groups with the same members share one conversation.
	ListByExternalConversationID(ctx context.Context, conversationID string) ([]*Group, error)
	// SetExternalConversationID pins conversationID only when the group has none
	// and returns the stored row, which may carry a different id set by another writer.
	SetExternalConversationID(ctx context.Context, id uint, conversationID string) (*Group, error)
	// AddMember returns false when the membership already existed.
	AddMember(ctx context.Context, member GroupMember) (bool, error)
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
	ListMemberIDs(ctx context.Context, groupID uint) ([]uint, error)
	ListGroupIDsForUser(ctx context.Context, userID uint) ([]uint, error)
}

// MessageRepository persists relayed messages.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	ListByGroup(ctx context.Context, groupID uint, limit int) ([]*Message, error)
}
