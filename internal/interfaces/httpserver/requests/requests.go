// Package requests contains HTTP request DTOs for the support relay.
package requests

// SendMessageRequest is an app user's message to a group.
type SendMessageRequest struct {
	GroupID     uint    `json:"group_id" binding:"required"`
	UserID      uint    `json:"user_id" binding:"required"`
	Content     string  `json:"content" binding:"required"`
	MessageType string  `json:"message_type,omitempty"`
	MediaURL    *string `json:"media_url,omitempty"`
}

// CreateUserRequest provisions a user and its support conversation.
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// AddParticipantsRequest adds users to an existing support conversation.
type AddParticipantsRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
}

// CreateGroupConversationRequest bootstraps a group support conversation.
type CreateGroupConversationRequest struct {
	Name      string `json:"name"`
	OwnerID   uint   `json:"owner_id" binding:"required"`
	MemberIDs []uint `json:"member_ids" binding:"required,min=1"`
}
