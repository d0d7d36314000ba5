// Package responses contains HTTP response DTOs for the support relay.
package responses

import (
	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/domain/relay"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WebhookAck acknowledges a provider webhook.
type WebhookAck struct {
	Status  string        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
}

// MessageResponse wraps a relayed message.
type MessageResponse struct {
	Message *chat.Message `json:"message"`
}

// UserResponse wraps a local user.
type UserResponse struct {
	User *chat.User `json:"user"`
}

// ProvisionResponse is the outcome of user or group provisioning.
type ProvisionResponse struct {
	User                *chat.User  `json:"user,omitempty"`
	Group               *chat.Group `json:"group"`
	ConversationID      string      `json:"conversation_id"`
	ConversationCreated bool        `json:"conversation_created"`
}

// ConversationMessagesResponse lists support-inbox conversation parts.
type ConversationMessagesResponse struct {
	ConversationID string                             `json:"conversation_id"`
	Data           []provisioning.ConversationMessage `json:"data"`
}

// AddParticipantsResponse reports which users were added.
type AddParticipantsResponse struct {
	Added          []uint `json:"added"`
	AlreadyMembers []uint `json:"already_members"`
	Notice         string `json:"notice,omitempty"`
}

func NewWebhookAck(result *relay.Result) WebhookAck {
	if result == nil {
		return WebhookAck{Status: string(relay.StateDelivered)}
	}
	return WebhookAck{Status: string(result.State), Reason: result.Reason, Message: result.Message}
}

func NewProvisionResponse(result *provisioning.Result) ProvisionResponse {
	return ProvisionResponse{
		User:                result.User,
		Group:               result.Group,
		ConversationID:      result.ConversationID,
		ConversationCreated: result.ConversationCreated,
	}
}

func NewAddParticipantsResponse(result *provisioning.AddParticipantsResult) AddParticipantsResponse {
	return AddParticipantsResponse{
		Added:          result.Added,
		AlreadyMembers: result.AlreadyMembers,
		Notice:         result.Notice,
	}
}
