package handlers

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/domain/relay"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Message      *MessageHandler
	Webhook      *WebhookHandler
	User         *UserHandler
	Conversation *ConversationHandler
}

// NewProvider creates a new handler provider.
func NewProvider(relayService relay.Service, provisioningService provisioning.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Message:      NewMessageHandler(relayService, log),
		Webhook:      NewWebhookHandler(relayService, log),
		User:         NewUserHandler(provisioningService, log),
		Conversation: NewConversationHandler(provisioningService, log),
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewProvider,
)
