package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/janhq/support-relay/internal/config"
	"github.com/janhq/support-relay/internal/infrastructure/auth"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/middlewares"
	v1 "github.com/janhq/support-relay/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	authValidator *auth.Validator
}

// NewProvider creates a new route provider.
func NewProvider(cfg *config.Config, handlerProvider *handlers.Provider, authValidator *auth.Validator) *Provider {
	return &Provider{
		V1: v1.NewRoutes(handlerProvider, v1.WebhookGuards{
			Ticketing: middlewares.WebhookSignature(cfg.TicketingWebhookSecret),
			Inbox:     middlewares.WebhookSignature(cfg.InboxWebhookSecret),
		}),
		authValidator: authValidator,
	}
}

// Register registers all routes on the engine. Webhooks are guarded by
// signatures instead of bearer tokens.
func (p *Provider) Register(engine *gin.Engine) {
	p.V1.Register(engine, p.authValidator.Middleware())
}

// RouteProvider provides routes for wire.
var RouteProvider = wire.NewSet(
	NewProvider,
)
