package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/support-relay/internal/interfaces/httpserver/handlers"
)

// WebhookGuards verify provider webhook signatures.
type WebhookGuards struct {
	Ticketing gin.HandlerFunc
	Inbox     gin.HandlerFunc
}

// Routes registers the v1 API.
type Routes struct {
	handlers *handlers.Provider
	guards   WebhookGuards
}

func NewRoutes(handlerProvider *handlers.Provider, guards WebhookGuards) *Routes {
	return &Routes{handlers: handlerProvider, guards: guards}
}

// Register mounts the authenticated app routes and the provider webhooks.
func (r *Routes) Register(engine *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := engine.Group("/v1")

	webhooks := api.Group("/webhooks")
	webhooks.POST("/ticketing", r.guards.Ticketing, r.handlers.Webhook.Ticketing)
	webhooks.POST("/inbox", r.guards.Inbox, r.handlers.Webhook.Inbox)

	app := api.Group("")
	if authMiddleware != nil {
		app.Use(authMiddleware)
	}

	app.POST("/messages", r.handlers.Message.Send)

	app.POST("/users", r.handlers.User.Create)
	app.GET("/users/:id", r.handlers.User.Get)

	app.POST("/conversations/group", r.handlers.Conversation.CreateGroup)
	app.GET("/conversations/:conversation_id/messages", r.handlers.Conversation.ListMessages)
	app.POST("/conversations/:conversation_id/participants", r.handlers.Conversation.AddParticipants)
}
