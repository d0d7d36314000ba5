package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/infrastructure/auth"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// MessageHandler exposes the app-to-support relay over REST.
type MessageHandler struct {
	relay relay.Service
	log   zerolog.Logger
}

func NewMessageHandler(service relay.Service, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		relay: service,
		log:   log.With().Str("handler", "message").Logger(),
	}
}

// Send handles POST /v1/messages
// @Summary Send a message to support
// @Description Relays an app user's group message to the support inbox and ticketing system, then broadcasts it to the group
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body requests.SendMessageRequest true "Message"
// @Success 201 {object} responses.MessageResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid message payload: "+err.Error())
		return
	}

	if err := auth.AuthorizeUser(c, req.UserID); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "user_id does not match the authenticated user")
		return
	}

	msg, err := h.relay.SendAppMessage(c.Request.Context(), relay.SendParams{
		GroupID:     req.GroupID,
		UserID:      req.UserID,
		Content:     req.Content,
		MessageType: chat.MessageType(req.MessageType),
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to relay message")
		return
	}

	c.JSON(http.StatusCreated, responses.MessageResponse{Message: msg})
}
