package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// WebhookHandler receives provider callbacks. Events the relay does not act on
// are acknowledged with 200 so providers stop retrying them.
type WebhookHandler struct {
	relay relay.Service
	log   zerolog.Logger
}

func NewWebhookHandler(service relay.Service, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		relay: service,
		log:   log.With().Str("handler", "webhook").Logger(),
	}
}

// Ticketing handles POST /v1/webhooks/ticketing
// @Summary Ticketing webhook
// @Description Relays public agent comments from the ticketing system to the support inbox and the app
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Signature-256 header string false "sha256=<hex hmac of the body>"
// @Param request body relay.TicketEvent true "Ticket event"
// @Success 200 {object} responses.WebhookAck
// @Failure 400 {object} responses.ErrorResponse
// @Failure 401 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /v1/webhooks/ticketing [post]
func (h *WebhookHandler) Ticketing(c *gin.Context) {
	var event relay.TicketEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid ticket event: "+err.Error())
		return
	}

	result, err := h.relay.HandleTicketEvent(c.Request.Context(), event)
	if err != nil {
		responses.HandleError(c, err, "failed to relay ticket event")
		return
	}

	ack := responses.NewWebhookAck(result)
	h.log.Debug().Str("type", event.Type).Int64("ticket_id", event.Ticket.ID).Str("status", ack.Status).Msg("ticket event handled")
	c.JSON(http.StatusOK, ack)
}

// Inbox handles POST /v1/webhooks/inbox
// @Summary Support-inbox webhook
// @Description Relays admin replies from the support inbox to the ticketing system and the app
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Signature-256 header string false "sha256=<hex hmac of the body>"
// @Param request body relay.InboxEvent true "Inbox notification"
// @Success 200 {object} responses.WebhookAck
// @Failure 400 {object} responses.ErrorResponse
// @Failure 401 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /v1/webhooks/inbox [post]
func (h *WebhookHandler) Inbox(c *gin.Context) {
	var event relay.InboxEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid inbox event: "+err.Error())
		return
	}

	result, err := h.relay.HandleInboxEvent(c.Request.Context(), event)
	if err != nil {
		responses.HandleError(c, err, "failed to relay inbox event")
		return
	}

	ack := responses.NewWebhookAck(result)
	h.log.Debug().Str("topic", event.Topic).Str("conversation_id", event.Data.Item.ID).Str("status", ack.Status).Msg("inbox event handled")
	c.JSON(http.StatusOK, ack)
}
