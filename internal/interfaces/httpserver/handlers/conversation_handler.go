package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// ConversationHandler exposes support-inbox conversations to the app.
type ConversationHandler struct {
	service provisioning.Service
	log     zerolog.Logger
}

func NewConversationHandler(service provisioning.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// ListMessages handles GET /v1/conversations/:conversation_id/messages
// @Summary List conversation messages
// @Description Returns the support-inbox conversation parts as plain text. Provider failures return an empty list.
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Support-inbox conversation ID"
// @Success 200 {object} responses.ConversationMessagesResponse
// @Failure 400 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/conversations/{conversation_id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	messages, err := h.service.ListConversationMessages(c.Request.Context(), conversationID)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversation messages")
		return
	}

	c.JSON(http.StatusOK, responses.ConversationMessagesResponse{ConversationID: conversationID, Data: messages})
}

// AddParticipants handles POST /v1/conversations/:conversation_id/participants
// @Summary Add participants
// @Description Adds users to the group pinned to the conversation and attaches their contacts to it
// @Tags Conversations
// @Accept json
// @Produce json
// @Param conversation_id path string true "Support-inbox conversation ID"
// @Param request body requests.AddParticipantsRequest true "Users to add"
// @Success 200 {object} responses.AddParticipantsResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/conversations/{conversation_id}/participants [post]
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	var req requests.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid participants payload: "+err.Error())
		return
	}

	result, err := h.service.AddParticipants(c.Request.Context(), c.Param("conversation_id"), req.UserIDs)
	if err != nil {
		responses.HandleError(c, err, "failed to add participants")
		return
	}

	c.JSON(http.StatusOK, responses.NewAddParticipantsResponse(result))
}

// CreateGroup handles POST /v1/conversations/group
// @Summary Bootstrap a group conversation
// @Description Resolves the support-inbox group conversation for the owner and members and returns the local group pinned to it
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body requests.CreateGroupConversationRequest true "Group"
// @Success 201 {object} responses.ProvisionResponse
// @Success 200 {object} responses.ProvisionResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/conversations/group [post]
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req requests.CreateGroupConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid group payload: "+err.Error())
		return
	}

	result, err := h.service.BootstrapGroupConversation(c.Request.Context(), provisioning.BootstrapGroupParams{
		Name:      req.Name,
		OwnerID:   req.OwnerID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create group conversation")
		return
	}

	status := http.StatusOK
	if result.ConversationCreated {
		status = http.StatusCreated
	}
	c.JSON(status, responses.NewProvisionResponse(result))
}
