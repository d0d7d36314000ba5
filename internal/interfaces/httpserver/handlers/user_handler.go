package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

type UserHandler struct {
	service provisioning.Service
	log     zerolog.Logger
}

func NewUserHandler(service provisioning.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With().Str("handler", "user").Logger(),
	}
}

// Create handles POST /v1/users
// @Summary Provision a user
// @Description Finds or creates a user by email together with its support-inbox contact and personal conversation
// @Tags Users
// @Accept json
// @Produce json
// @Param request body requests.CreateUserRequest true "User"
// @Success 201 {object} responses.ProvisionResponse
// @Success 200 {object} responses.ProvisionResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req requests.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid user payload: "+err.Error())
		return
	}

	result, err := h.service.ProvisionUser(c.Request.Context(), provisioning.ProvisionUserParams{Name: req.Name, Email: req.Email})
	if err != nil {
		responses.HandleError(c, err, "failed to provision user")
		return
	}

	status := http.StatusOK
	if result.ConversationCreated {
		status = http.StatusCreated
	}
	c.JSON(status, responses.NewProvisionResponse(result))
}

// Get handles GET /v1/users/:id
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} responses.UserResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid user id")
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), uint(id))
	if err != nil {
		responses.HandleError(c, err, "failed to get user")
		return
	}

	c.JSON(http.StatusOK, responses.UserResponse{User: user})
}
