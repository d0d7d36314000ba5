package responses

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// HandleError writes err as a JSON error response. Non-platform errors become 500s.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Str("op", message).Logger()
	platformerrors.WriteError(c, err, logger)
}

// HandleNewError writes a route-level error such as a malformed body.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, "")
	platformerrors.WriteHTTPError(c, err, zerolog.Nop())
}
