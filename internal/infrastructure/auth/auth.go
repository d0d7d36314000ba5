// Package auth validates bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/config"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// ContextKeyToken is the gin key holding the parsed *jwt.Token.
const ContextKeyToken = "auth_token"

var errMissingToken = errors.New("missing bearer token")

// ErrSubjectMismatch is returned when a valid token belongs to another user.
var ErrSubjectMismatch = errors.New("token subject does not match user")

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// NewGivenValidator validates against a fixed key set instead of a JWKS URL.
func NewGivenValidator(cfg *config.Config, keys map[string]keyfunc.GivenKey, log zerolog.Logger) *Validator {
	return &Validator{
		cfg:  cfg,
		log:  log.With().Str("component", "auth").Logger(),
		jwks: keyfunc.NewGiven(keys),
	}
}

// Enabled reports whether tokens are checked at all.
func (v *Validator) Enabled() bool {
	return v != nil && v.cfg.AuthEnabled
}

// Validate parses and verifies a raw token.
func (v *Validator) Validate(tokenString string) (*jwt.Token, error) {
	if tokenString == "" {
		return nil, errMissingToken
	}
	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
		jwt.WithAudience(v.cfg.AuthAudience),
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return token, nil
}

// ValidateForUser validates the token and requires its sub claim to be userID.
func (v *Validator) ValidateForUser(tokenString string, userID uint) (*jwt.Token, error) {
	token, err := v.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	sub, _ := token.Claims.GetSubject()
	if !SubjectMatches(sub, userID) {
		return nil, ErrSubjectMismatch
	}
	return token, nil
}

// SubjectMatches reports whether a token subject names the local user.
func SubjectMatches(sub string, userID uint) bool {
	return sub != "" && sub == strconv.FormatUint(uint64(userID), 10)
}

// AuthorizeUser checks that the request acts as userID. Requests that went
// through the middleware without auth enabled carry no token and pass.
func AuthorizeUser(c *gin.Context, userID uint) error {
	if _, ok := c.Get(ContextKeyToken); !ok {
		return nil
	}
	if !SubjectMatches(Subject(c), userID) {
		return ErrSubjectMismatch
	}
	return nil
}

// Middleware enforces JWT auth when enabled.
func (v *Validator) Middleware() gin.HandlerFunc {
	if !v.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := BearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := v.Validate(tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("rejected token")
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

// Subject returns the sub claim of the request's token, if any.
func Subject(c *gin.Context) string {
	value, ok := c.Get(ContextKeyToken)
	if !ok {
		return ""
	}
	token, ok := value.(*jwt.Token)
	if !ok {
		return ""
	}
	sub, _ := token.Claims.GetSubject()
	return sub
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	platformerrors.WriteUnauthorized(c, message)
	c.Abort()
}
