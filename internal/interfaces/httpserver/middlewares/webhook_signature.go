package middlewares

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the raw body>".
	SignatureHeader = "X-Signature-256"

	maxWebhookBody = 1 << 20
)

// WebhookSignature verifies the HMAC-SHA256 signature of webhook bodies. An
// empty secret disables verification. The body is restored for the handler.
func WebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			platformerrors.WriteValidationError(c, "unreadable body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		signature := c.GetHeader(SignatureHeader)
		if signature == "" {
			platformerrors.WriteUnauthorized(c, "missing webhook signature")
			c.Abort()
			return
		}
		if !hmac.Equal([]byte(Sign(secret, body)), []byte(signature)) {
			platformerrors.WriteForbidden(c, "invalid webhook signature")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
