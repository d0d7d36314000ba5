package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupWebhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/hook", WebhookSignature(secret), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return router
}

func TestWebhookSignature(t *testing.T) {
	body := []byte(`{"type":"ticket.comment_added"}`)

	tests := []struct {
		name       string
		secret     string
		signature  string
		wantStatus int
	}{
		{name: "valid signature", secret: "s3cret", signature: Sign("s3cret", body), wantStatus: http.StatusOK},
		{name: "missing signature", secret: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "wrong signature", secret: "s3cret", signature: Sign("other", body), wantStatus: http.StatusForbidden},
		{name: "verification disabled", secret: "", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupWebhookRouter(tt.secret)
			req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, string(body), w.Body.String())
			}
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
}
