package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

func setupWebhookRouter(service relay.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := handlers.NewWebhookHandler(service, zerolog.Nop())
	router.POST("/v1/webhooks/ticketing", handler.Ticketing)
	router.POST("/v1/webhooks/inbox", handler.Inbox)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTicketWebhookDelivered(t *testing.T) {
	var got relay.TicketEvent
	router := setupWebhookRouter(&MockRelayService{
		HandleTicketEventFunc: func(ctx context.Context, event relay.TicketEvent) (*relay.Result, error) {
			got = event
			return &relay.Result{State: relay.StateDelivered}, nil
		},
	})

	w := postJSON(router, "/v1/webhooks/ticketing", `{
		"type": "ticket.comment_added",
		"ticket": {"id": 7, "tags": ["conversation_42"], "requester_id": 300},
		"comment": {"id": 9, "body": "Try again", "is_public": true, "author": {"id": 55, "name": "Bob", "role": "agent"}}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var ack map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "delivered", ack["status"])

	assert.Equal(t, int64(7), got.Ticket.ID)
	require.NotNil(t, got.Comment)
	require.NotNil(t, got.Comment.Public)
	assert.True(t, *got.Comment.Public)
	assert.Equal(t, "Bob", got.Comment.Author.Name)
}

func TestTicketWebhookIgnoredIsOK(t *testing.T) {
	router := setupWebhookRouter(&MockRelayService{
		HandleTicketEventFunc: func(ctx context.Context, event relay.TicketEvent) (*relay.Result, error) {
			return &relay.Result{State: relay.StateIgnored, Reason: "private comment"}, nil
		},
	})

	w := postJSON(router, "/v1/webhooks/ticketing", `{"type":"ticket.comment_added","ticket":{"id":1}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var ack map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "ignored", ack["status"])
	assert.Equal(t, "private comment", ack["reason"])
}

func TestWebhookErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "comment body is required", nil, ""),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "provider failure",
			err:        platformerrors.AsError(context.Background(), platformerrors.LayerDomain, &provider.ProviderError{Provider: "inbox", StatusCode: 502}, "reply as admin"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupWebhookRouter(&MockRelayService{
				HandleTicketEventFunc: func(ctx context.Context, event relay.TicketEvent) (*relay.Result, error) {
					return nil, tt.err
				},
				HandleInboxEventFunc: func(ctx context.Context, event relay.InboxEvent) (*relay.Result, error) {
					return nil, tt.err
				},
			})

			w := postJSON(router, "/v1/webhooks/ticketing", `{"type":"ticket.comment_added"}`)
			assert.Equal(t, tt.wantStatus, w.Code)

			w = postJSON(router, "/v1/webhooks/inbox", `{"topic":"conversation.admin.replied"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	called := false
	router := setupWebhookRouter(&MockRelayService{
		HandleInboxEventFunc: func(ctx context.Context, event relay.InboxEvent) (*relay.Result, error) {
			called = true
			return nil, nil
		},
	})

	w := postJSON(router, "/v1/webhooks/inbox", `{"topic":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestInboxWebhookParsesParts(t *testing.T) {
	var got relay.InboxEvent
	router := setupWebhookRouter(&MockRelayService{
		HandleInboxEventFunc: func(ctx context.Context, event relay.InboxEvent) (*relay.Result, error) {
			got = event
			return &relay.Result{State: relay.StateDelivered}, nil
		},
	})

	w := postJSON(router, "/v1/webhooks/inbox", `{
		"topic": "conversation.admin.replied",
		"data": {"item": {"id": "42", "conversation_parts": {"conversation_parts": [
			{"id": "p1", "part_type": "comment", "body": "<p>Hello</p>", "author": {"id": "a1", "type": "admin", "name": "Bob"}}
		]}}}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", got.Data.Item.ID)
	require.Len(t, got.Data.Item.ConversationParts.Parts, 1)
	assert.Equal(t, "admin", got.Data.Item.ConversationParts.Parts[0].Author.Type)
}
