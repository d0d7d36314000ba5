package httpclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

type startedAtKey struct{}

// NewClient returns a resty client that debug-logs every exchange under clientName.
func NewClient(clientName string, log zerolog.Logger) *resty.Client {
	client := resty.New()
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAtKey{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		startTime, _ := ctx.Value(startedAtKey{}).(time.Time)

		event := log.Debug().
			Str("request_id", platformerrors.RequestIDFromContext(ctx)).
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Dur("latency", time.Since(startTime))
		if raw := r.Request.RawRequest; raw != nil {
			event = event.
				Str("method", raw.Method).
				Str("path", raw.URL.Path).
				Str("query", raw.URL.RawQuery)
		}
		event.Msg("HTTP client request")
		return nil
	})
	return client
}
