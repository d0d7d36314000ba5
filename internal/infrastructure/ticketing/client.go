package ticketing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/infrastructure/httpclient"
	"github.com/janhq/support-relay/internal/infrastructure/metrics"
	"github.com/janhq/support-relay/internal/infrastructure/observability"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

const pageSize = 100

// Config holds the settings for the ticketing API.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
	Timeout  time.Duration
	// MaxPages bounds the list fallback used when search is unavailable.
	MaxPages int
}

// Client implements provider.TicketingClient against a Zendesk-style REST API.
type Client struct {
	httpClient *resty.Client
	maxPages   int
	log        zerolog.Logger
}

// NewClient creates a ticketing client authenticated with an API token.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	log = log.With().Str("component", "ticketing-client").Logger()
	httpClient := httpclient.NewClient("ticketingClient", log).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.Email != "" {
		httpClient.SetBasicAuth(cfg.Email+"/token", cfg.APIToken)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Client{httpClient: httpClient, maxPages: maxPages, log: log}
}

// Close releases idle connections held by the underlying client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// SearchTicketsByTag runs a ticket search restricted to tag.
func (c *Client) SearchTicketsByTag(ctx context.Context, tag string) ([]provider.Ticket, error) {
	var out searchResultDTO
	err := c.call(ctx, "search_tickets", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("query", fmt.Sprintf("type:ticket tags:%s", tag)).
			SetResult(&out).
			Get("/api/v2/search.json")
	})
	if err != nil {
		return nil, err
	}
	return c.tickets(ctx, "search_tickets", out.Results)
}

// ListTickets follows next_page links up to the configured page bound.
func (c *Client) ListTickets(ctx context.Context) ([]provider.Ticket, error) {
	var all []provider.Ticket
	next := "/api/v2/tickets.json?per_page=" + strconv.Itoa(pageSize)
	for page := 0; page < c.maxPages && next != ""; page++ {
		var out ticketPageDTO
		url := next
		err := c.call(ctx, "list_tickets", func(r *resty.Request) (*resty.Response, error) {
			return r.SetResult(&out).Get(url)
		})
		if err != nil {
			return nil, err
		}
		tickets, err := c.tickets(ctx, "list_tickets", out.Tickets)
		if err != nil {
			return nil, err
		}
		all = append(all, tickets...)

		next = ""
		if out.NextPage != nil {
			next = *out.NextPage
		}
	}
	if next != "" {
		c.log.Warn().Int("max_pages", c.maxPages).Int("tickets", len(all)).Msg("ticket list truncated at page bound")
	}
	return all, nil
}

// CreateTicket opens a new ticket.
func (c *Client) CreateTicket(ctx context.Context, req provider.CreateTicketRequest) (*provider.Ticket, error) {
	var out ticketEnvelope
	err := c.call(ctx, "create_ticket", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]any{"ticket": createTicketDTO{
			Subject:     req.Subject,
			Comment:     commentFromDomain(req.Comment),
			Priority:    string(req.Priority),
			Status:      string(req.Status),
			Tags:        req.Tags,
			RequesterID: req.RequesterID,
		}}).SetResult(&out).Post("/api/v2/tickets.json")
	})
	if err != nil {
		return nil, err
	}
	return c.ticket(ctx, "create_ticket", out.Ticket)
}

// UpdateTicket appends a comment and sets the status.
func (c *Client) UpdateTicket(ctx context.Context, ticketID int64, req provider.UpdateTicketRequest) (*provider.Ticket, error) {
	var out ticketEnvelope
	err := c.call(ctx, "update_ticket", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]any{"ticket": updateTicketDTO{
			Comment: commentFromDomain(req.Comment),
			Status:  string(req.Status),
		}}).SetResult(&out).Put(fmt.Sprintf("/api/v2/tickets/%d.json", ticketID))
	})
	if err != nil {
		return nil, err
	}
	return c.ticket(ctx, "update_ticket", out.Ticket)
}

// FindUserByEmail looks up a ticketing user by exact email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*provider.TicketUser, error) {
	var out userListDTO
	err := c.call(ctx, "search_users", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("query", "email:"+email).SetResult(&out).Get("/api/v2/users/search.json")
	})
	if err != nil {
		return nil, err
	}
	for _, user := range out.Users {
		if user.ID == 0 {
			return nil, c.malformed(ctx, "search_users", "user without id")
		}
		if strings.EqualFold(user.Email, email) {
			found := user.toDomain()
			return &found, nil
		}
	}
	return nil, nil
}

// CreateUser creates an end-user identity.
func (c *Client) CreateUser(ctx context.Context, name, email string) (*provider.TicketUser, error) {
	var out userEnvelope
	err := c.call(ctx, "create_user", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]any{"user": userDTO{
			Name:     name,
			Email:    email,
			Role:     "end-user",
			Verified: true,
		}}).SetResult(&out).Post("/api/v2/users.json")
	})
	if err != nil {
		return nil, err
	}
	if out.User.ID == 0 {
		return nil, c.malformed(ctx, "create_user", "user without id")
	}
	user := out.User.toDomain()
	return &user, nil
}

func (c *Client) tickets(ctx context.Context, op string, in []ticketDTO) ([]provider.Ticket, error) {
	out := make([]provider.Ticket, 0, len(in))
	for _, dto := range in {
		if dto.ID == 0 {
			return nil, c.malformed(ctx, op, "ticket without id")
		}
		out = append(out, dto.toDomain())
	}
	return out, nil
}

func (c *Client) ticket(ctx context.Context, op string, dto ticketDTO) (*provider.Ticket, error) {
	if dto.ID == 0 {
		return nil, c.malformed(ctx, op, "ticket without id")
	}
	ticket := dto.toDomain()
	return &ticket, nil
}

func (c *Client) call(ctx context.Context, op string, do func(*resty.Request) (*resty.Response, error)) error {
	started := time.Now()
	resp, err := do(c.httpClient.R().SetContext(ctx))
	switch {
	case err != nil:
		err = platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("ticketing %s request failed", op), err, "137bc09f-ab85-4e0f-beb8-27f8e39c32b4")
	case resp.IsError():
		err = platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("ticketing %s returned %d", op, resp.StatusCode()),
			&provider.ProviderError{
				Provider:   provider.NameTicketing,
				Operation:  op,
				StatusCode: resp.StatusCode(),
				Body:       observability.Sanitize(resp.String()),
			}, "1cadebee-844e-4391-beeb-338b78825ff0")
	}
	metrics.RecordProviderCall(provider.NameTicketing, op, started, err)
	return err
}

func (c *Client) malformed(ctx context.Context, op, detail string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		fmt.Sprintf("ticketing %s returned a malformed payload: %s", op, detail), nil, "564c3cb8-cb31-4f22-9296-45c959ca07a6")
}

var _ provider.TicketingClient = (*Client)(nil)
