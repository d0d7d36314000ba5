package supportinbox

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/infrastructure/metrics"
	"github.com/janhq/support-relay/internal/infrastructure/observability"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// Config holds the settings for the support-inbox API.
type Config struct {
	BaseURL     string
	AccessToken string
	AdminID     string
	APIVersion  string
	Timeout     time.Duration
}

// Client implements provider.InboxClient against an Intercom-style REST API.
type Client struct {
	httpClient *resty.Client
	adminID    string
	log        zerolog.Logger
}

// NewClient creates a Resty-backed client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.AccessToken != "" {
		httpClient.SetAuthToken(cfg.AccessToken)
	}
	if cfg.APIVersion != "" {
		httpClient.SetHeader("Intercom-Version", cfg.APIVersion)
	}
	return &Client{
		httpClient: httpClient,
		adminID:    cfg.AdminID,
		log:        log.With().Str("component", "support-inbox-client").Logger(),
	}
}

// FindContactByExternalID searches contacts by the relay's external id.
func (c *Client) FindContactByExternalID(ctx context.Context, externalID string) (*provider.Contact, error) {
	var out contactListDTO
	err := c.call(ctx, "search_contacts", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(searchQuery{Query: searchFilter{Field: "external_id", Operator: "=", Value: externalID}}).
			SetResult(&out).
			Post("/contacts/search")
	})
	if err != nil {
		return nil, err
	}
	for _, contact := range out.Data {
		if contact.ID == "" {
			return nil, c.malformed(ctx, "search_contacts", "contact without id")
		}
		if contact.ExternalID == externalID {
			found := contact.toDomain()
			return &found, nil
		}
	}
	return nil, nil
}

// CreateContact creates a user-role contact.
func (c *Client) CreateContact(ctx context.Context, req provider.CreateContactRequest) (*provider.Contact, error) {
	var out contactDTO
	err := c.call(ctx, "create_contact", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(createContactDTO{
			Role:       "user",
			ExternalID: req.ExternalID,
			Email:      req.Email,
			Name:       req.Name,
		}).SetResult(&out).Post("/contacts")
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, c.malformed(ctx, "create_contact", "contact without id")
	}
	contact := out.toDomain()
	return &contact, nil
}

// ListConversationsByContact returns every conversation the contact takes part in.
func (c *Client) ListConversationsByContact(ctx context.Context, contactID string) ([]provider.Conversation, error) {
	return c.searchConversations(ctx, "list_conversations", searchFilter{
		Field:    "contact_ids",
		Operator: "=",
		Value:    contactID,
	})
}

// SearchGroupConversations returns group-kind conversations involving any of contactIDs.
func (c *Client) SearchGroupConversations(ctx context.Context, contactIDs []string) ([]provider.Conversation, error) {
	return c.searchConversations(ctx, "search_group_conversations", searchFilter{
		Operator: "AND",
		Value: []searchFilter{
			{Field: "contact_ids", Operator: "IN", Value: contactIDs},
			{Field: "custom_attribute." + kindAttribute, Operator: "=", Value: string(provider.ConversationKindGroup)},
		},
	})
}

func (c *Client) searchConversations(ctx context.Context, op string, filter searchFilter) ([]provider.Conversation, error) {
	var out conversationListDTO
	err := c.call(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(searchQuery{Query: filter}).SetResult(&out).Post("/conversations/search")
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]provider.Conversation, 0, len(out.Conversations))
	for _, dto := range out.Conversations {
		if dto.ID == "" {
			return nil, c.malformed(ctx, op, "conversation without id")
		}
		conversations = append(conversations, dto.toDomain())
	}
	return conversations, nil
}

// CreateConversation opens a conversation from the first contact, attaches the others
// and stamps the conversation kind.
func (c *Client) CreateConversation(ctx context.Context, req provider.CreateConversationRequest) (*provider.Conversation, error) {
	if len(req.ContactIDs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation, "conversation needs at least one contact", nil, "a9a0d1c0-c322-488f-8cee-3f02cc7fd6ca")
	}

	var created createdMessageDTO
	err := c.call(ctx, "create_conversation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(createConversationDTO{
			From: conversationFromDTO{Type: "user", ID: req.ContactIDs[0]},
			Body: req.Body,
		}).SetResult(&created).Post("/conversations")
	})
	if err != nil {
		return nil, err
	}
	if created.ConversationID == "" {
		return nil, c.malformed(ctx, "create_conversation", "message without conversation_id")
	}

	for _, contactID := range req.ContactIDs[1:] {
		if err := c.attachContact(ctx, created.ConversationID, contactID); err != nil {
			return nil, err
		}
	}

	kind := provider.ConversationKindFor(len(req.ContactIDs))
	var out conversationDTO
	err = c.call(ctx, "tag_conversation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(updateConversationDTO{CustomAttributes: map[string]any{kindAttribute: string(kind)}}).
			SetResult(&out).
			Put("/conversations/" + url.PathEscape(created.ConversationID))
	})
	if err != nil {
		return nil, err
	}

	conversation := out.toDomain()
	if conversation.ID == "" {
		conversation.ID = created.ConversationID
	}
	conversation.Kind = kind
	if conversation.State == "" {
		conversation.State = provider.ConversationOpen
	}
	if len(conversation.ContactIDs) == 0 {
		conversation.ContactIDs = append([]string(nil), req.ContactIDs...)
	}
	return &conversation, nil
}

// AddContacts attaches contactIDs to the conversation and re-tags it as a group conversation.
func (c *Client) AddContacts(ctx context.Context, conversationID string, contactIDs []string) error {
	if len(contactIDs) == 0 {
		return nil
	}
	for _, contactID := range contactIDs {
		if err := c.attachContact(ctx, conversationID, contactID); err != nil {
			return err
		}
	}
	return c.call(ctx, "tag_conversation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(updateConversationDTO{CustomAttributes: map[string]any{kindAttribute: string(provider.ConversationKindGroup)}}).
			Put("/conversations/" + url.PathEscape(conversationID))
	})
}

func (c *Client) attachContact(ctx context.Context, conversationID, contactID string) error {
	body := attachContactDTO{AdminID: c.adminID}
	body.Customer.IntercomUserID = contactID
	return c.call(ctx, "attach_contact", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(body).Post("/conversations/" + url.PathEscape(conversationID) + "/customers")
	})
}

// GetConversation fetches a conversation with its parts.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*provider.Conversation, error) {
	var out conversationDTO
	err := c.call(ctx, "get_conversation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/conversations/" + url.PathEscape(conversationID))
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, c.malformed(ctx, "get_conversation", "conversation without id")
	}
	conversation := out.toDomain()
	return &conversation, nil
}

// ReopenConversation transitions a closed or snoozed conversation back to open.
func (c *Client) ReopenConversation(ctx context.Context, conversationID string) error {
	return c.call(ctx, "reopen_conversation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(partRequestDTO{MessageType: "open", Type: "admin", AdminID: c.adminID}).
			Post("/conversations/" + url.PathEscape(conversationID) + "/parts")
	})
}

// ReplyAsUser posts body on behalf of the contact.
func (c *Client) ReplyAsUser(ctx context.Context, conversationID, contactID, body string) (*provider.Reply, error) {
	return c.reply(ctx, conversationID, replyDTO{
		MessageType:    "comment",
		Type:           "user",
		Body:           body,
		IntercomUserID: contactID,
	})
}

// ReplyAsAdmin posts body as the configured admin.
func (c *Client) ReplyAsAdmin(ctx context.Context, conversationID, body string) (*provider.Reply, error) {
	return c.reply(ctx, conversationID, replyDTO{
		MessageType: "comment",
		Type:        "admin",
		Body:        body,
		AdminID:     c.adminID,
	})
}

func (c *Client) reply(ctx context.Context, conversationID string, body replyDTO) (*provider.Reply, error) {
	var out conversationDTO
	err := c.call(ctx, "reply_"+body.Type, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(body).SetResult(&out).Post("/conversations/" + url.PathEscape(conversationID) + "/reply")
	})
	if err != nil {
		return nil, err
	}

	reply := &provider.Reply{ConversationID: conversationID}
	if parts := out.ConversationParts.Parts; len(parts) > 0 {
		reply.PartID = parts[len(parts)-1].ID
	}
	return reply, nil
}

func (c *Client) call(ctx context.Context, op string, do func(*resty.Request) (*resty.Response, error)) error {
	started := time.Now()
	resp, err := do(c.httpClient.R().SetContext(ctx))
	switch {
	case err != nil:
		err = platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("support inbox %s request failed", op), err, "4932cd79-a934-4102-9f57-c5cb5f4fe1af")
	case resp.IsError():
		err = platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("support inbox %s returned %d", op, resp.StatusCode()),
			&provider.ProviderError{
				Provider:   provider.NameInbox,
				Operation:  op,
				StatusCode: resp.StatusCode(),
				Body:       observability.Sanitize(resp.String()),
			}, "3c6d661c-bd6b-416f-bb09-80acfec51416")
	}
	metrics.RecordProviderCall(provider.NameInbox, op, started, err)
	if err != nil {
		c.log.Debug().Err(err).Str("operation", op).Msg("support inbox call failed")
	}
	return err
}

func (c *Client) malformed(ctx context.Context, op, detail string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		fmt.Sprintf("support inbox %s returned a malformed payload: %s", op, detail), nil, "2ee55c81-f4ce-4a83-926c-e6cb561838e2")
}

var _ provider.InboxClient = (*Client)(nil)
