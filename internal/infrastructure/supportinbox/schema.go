package supportinbox

import (
	"time"

	"github.com/janhq/support-relay/internal/domain/provider"
)

const kindAttribute = "relay_kind"

type searchQuery struct {
	Query searchFilter `json:"query"`
}

type searchFilter struct {
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type contactDTO struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type contactListDTO struct {
	Data []contactDTO `json:"data"`
}

type createContactDTO struct {
	Role       string `json:"role"`
	ExternalID string `json:"external_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
}

type authorDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type partDTO struct {
	ID        string    `json:"id"`
	PartType  string    `json:"part_type"`
	Body      string    `json:"body"`
	CreatedAt int64     `json:"created_at"`
	Author    authorDTO `json:"author"`
}

type conversationDTO struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Contacts  struct {
		Contacts []struct {
			ID string `json:"id"`
		} `json:"contacts"`
	} `json:"contacts"`
	CustomAttributes  map[string]any `json:"custom_attributes"`
	ConversationParts struct {
		Parts []partDTO `json:"conversation_parts"`
	} `json:"conversation_parts"`
}

type conversationListDTO struct {
	Conversations []conversationDTO `json:"conversations"`
}

type conversationFromDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type createConversationDTO struct {
	From conversationFromDTO `json:"from"`
	Body string              `json:"body"`
}

type createdMessageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
}

type attachContactDTO struct {
	AdminID  string `json:"admin_id"`
	Customer struct {
		IntercomUserID string `json:"intercom_user_id"`
	} `json:"customer"`
}

type updateConversationDTO struct {
	CustomAttributes map[string]any `json:"custom_attributes"`
}

type partRequestDTO struct {
	MessageType string `json:"message_type"`
	Type        string `json:"type"`
	AdminID     string `json:"admin_id"`
}

type replyDTO struct {
	MessageType    string `json:"message_type"`
	Type           string `json:"type"`
	Body           string `json:"body"`
	AdminID        string `json:"admin_id,omitempty"`
	IntercomUserID string `json:"intercom_user_id,omitempty"`
}

func (c contactDTO) toDomain() provider.Contact {
	return provider.Contact{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Email:      c.Email,
		Name:       c.Name,
	}
}

func (c conversationDTO) toDomain() provider.Conversation {
	contactIDs := make([]string, 0, len(c.Contacts.Contacts))
	for _, contact := range c.Contacts.Contacts {
		contactIDs = append(contactIDs, contact.ID)
	}

	kind := provider.ConversationKindPersonal
	if raw, ok := c.CustomAttributes[kindAttribute].(string); ok && raw == string(provider.ConversationKindGroup) {
		kind = provider.ConversationKindGroup
	}

	parts := make([]provider.ConversationPart, 0, len(c.ConversationParts.Parts))
	for _, part := range c.ConversationParts.Parts {
		parts = append(parts, part.toDomain())
	}

	return provider.Conversation{
		ID:         c.ID,
		State:      provider.ConversationState(c.State),
		Kind:       kind,
		ContactIDs: contactIDs,
		CreatedAt:  unixTime(c.CreatedAt),
		UpdatedAt:  unixTime(c.UpdatedAt),
		Parts:      parts,
	}
}

func (p partDTO) toDomain() provider.ConversationPart {
	return provider.ConversationPart{
		ID:         p.ID,
		Body:       p.Body,
		AuthorType: provider.AuthorType(p.Author.Type),
		AuthorID:   p.Author.ID,
		AuthorName: p.Author.Name,
		CreatedAt:  unixTime(p.CreatedAt),
	}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
