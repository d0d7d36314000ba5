package ticketing

import (
	"time"

	"github.com/janhq/support-relay/internal/domain/provider"
)

type ticketDTO struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	RequesterID int64     `json:"requester_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ticketEnvelope struct {
	Ticket ticketDTO `json:"ticket"`
}

type searchResultDTO struct {
	Results  []ticketDTO `json:"results"`
	NextPage *string     `json:"next_page"`
}

type ticketPageDTO struct {
	Tickets  []ticketDTO `json:"tickets"`
	NextPage *string     `json:"next_page"`
}

type commentDTO struct {
	Body     string `json:"body"`
	Public   bool   `json:"public"`
	AuthorID int64  `json:"author_id,omitempty"`
}

type createTicketDTO struct {
	Subject     string     `json:"subject"`
	Comment     commentDTO `json:"comment"`
	Priority    string     `json:"priority,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	RequesterID int64      `json:"requester_id,omitempty"`
}

type updateTicketDTO struct {
	Comment commentDTO `json:"comment"`
	Status  string     `json:"status,omitempty"`
}

type userDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified,omitempty"`
}

type userEnvelope struct {
	User userDTO `json:"user"`
}

type userListDTO struct {
	Users []userDTO `json:"users"`
}

func (t ticketDTO) toDomain() provider.Ticket {
	return provider.Ticket{
		ID:          t.ID,
		Subject:     t.Subject,
		Status:      provider.TicketStatus(t.Status),
		Tags:        t.Tags,
		RequesterID: t.RequesterID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (u userDTO) toDomain() provider.TicketUser {
	return provider.TicketUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func commentFromDomain(c provider.TicketComment) commentDTO {
	return commentDTO{Body: c.Body, Public: c.Public, AuthorID: c.AuthorID}
}
