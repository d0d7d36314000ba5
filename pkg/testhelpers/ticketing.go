package testhelpers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/janhq/support-relay/internal/domain/provider"
)

// TicketUpdate records one update call.
type TicketUpdate struct {
	TicketID int64
	Request  provider.UpdateTicketRequest
}

// FakeTicketing is an in-memory provider.TicketingClient.
type FakeTicketing struct {
	mu      sync.Mutex
	seq     int64
	clock   time.Time
	tickets map[int64]*provider.Ticket
	users   map[string]provider.TicketUser

	Created      []provider.CreateTicketRequest
	Updates      []TicketUpdate
	UsersCreated int
	ListCalls    int
	// FailOn makes the named operation return the error.
	FailOn map[string]error
}

func NewFakeTicketing() *FakeTicketing {
	return &FakeTicketing{
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		tickets: make(map[int64]*provider.Ticket),
		users:   make(map[string]provider.TicketUser),
		FailOn:  make(map[string]error),
	}
}

func (f *FakeTicketing) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// SeedTicket stores a ticket as if it already existed at the provider.
func (f *FakeTicketing) SeedTicket(ticket provider.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := ticket
	f.tickets[t.ID] = &t
	if t.ID > f.seq {
		f.seq = t.ID
	}
}

// SeedUser stores a ticketing user.
func (f *FakeTicketing) SeedUser(user provider.TicketUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[strings.ToLower(user.Email)] = user
	if user.ID > f.seq {
		f.seq = user.ID
	}
}

// Ticket returns a copy of the stored ticket.
func (f *FakeTicketing) Ticket(id int64) (provider.Ticket, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return provider.Ticket{}, false
	}
	return *t, true
}

// TicketsTagged returns every stored ticket carrying tag.
func (f *FakeTicketing) TicketsTagged(tag string) []provider.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Ticket
	for _, t := range f.tickets {
		if t.HasTag(tag) {
			out = append(out, *t)
		}
	}
	return out
}

func (f *FakeTicketing) SearchTicketsByTag(ctx context.Context, tag string) ([]provider.Ticket, error) {
	if err := f.FailOn["search_tickets"]; err != nil {
		return nil, err
	}
	return f.TicketsTagged(tag), nil
}

func (f *FakeTicketing) ListTickets(ctx context.Context) ([]provider.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if err := f.FailOn["list_tickets"]; err != nil {
		return nil, err
	}
	out := make([]provider.Ticket, 0, len(f.tickets))
	for _, t := range f.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (f *FakeTicketing) CreateTicket(ctx context.Context, req provider.CreateTicketRequest) (*provider.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailOn["create_ticket"]; err != nil {
		return nil, err
	}
	f.seq++
	now := f.tick()
	t := &provider.Ticket{
		ID:          f.seq,
		Subject:     req.Subject,
		Status:      req.Status,
		Tags:        append([]string(nil), req.Tags...),
		RequesterID: req.RequesterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tickets[t.ID] = t
	f.Created = append(f.Created, req)
	out := *t
	return &out, nil
}

func (f *FakeTicketing) UpdateTicket(ctx context.Context, ticketID int64, req provider.UpdateTicketRequest) (*provider.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailOn["update_ticket"]; err != nil {
		return nil, err
	}
	t, ok := f.tickets[ticketID]
	if !ok {
		return nil, &provider.ProviderError{Provider: provider.NameTicketing, Operation: "update_ticket", StatusCode: 404, Body: "RecordNotFound"}
	}
	if req.Status != "" {
		t.Status = req.Status
	}
	t.UpdatedAt = f.tick()
	f.Updates = append(f.Updates, TicketUpdate{TicketID: ticketID, Request: req})
	out := *t
	return &out, nil
}

func (f *FakeTicketing) FindUserByEmail(ctx context.Context, email string) (*provider.TicketUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailOn["search_users"]; err != nil {
		return nil, err
	}
	user, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (f *FakeTicketing) CreateUser(ctx context.Context, name, email string) (*provider.TicketUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailOn["create_user"]; err != nil {
		return nil, err
	}
	f.seq++
	user := provider.TicketUser{ID: f.seq, Name: name, Email: email, Role: "end-user"}
	f.users[strings.ToLower(email)] = user
	f.UsersCreated++
	return &user, nil
}

var _ provider.TicketingClient = (*FakeTicketing)(nil)
