// Package testhelpers provides in-memory provider fakes for tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/janhq/support-relay/internal/domain/provider"
)

// InboxReply records one reply call.
type InboxReply struct {
	ConversationID string
	ContactID      string
	Body           string
	AsAdmin        bool
	PartID         string
}

// FakeInbox is an in-memory provider.InboxClient.
type FakeInbox struct {
	mu            sync.Mutex
	seq           int
	clock         time.Time
	contacts      map[string]provider.Contact
	conversations map[string]*provider.Conversation

	ContactsCreated      int
	ConversationsCreated int
	Reopened             []string
	Replies              []InboxReply
	// FailOn makes the named operation return the error.
	FailOn map[string]error
}

func NewFakeInbox() *FakeInbox {
	return &FakeInbox{
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		contacts:      make(map[string]provider.Contact),
		conversations: make(map[string]*provider.Conversation),
		FailOn:        make(map[string]error),
	}
}

func (f *FakeInbox) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *FakeInbox) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// SeedContact stores a contact as if it already existed at the provider.
func (f *FakeInbox) SeedContact(contact provider.Contact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[contact.ID] = contact
}

// SeedConversation stores a conversation as if it already existed at the provider.
func (f *FakeInbox) SeedConversation(conversation provider.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := conversation
	f.conversations[c.ID] = &c
}

// Conversation returns a copy of the stored conversation.
func (f *FakeInbox) Conversation(id string) (provider.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return provider.Conversation{}, false
	}
	return *c, true
}

// RepliesTo returns the replies posted to conversationID.
func (f *FakeInbox) RepliesTo(conversationID string) []InboxReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InboxReply
	for _, reply := range f.Replies {
		if reply.ConversationID == conversationID {
			out = append(out, reply)
		}
	}
	return out
}

func (f *FakeInbox) fail(op string) error {
	return f.FailOn[op]
}

func (f *FakeInbox) FindContactByExternalID(ctx context.Context, externalID string) (*provider.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("search_contacts"); err != nil {
		return nil, err
	}
	for _, contact := range f.contacts {
		if contact.ExternalID == externalID {
			c := contact
			return &c, nil
		}
	}
	return nil, nil
}

func (f *FakeInbox) CreateContact(ctx context.Context, req provider.CreateContactRequest) (*provider.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_contact"); err != nil {
		return nil, err
	}
	contact := provider.Contact{ID: f.nextID("contact-"), ExternalID: req.ExternalID, Email: req.Email, Name: req.Name}
	f.contacts[contact.ID] = contact
	f.ContactsCreated++
	return &contact, nil
}

func (f *FakeInbox) ListConversationsByContact(ctx context.Context, contactID string) ([]provider.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list_conversations"); err != nil {
		return nil, err
	}
	var out []provider.Conversation
	for _, c := range f.conversations {
		for _, id := range c.ContactIDs {
			if id == contactID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *FakeInbox) SearchGroupConversations(ctx context.Context, contactIDs []string) ([]provider.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("search_group_conversations"); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		wanted[id] = struct{}{}
	}
	var out []provider.Conversation
	for _, c := range f.conversations {
		if c.Kind != provider.ConversationKindGroup {
			continue
		}
		for _, id := range c.ContactIDs {
			if _, ok := wanted[id]; ok {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *FakeInbox) CreateConversation(ctx context.Context, req provider.CreateConversationRequest) (*provider.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_conversation"); err != nil {
		return nil, err
	}
	now := f.tick()
	c := &provider.Conversation{
		ID:         f.nextID(""),
		State:      provider.ConversationOpen,
		Kind:       provider.ConversationKindFor(len(req.ContactIDs)),
		ContactIDs: append([]string(nil), req.ContactIDs...),
		CreatedAt:  now,
		UpdatedAt:  now,
		Parts: []provider.ConversationPart{{
			ID:         f.nextID("part-"),
			Body:       req.Body,
			AuthorType: provider.AuthorUser,
			AuthorID:   req.ContactIDs[0],
			CreatedAt:  now,
		}},
	}
	f.conversations[c.ID] = c
	f.ConversationsCreated++
	out := *c
	return &out, nil
}

func (f *FakeInbox) GetConversation(ctx context.Context, conversationID string) (*provider.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get_conversation"); err != nil {
		return nil, err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return nil, &provider.ProviderError{Provider: provider.NameInbox, Operation: "get_conversation", StatusCode: 404, Body: "not found"}
	}
	out := *c
	out.Parts = append([]provider.ConversationPart(nil), c.Parts...)
	return &out, nil
}

func (f *FakeInbox) ReopenConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("reopen_conversation"); err != nil {
		return err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return &provider.ProviderError{Provider: provider.NameInbox, Operation: "reopen_conversation", StatusCode: 404, Body: "not found"}
	}
	c.State = provider.ConversationOpen
	c.UpdatedAt = f.tick()
	f.Reopened = append(f.Reopened, conversationID)
	return nil
}

func (f *FakeInbox) AddContacts(ctx context.Context, conversationID string, contactIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("add_contacts"); err != nil {
		return err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return &provider.ProviderError{Provider: provider.NameInbox, Operation: "attach_contact", StatusCode: 404, Body: "not found"}
	}
	for _, id := range contactIDs {
		present := false
		for _, existing := range c.ContactIDs {
			if existing == id {
				present = true
				break
			}
		}
		if !present {
			c.ContactIDs = append(c.ContactIDs, id)
		}
	}
	c.Kind = provider.ConversationKindGroup
	c.UpdatedAt = f.tick()
	return nil
}

func (f *FakeInbox) ReplyAsUser(ctx context.Context, conversationID, contactID, body string) (*provider.Reply, error) {
	return f.reply(conversationID, contactID, body, false)
}

func (f *FakeInbox) ReplyAsAdmin(ctx context.Context, conversationID, body string) (*provider.Reply, error) {
	return f.reply(conversationID, "", body, true)
}

func (f *FakeInbox) reply(conversationID, contactID, body string, asAdmin bool) (*provider.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "reply_user"
	author := provider.AuthorUser
	if asAdmin {
		op = "reply_admin"
		author = provider.AuthorAdmin
	}
	if err := f.fail(op); err != nil {
		return nil, err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return nil, &provider.ProviderError{Provider: provider.NameInbox, Operation: op, StatusCode: 404, Body: "not found"}
	}
	part := provider.ConversationPart{
		ID:         f.nextID("part-"),
		Body:       body,
		AuthorType: author,
		AuthorID:   contactID,
		CreatedAt:  f.tick(),
	}
	c.Parts = append(c.Parts, part)
	c.UpdatedAt = part.CreatedAt
	f.Replies = append(f.Replies, InboxReply{
		ConversationID: conversationID,
		ContactID:      contactID,
		Body:           body,
		AsAdmin:        asAdmin,
		PartID:         part.ID,
	})
	return &provider.Reply{ConversationID: conversationID, PartID: part.ID}, nil
}

var _ provider.InboxClient = (*FakeInbox)(nil)
