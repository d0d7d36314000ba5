package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/infrastructure/lock"
	chatrepo "github.com/janhq/support-relay/internal/infrastructure/repository/chat"
	"github.com/janhq/support-relay/pkg/testhelpers"
)

type fixture struct {
	svc     *Service
	inbox   *testhelpers.FakeInbox
	tickets *testhelpers.FakeTicketing
	users   chat.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inbox := testhelpers.NewFakeInbox()
	tickets := testhelpers.NewFakeTicketing()
	users := chatrepo.NewInMemoryRepository().Users()
	svc := NewService(inbox, tickets, users, lock.NewLocalLocker(), Config{
		RequesterEmailDomain: "relay.test",
		Greeting:             "Hi",
	}, zerolog.Nop())
	return &fixture{svc: svc, inbox: inbox, tickets: tickets, users: users}
}

func (f *fixture) user(t *testing.T, name, email string) *chat.User {
	t.Helper()
	u := &chat.User{Name: name, Email: email}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestEnsureContactIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", "ana@example.com")

	first, err := f.svc.EnsureContact(ctx, u)
	require.NoError(t, err)
	require.True(t, first.HasContact())

	second, err := f.svc.EnsureContact(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, first.ContactID(), second.ContactID())
	assert.Equal(t, 1, f.inbox.ContactsCreated)
}

func TestEnsureContactReusesExistingProviderContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", "ana@example.com")
	f.inbox.SeedContact(provider.Contact{ID: "c-77", ExternalID: ContactExternalID(u)})

	stored, err := f.svc.EnsureContact(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "c-77", stored.ContactID())
	assert.Equal(t, 0, f.inbox.ContactsCreated)
}

func TestResolvePersonalConversationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.EnsureContact(ctx, f.user(t, "Ana", "ana@example.com"))
	require.NoError(t, err)

	first, err := f.svc.ResolveConversation(ctx, u, []string{u.ContactID()}, "Hello")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, provider.ConversationKindPersonal, first.Kind)

	second, err := f.svc.ResolveConversation(ctx, u, []string{u.ContactID()}, "Hello again")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.inbox.ConversationsCreated)
}

func TestResolvePersonalPicksMostRecentAndIgnoresGroups(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f.inbox.SeedConversation(provider.Conversation{ID: "9", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"a"}, UpdatedAt: base})
	f.inbox.SeedConversation(provider.Conversation{ID: "10", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"a"}, UpdatedAt: base})
	f.inbox.SeedConversation(provider.Conversation{ID: "8", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"a"}, UpdatedAt: base.Add(-time.Hour)})
	f.inbox.SeedConversation(provider.Conversation{ID: "11", State: provider.ConversationOpen, Kind: provider.ConversationKindGroup, ContactIDs: []string{"a", "b"}, UpdatedAt: base.Add(time.Hour)})

	handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"a"}, "")
	require.NoError(t, err)
	assert.Equal(t, "10", handle.ID)
}

func TestGroupParticipantMatchingIsExact(t *testing.T) {
	f := newFixture(t)
	f.inbox.SeedConversation(provider.Conversation{ID: "100", State: provider.ConversationOpen, Kind: provider.ConversationKindGroup, ContactIDs: []string{"A", "B"}})
	f.inbox.SeedConversation(provider.Conversation{ID: "101", State: provider.ConversationOpen, Kind: provider.ConversationKindGroup, ContactIDs: []string{"A", "B", "C", "D"}})

	handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"C", "A", "B"}, "hi all")
	require.NoError(t, err)
	assert.True(t, handle.Created)
	assert.NotEqual(t, "100", handle.ID)
	assert.NotEqual(t, "101", handle.ID)
	assert.Equal(t, provider.ConversationKindGroup, handle.Kind)

	again, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"B", "C", "A", "A"}, "")
	require.NoError(t, err)
	assert.Equal(t, handle.ID, again.ID)
	assert.Equal(t, 1, f.inbox.ConversationsCreated)
}

func TestGroupMatchingIgnoresPersonalKind(t *testing.T) {
	f := newFixture(t)
	f.inbox.SeedConversation(provider.Conversation{ID: "100", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"A", "B"}})

	handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"A", "B"}, "")
	require.NoError(t, err)
	assert.True(t, handle.Created)
}

func TestReopenOnStale(t *testing.T) {
	f := newFixture(t)
	f.inbox.SeedConversation(provider.Conversation{ID: "5", State: provider.ConversationClosed, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"a"}})

	handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"a"}, "")
	require.NoError(t, err)
	assert.True(t, handle.Reopened)
	assert.Equal(t, provider.ConversationOpen, handle.State)
	assert.Equal(t, []string{"5"}, f.inbox.Reopened)
}

func TestOpenConversationIsNotReopened(t *testing.T) {
	f := newFixture(t)
	f.inbox.SeedConversation(provider.Conversation{ID: "5", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"a"}})

	handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"a"}, "")
	require.NoError(t, err)
	assert.False(t, handle.Reopened)
	assert.Empty(t, f.inbox.Reopened)
}

func TestConcurrentResolveCreatesOnce(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{"x", "y"}, "")
			assert.NoError(t, err)
			if handle != nil {
				ids[i] = handle.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.inbox.ConversationsCreated)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolveConversationRequiresParticipants(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveConversation(context.Background(), &chat.User{ID: 1}, []string{" "}, "")
	require.Error(t, err)
}

func TestResolveTicketCreatesThenAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := Requester{Name: "Ana", Email: "ana@example.com"}

	first, err := f.svc.ResolveTicket(ctx, "42", requester, "Hello", false)
	require.NoError(t, err)
	assert.True(t, first.Created)
	require.Len(t, f.tickets.Created, 1)
	created := f.tickets.Created[0]
	assert.Equal(t, []string{"conversation_42"}, created.Tags)
	assert.Equal(t, provider.TicketPriorityNormal, created.Priority)
	assert.Equal(t, provider.TicketNew, created.Status)
	assert.Equal(t, "Support conversation with Ana", created.Subject)
	assert.NotZero(t, created.RequesterID)

	second, err := f.svc.ResolveTicket(ctx, "42", requester, "Still there?", false)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, provider.TicketPending, second.Status)

	require.Len(t, f.tickets.Updates, 1)
	update := f.tickets.Updates[0]
	assert.True(t, update.Request.Comment.Public)
	assert.Equal(t, created.RequesterID, update.Request.Comment.AuthorID)
	assert.Equal(t, 1, f.tickets.UsersCreated)
}

func TestAgentMessageNeverCreatesRequester(t *testing.T) {
	f := newFixture(t)
	f.tickets.SeedTicket(provider.Ticket{ID: 7, Status: provider.TicketOpen, Tags: []string{"conversation_42"}})

	handle, err := f.svc.ResolveTicket(context.Background(), "42", Requester{Name: "Bob"}, "On it", true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), handle.ID)
	assert.Zero(t, handle.RequesterID)
	assert.Zero(t, f.tickets.UsersCreated)

	require.Len(t, f.tickets.Updates, 1)
	comment := f.tickets.Updates[0].Request.Comment
	assert.False(t, comment.Public)
	assert.Contains(t, comment.Body, "On it")
	ticket, _ := f.tickets.Ticket(7)
	assert.Equal(t, provider.TicketPending, ticket.Status)
}

func TestResolveTicketFallsBackToListing(t *testing.T) {
	f := newFixture(t)
	f.tickets.FailOn["search_tickets"] = errors.New("search unavailable")
	f.tickets.SeedTicket(provider.Ticket{ID: 3, Status: provider.TicketClosed, Tags: []string{"conversation_42"}})
	f.tickets.SeedTicket(provider.Ticket{ID: 4, Status: provider.TicketPending, Tags: []string{"conversation_42"}})
	f.tickets.SeedTicket(provider.Ticket{ID: 5, Status: provider.TicketOpen, Tags: []string{"conversation_43"}})

	handle, err := f.svc.ResolveTicket(context.Background(), "42", Requester{Name: "Ana", Key: "1"}, "hi", false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), handle.ID)
	assert.GreaterOrEqual(t, f.tickets.ListCalls, 1)
	assert.Empty(t, f.tickets.Created)
}

func TestResolveTicketPropagatesProviderError(t *testing.T) {
	f := newFixture(t)
	f.tickets.FailOn["create_ticket"] = &provider.ProviderError{Provider: provider.NameTicketing, StatusCode: 500}

	_, err := f.svc.ResolveTicket(context.Background(), "42", Requester{Name: "Ana", Key: "1"}, "hi", false)
	require.Error(t, err)
	var providerErr *provider.ProviderError
	assert.True(t, errors.As(err, &providerErr))
}

func TestSynthesizedRequesterEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveTicket(context.Background(), "42", Requester{Name: "Ana", Key: "17"}, "hi", false)
	require.NoError(t, err)

	user, err := f.tickets.FindUserByEmail(context.Background(), "user-17@relay.test")
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestTicketCorrelationIsStableAcrossDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.ResolveTicket(ctx, "42", Requester{Name: "Ana", Key: "1"}, "one", false)
	require.NoError(t, err)
	agent, err := f.svc.ResolveTicket(ctx, "42", Requester{Name: "Bob"}, "two", true)
	require.NoError(t, err)
	user, err := f.svc.ResolveTicket(ctx, "42", Requester{Name: "Ana", Key: "1"}, "three", false)
	require.NoError(t, err)

	assert.Equal(t, created.ID, agent.ID)
	assert.Equal(t, created.ID, user.ID)
	assert.Len(t, f.tickets.TicketsTagged("conversation_42"), 1)
}
