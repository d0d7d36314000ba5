package relay

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/infrastructure/cache"
	"github.com/janhq/support-relay/internal/infrastructure/lock"
	chatrepo "github.com/janhq/support-relay/internal/infrastructure/repository/chat"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
	"github.com/janhq/support-relay/pkg/testhelpers"
)

type emitted struct {
	groupID uint
	event   string
	payload any
}

type recordingFanout struct {
	events []emitted
}

func (f *recordingFanout) EmitToGroup(groupID uint, event string, payload any) int {
	f.events = append(f.events, emitted{groupID: groupID, event: event, payload: payload})
	return 1
}

type harness struct {
	router  *Router
	repo    *chatrepo.InMemoryRepository
	inbox   *testhelpers.FakeInbox
	tickets *testhelpers.FakeTicketing
	fanout  *recordingFanout
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := chatrepo.NewInMemoryRepository()
	inbox := testhelpers.NewFakeInbox()
	tickets := testhelpers.NewFakeTicketing()
	echoes, err := cache.NewEchoCache(32)
	require.NoError(t, err)

	reconciler := reconcile.NewService(inbox, tickets, repo.Users(), lock.NewLocalLocker(), reconcile.Config{
		RequesterEmailDomain: "relay.test",
		Greeting:             "Hi",
	}, zerolog.Nop())
	fanout := &recordingFanout{}
	router := NewRouter(Deps{
		Reconciler: reconciler,
		Inbox:      inbox,
		Users:      repo.Users(),
		Groups:     repo.Groups(),
		Messages:   repo.Messages(),
		Fanout:     fanout,
		Echoes:     echoes,
	}, zerolog.Nop())
	return &harness{router: router, repo: repo, inbox: inbox, tickets: tickets, fanout: fanout}
}

func (h *harness) user(t *testing.T, name string) *chat.User {
	t.Helper()
	u := &chat.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, h.repo.Users().Create(context.Background(), u))
	return u
}

func (h *harness) group(t *testing.T, owner *chat.User, others ...*chat.User) *chat.Group {
	t.Helper()
	ctx := context.Background()
	g := &chat.Group{Name: "support", OwnerID: owner.ID}
	require.NoError(t, h.repo.Groups().Create(ctx, g))
	_, err := h.repo.Groups().AddMember(ctx, chat.GroupMember{GroupID: g.ID, UserID: owner.ID, Role: chat.MemberRoleOwner})
	require.NoError(t, err)
	for _, u := range others {
		_, err := h.repo.Groups().AddMember(ctx, chat.GroupMember{GroupID: g.ID, UserID: u.ID, Role: chat.MemberRoleMember})
		require.NoError(t, err)
	}
	return g
}

func (h *harness) messages(t *testing.T, groupID uint) []*chat.Message {
	t.Helper()
	msgs, err := h.repo.Messages().ListByGroup(context.Background(), groupID, 100)
	require.NoError(t, err)
	return msgs
}

func boolPtr(b bool) *bool { return &b }

func TestFirstAppMessageCreatesEverythingOnce(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")
	g := h.group(t, u)

	msg, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: u.ID, Content: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.inbox.ContactsCreated)
	assert.Equal(t, 1, h.inbox.ConversationsCreated)
	assert.Empty(t, h.inbox.Replies, "the opening message must not be posted twice")

	conversationID := msg.Metadata[chat.MetaConversationID].(string)
	require.Len(t, h.tickets.Created, 1)
	assert.Equal(t, []string{provider.ConversationTag(conversationID)}, h.tickets.Created[0].Tags)

	stored := h.messages(t, g.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, chat.DirectionIncoming, stored[0].Direction)
	assert.Equal(t, chat.MessageTypeText, stored[0].MessageType)

	pinned, err := h.repo.Groups().FindByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, conversationID, pinned.ConversationID())

	require.Len(t, h.fanout.events, 1)
	assert.Equal(t, "new_message", h.fanout.events[0].event)
}

func TestFollowUpMessageRepliesAndAppendsToSameTicket(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")
	g := h.group(t, u)
	ctx := context.Background()

	first, err := h.router.SendAppMessage(ctx, SendParams{GroupID: g.ID, UserID: u.ID, Content: "Hello"})
	require.NoError(t, err)
	second, err := h.router.SendAppMessage(ctx, SendParams{GroupID: g.ID, UserID: u.ID, Content: "Anyone?"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.inbox.ConversationsCreated)
	require.Len(t, h.inbox.Replies, 1)
	assert.Equal(t, "Anyone?", h.inbox.Replies[0].Body)
	assert.False(t, h.inbox.Replies[0].AsAdmin)

	assert.Len(t, h.tickets.Created, 1)
	assert.Len(t, h.tickets.Updates, 1)
	assert.Equal(t, first.Metadata[chat.MetaTicketID], second.Metadata[chat.MetaTicketID])
	assert.Len(t, h.messages(t, g.ID), 2)
}

func TestClosedPinnedConversationIsReopened(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")
	g := h.group(t, u)
	ctx := context.Background()

	_, err := h.router.SendAppMessage(ctx, SendParams{GroupID: g.ID, UserID: u.ID, Content: "Hello"})
	require.NoError(t, err)
	pinned, err := h.repo.Groups().FindByID(ctx, g.ID)
	require.NoError(t, err)

	conversation, ok := h.inbox.Conversation(pinned.ConversationID())
	require.True(t, ok)
	conversation.State = provider.ConversationClosed
	h.inbox.SeedConversation(conversation)

	_, err = h.router.SendAppMessage(ctx, SendParams{GroupID: g.ID, UserID: u.ID, Content: "Back again"})
	require.NoError(t, err)
	assert.Equal(t, []string{pinned.ConversationID()}, h.inbox.Reopened)
}

func TestGroupMessageUsesEveryMemberContact(t *testing.T) {
	h := newHarness(t)
	ana := h.user(t, "ana")
	ben := h.user(t, "ben")
	g := h.group(t, ana, ben)

	msg, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: ben.ID, Content: "Hi team"})
	require.NoError(t, err)

	conversation, ok := h.inbox.Conversation(msg.Metadata[chat.MetaConversationID].(string))
	require.True(t, ok)
	assert.Equal(t, provider.ConversationKindGroup, conversation.Kind)
	assert.Len(t, conversation.ContactIDs, 2)
	assert.Equal(t, 2, h.inbox.ContactsCreated)
}

func TestSendAppMessageValidation(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")
	g := h.group(t, u)

	_, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: u.ID})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Zero(t, h.inbox.ContactsCreated, "no provider call on invalid input")

	_, err = h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: u.ID, Content: "x", MessageType: "audio"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestSendAppMessageRejectsNonMember(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "ana")
	outsider := h.user(t, "eve")
	g := h.group(t, owner)

	_, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: outsider.ID, Content: "hi"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestSendAppMessageUnknownGroup(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")

	_, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: 999, UserID: u.ID, Content: "hi"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestProviderFailureIsNotPersisted(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "ana")
	g := h.group(t, u)
	h.tickets.FailOn["create_ticket"] = &provider.ProviderError{Provider: provider.NameTicketing, Operation: "create_ticket", StatusCode: 503}

	_, err := h.router.SendAppMessage(context.Background(), SendParams{GroupID: g.ID, UserID: u.ID, Content: "Hello"})
	require.Error(t, err)
	assert.Empty(t, h.messages(t, g.ID))
	assert.Empty(t, h.fanout.events)
}

// pinnedGroup sets up ticket 7 tagged conversation_42 and a group pinned to it.
func pinnedGroup(t *testing.T, h *harness) *chat.Group {
	t.Helper()
	ctx := context.Background()
	u := h.user(t, "ana")
	g := h.group(t, u)
	_, err := h.repo.Groups().SetExternalConversationID(ctx, g.ID, "42")
	require.NoError(t, err)
	h.inbox.SeedConversation(provider.Conversation{ID: "42", State: provider.ConversationOpen, Kind: provider.ConversationKindPersonal, ContactIDs: []string{"c-1"}})
	h.tickets.SeedTicket(provider.Ticket{ID: 7, Status: provider.TicketOpen, Tags: []string{"conversation_42"}, RequesterID: 300})
	return g
}

func agentComment(public bool) TicketEvent {
	return TicketEvent{
		Type:   TicketEventCommentAdded,
		Ticket: TicketEventTicket{ID: 7, Tags: []string{"support", "conversation_42"}, RequesterID: 300},
		Comment: &TicketEventComment{
			ID:     1,
			Body:   "We are on it",
			Public: boolPtr(public),
			Author: TicketEventAuthor{ID: 900, Name: "Bob", Role: "agent"},
		},
	}
}

func TestAgentCommentRelaysToInboxAndApp(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)

	result, err := h.router.HandleTicketEvent(context.Background(), agentComment(true))
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, result.State)

	replies := h.inbox.RepliesTo("42")
	require.Len(t, replies, 1)
	assert.True(t, replies[0].AsAdmin)
	assert.Equal(t, "Bob: We are on it", replies[0].Body)

	assert.Empty(t, h.tickets.Created)
	ticket, _ := h.tickets.Ticket(7)
	assert.Equal(t, provider.TicketPending, ticket.Status)
	require.Len(t, h.tickets.Updates, 1)
	assert.False(t, h.tickets.Updates[0].Request.Comment.Public)
	assert.Zero(t, h.tickets.UsersCreated)

	stored := h.messages(t, g.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, chat.DirectionOutgoing, stored[0].Direction)
	assert.Equal(t, "We are on it", stored[0].Content)

	agent, err := h.repo.Users().FindByID(context.Background(), stored[0].SenderID)
	require.NoError(t, err)
	assert.Equal(t, chat.UserRoleAgent, agent.Role)
	assert.Equal(t, "Bob", agent.Name)
}

func TestAgentUserIsReused(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)
	ctx := context.Background()

	_, err := h.router.HandleTicketEvent(ctx, agentComment(true))
	require.NoError(t, err)
	_, err = h.router.HandleTicketEvent(ctx, agentComment(true))
	require.NoError(t, err)

	stored := h.messages(t, g.ID)
	require.Len(t, stored, 2)
	assert.Equal(t, stored[0].SenderID, stored[1].SenderID)
}

func TestPrivateCommentIsSuppressed(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)

	result, err := h.router.HandleTicketEvent(context.Background(), agentComment(false))
	require.NoError(t, err)
	assert.Equal(t, StateIgnored, result.State)
	assert.Empty(t, h.inbox.Replies)
	assert.Empty(t, h.tickets.Updates)
	assert.Empty(t, h.messages(t, g.ID))
}

func TestRequesterCommentIsTreatedAsEcho(t *testing.T) {
	h := newHarness(t)
	pinnedGroup(t, h)

	event := agentComment(true)
	event.Comment.Author = TicketEventAuthor{ID: 300, Name: "ana", Role: "end-user"}

	result, err := h.router.HandleTicketEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, StateIgnored, result.State)
	assert.Empty(t, h.inbox.Replies)
}

func TestTicketEventTypes(t *testing.T) {
	h := newHarness(t)
	pinnedGroup(t, h)

	for _, eventType := range []string{TicketEventStatusChanged, TicketEventCreated, TicketEventUpdated, "ticket.merged"} {
		t.Run(eventType, func(t *testing.T) {
			event := agentComment(true)
			event.Type = eventType
			result, err := h.router.HandleTicketEvent(context.Background(), event)
			require.NoError(t, err)
			assert.Equal(t, StateIgnored, result.State)
		})
	}
	assert.Empty(t, h.inbox.Replies)
}

func TestTicketEventMissingFields(t *testing.T) {
	h := newHarness(t)

	event := agentComment(true)
	event.Comment = nil
	_, err := h.router.HandleTicketEvent(context.Background(), event)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	event = agentComment(true)
	event.Comment.Public = nil
	_, err = h.router.HandleTicketEvent(context.Background(), event)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestUntaggedTicketIsIgnored(t *testing.T) {
	h := newHarness(t)
	event := agentComment(true)
	event.Ticket.Tags = []string{"billing"}

	result, err := h.router.HandleTicketEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, StateIgnored, result.State)
}

func TestInboxFailureFailsTicketRelay(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)
	h.inbox.FailOn["reply_admin"] = &provider.ProviderError{Provider: provider.NameInbox, Operation: "reply_admin", StatusCode: 500}

	_, err := h.router.HandleTicketEvent(context.Background(), agentComment(true))
	require.Error(t, err)
	assert.Empty(t, h.tickets.Updates)
	assert.Empty(t, h.messages(t, g.ID))
}

func adminReply(partID, body string) InboxEvent {
	return InboxEvent{
		Topic: InboxTopicAdminReplied,
		Data: InboxEventData{Item: InboxEventItem{
			ID: "42",
			ConversationParts: InboxEventPartsWrapper{Parts: []InboxEventPart{{
				ID:       partID,
				PartType: "comment",
				Body:     body,
				Author:   InboxEventAuthor{ID: "admin-5", Type: "admin", Name: "Cleo"},
			}}},
		}},
	}
}

func TestInboxAdminReplyRelaysToApp(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)

	result, err := h.router.HandleInboxEvent(context.Background(), adminReply("p-1", "<p>Try restarting</p>"))
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, result.State)

	stored := h.messages(t, g.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, "Try restarting", stored[0].Content)
	assert.Equal(t, chat.DirectionOutgoing, stored[0].Direction)

	require.Len(t, h.tickets.Updates, 1)
	assert.False(t, h.tickets.Updates[0].Request.Comment.Public)
	assert.Empty(t, h.inbox.Replies)
}

func TestInboxEchoOfRelayedCommentIsIgnored(t *testing.T) {
	h := newHarness(t)
	g := pinnedGroup(t, h)
	ctx := context.Background()

	_, err := h.router.HandleTicketEvent(ctx, agentComment(true))
	require.NoError(t, err)
	partID := h.inbox.RepliesTo("42")[0].PartID

	result, err := h.router.HandleInboxEvent(ctx, adminReply(partID, "Bob: We are on it"))
	require.NoError(t, err)
	assert.Equal(t, StateIgnored, result.State)
	assert.Len(t, h.messages(t, g.ID), 1)
}

func TestInboxOtherTopicsAreIgnored(t *testing.T) {
	h := newHarness(t)
	event := adminReply("p-1", "hi")
	event.Topic = "conversation.user.replied"

	result, err := h.router.HandleInboxEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, StateIgnored, result.State)
}

func TestInboxEventRequiresConversation(t *testing.T) {
	h := newHarness(t)
	event := adminReply("p-1", "hi")
	event.Data.Item.ID = ""

	_, err := h.router.HandleInboxEvent(context.Background(), event)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestGroupsWithSameMembersShareConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ana := h.user(t, "ana")
	ben := h.user(t, "ben")
	first := h.group(t, ana, ben)
	second := h.group(t, ana, ben)

	_, err := h.router.SendAppMessage(ctx, SendParams{GroupID: first.ID, UserID: ana.ID, Content: "Hello from first"})
	require.NoError(t, err)
	_, err = h.router.SendAppMessage(ctx, SendParams{GroupID: second.ID, UserID: ben.ID, Content: "Hello from second"})
	require.NoError(t, err)

	pinnedFirst, err := h.repo.Groups().FindByID(ctx, first.ID)
	require.NoError(t, err)
	pinnedSecond, err := h.repo.Groups().FindByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pinnedFirst.ConversationID())
	assert.Equal(t, pinnedFirst.ConversationID(), pinnedSecond.ConversationID())
	assert.Equal(t, 1, h.inbox.ConversationsCreated)

	event := adminReply("p-9", "<p>Looking into it</p>")
	event.Data.Item.ID = pinnedFirst.ConversationID()
	h.fanout.events = nil
	result, err := h.router.HandleInboxEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, result.State)
	assert.Equal(t, first.ID, result.Message.GroupID)

	for _, g := range []*chat.Group{first, second} {
		stored := h.messages(t, g.ID)
		var agentReplies int
		for _, m := range stored {
			if m.Direction == chat.DirectionOutgoing {
				agentReplies++
				assert.Equal(t, "Looking into it", m.Content)
			}
		}
		assert.Equal(t, 1, agentReplies, "group %d", g.ID)
	}

	delivered := map[uint]bool{}
	for _, e := range h.fanout.events {
		delivered[e.groupID] = true
	}
	assert.True(t, delivered[first.ID])
	assert.True(t, delivered[second.ID])
}
