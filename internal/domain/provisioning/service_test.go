package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/infrastructure/lock"
	chatrepo "github.com/janhq/support-relay/internal/infrastructure/repository/chat"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
	"github.com/janhq/support-relay/pkg/testhelpers"
)

func newTestService(t *testing.T) (Service, *chatrepo.InMemoryRepository, *testhelpers.FakeInbox) {
	t.Helper()
	repo := chatrepo.NewInMemoryRepository()
	inbox := testhelpers.NewFakeInbox()
	reconciler := reconcile.NewService(inbox, testhelpers.NewFakeTicketing(), repo.Users(), lock.NewLocalLocker(), reconcile.Config{
		RequesterEmailDomain: "relay.test",
		Greeting:             "Hi",
	}, zerolog.Nop())
	svc := NewService(reconciler, inbox, repo.Users(), repo.Groups(), "Hi, I need help", zerolog.Nop())
	return svc, repo, inbox
}

func TestProvisionUserIsIdempotent(t *testing.T) {
	svc, _, inbox := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProvisionUser(ctx, ProvisionUserParams{Name: "Ana", Email: "Ana@Example.com"})
	require.NoError(t, err)
	assert.True(t, first.ConversationCreated)
	assert.Equal(t, first.ConversationID, first.Group.ConversationID())

	second, err := svc.ProvisionUser(ctx, ProvisionUserParams{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.False(t, second.ConversationCreated)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, first.Group.ID, second.Group.ID)

	assert.Equal(t, 1, inbox.ContactsCreated)
	assert.Equal(t, 1, inbox.ConversationsCreated)
}

func TestProvisionUserRequiresNameAndEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ProvisionUser(context.Background(), ProvisionUserParams{Name: "Ana"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestGetUserNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetUser(context.Background(), 404)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListConversationMessages(t *testing.T) {
	svc, _, inbox := newTestService(t)
	inbox.SeedConversation(provider.Conversation{
		ID:    "42",
		State: provider.ConversationOpen,
		Parts: []provider.ConversationPart{
			{ID: "p1", Body: "<p>Hello</p>", AuthorType: provider.AuthorUser},
			{ID: "p2", Body: "", AuthorType: provider.AuthorAdmin},
			{ID: "p3", Body: "<p>Hi, how can we help?</p>", AuthorType: provider.AuthorAdmin, AuthorName: "Bob"},
		},
	})

	messages, err := svc.ListConversationMessages(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Body)
	assert.Equal(t, "admin", messages[1].AuthorType)
}

func TestListConversationMessagesDegradesToEmpty(t *testing.T) {
	svc, _, inbox := newTestService(t)
	inbox.FailOn["get_conversation"] = errors.New("provider down")

	messages, err := svc.ListConversationMessages(context.Background(), "42")
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestAddParticipantsReportsExistingMembers(t *testing.T) {
	svc, repo, inbox := newTestService(t)
	ctx := context.Background()

	provisioned, err := svc.ProvisionUser(ctx, ProvisionUserParams{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	ben := &chat.User{Name: "Ben", Email: "ben@example.com"}
	require.NoError(t, repo.Users().Create(ctx, ben))

	result, err := svc.AddParticipants(ctx, provisioned.ConversationID, []uint{provisioned.User.ID, ben.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{ben.ID}, result.Added)
	assert.Equal(t, []uint{provisioned.User.ID}, result.AlreadyMembers)
	assert.NotEmpty(t, result.Notice)

	conversation, ok := inbox.Conversation(provisioned.ConversationID)
	require.True(t, ok)
	assert.Len(t, conversation.ContactIDs, 2)
	assert.Equal(t, provider.ConversationKindGroup, conversation.Kind)

	again, err := svc.AddParticipants(ctx, provisioned.ConversationID, []uint{ben.ID})
	require.NoError(t, err)
	assert.Empty(t, again.Added)
	assert.Equal(t, []uint{ben.ID}, again.AlreadyMembers)
}

func TestAddParticipantsUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AddParticipants(context.Background(), "missing", []uint{1})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestBootstrapGroupConversation(t *testing.T) {
	svc, repo, inbox := newTestService(t)
	ctx := context.Background()
	owner := &chat.User{Name: "Ana", Email: "ana@example.com"}
	member := &chat.User{Name: "Ben", Email: "ben@example.com"}
	require.NoError(t, repo.Users().Create(ctx, owner))
	require.NoError(t, repo.Users().Create(ctx, member))

	first, err := svc.BootstrapGroupConversation(ctx, BootstrapGroupParams{Name: "Team", OwnerID: owner.ID, MemberIDs: []uint{member.ID, owner.ID}})
	require.NoError(t, err)
	assert.True(t, first.ConversationCreated)
	assert.Equal(t, "Team", first.Group.Name)

	members, err := repo.Groups().ListMemberIDs(ctx, first.Group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{owner.ID, member.ID}, members)

	second, err := svc.BootstrapGroupConversation(ctx, BootstrapGroupParams{Name: "Team", OwnerID: owner.ID, MemberIDs: []uint{member.ID}})
	require.NoError(t, err)
	assert.Equal(t, first.Group.ID, second.Group.ID)
	assert.Equal(t, 1, inbox.ConversationsCreated)
}

func TestBootstrapGroupNeedsAnotherMember(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	owner := &chat.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, repo.Users().Create(ctx, owner))

	_, err := svc.BootstrapGroupConversation(ctx, BootstrapGroupParams{OwnerID: owner.ID, MemberIDs: []uint{owner.ID}})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestAddParticipantsRetriesAfterInboxFailure(t *testing.T) {
	svc, repo, inbox := newTestService(t)
	ctx := context.Background()

	provisioned, err := svc.ProvisionUser(ctx, ProvisionUserParams{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	ben := &chat.User{Name: "Ben", Email: "ben@example.com"}
	require.NoError(t, repo.Users().Create(ctx, ben))

	inbox.FailOn["add_contacts"] = errors.New("provider down")
	_, err = svc.AddParticipants(ctx, provisioned.ConversationID, []uint{ben.ID})
	require.Error(t, err)

	member, err := repo.Groups().IsMember(ctx, provisioned.Group.ID, ben.ID)
	require.NoError(t, err)
	assert.False(t, member)

	delete(inbox.FailOn, "add_contacts")
	retry, err := svc.AddParticipants(ctx, provisioned.ConversationID, []uint{ben.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{ben.ID}, retry.Added)
	assert.Empty(t, retry.AlreadyMembers)

	conversation, ok := inbox.Conversation(provisioned.ConversationID)
	require.True(t, ok)
	assert.Len(t, conversation.ContactIDs, 2)
}
