package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

func TestAssignExternalIDsFillsNullOnly(t *testing.T) {
	ctx := context.Background()
	users := NewInMemoryRepository().Users()

	user := &domain.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, users.Create(ctx, user))

	first, err := users.AssignExternalIDs(ctx, user.ID, "contact-1", "src-1")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", first.ContactID())

	second, err := users.AssignExternalIDs(ctx, user.ID, "contact-2", "src-2")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", second.ContactID())
	assert.Equal(t, "src-1", *second.ExternalSourceID)
}

func TestSetExternalConversationIDKeepsFirstWriter(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	group := &domain.Group{Name: "Team", OwnerID: 1}
	require.NoError(t, repo.Groups().Create(ctx, group))

	pinned, err := repo.Groups().SetExternalConversationID(ctx, group.ID, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", pinned.ConversationID())

	again, err := repo.Groups().SetExternalConversationID(ctx, group.ID, "43")
	require.NoError(t, err)
	assert.Equal(t, "42", again.ConversationID())

	found, err := repo.Groups().FindByExternalConversationID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	group := &domain.Group{Name: "Team", OwnerID: 1}
	require.NoError(t, repo.Groups().Create(ctx, group))

	added, err := repo.Groups().AddMember(ctx, domain.GroupMember{GroupID: group.ID, UserID: 5})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Groups().AddMember(ctx, domain.GroupMember{GroupID: group.ID, UserID: 5})
	require.NoError(t, err)
	assert.False(t, added)

	ids, err := repo.Groups().ListMemberIDs(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, ids)
}

func TestFindMissingUserIsNotFound(t *testing.T) {
	_, err := NewInMemoryRepository().Users().FindByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListByGroupKeepsLatest(t *testing.T) {
	ctx := context.Background()
	messages := NewInMemoryRepository().Messages()
	for _, content := range []string{"a", "b", "c"} {
		require.NoError(t, messages.Create(ctx, &domain.Message{GroupID: 1, Content: content}))
	}
	require.NoError(t, messages.Create(ctx, &domain.Message{GroupID: 2, Content: "other"}))

	out, err := messages.ListByGroup(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Content)
	assert.Equal(t, "c", out[1].Content)
}
