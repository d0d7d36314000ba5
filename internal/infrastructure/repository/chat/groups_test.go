package chat

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/infrastructure/database"
)

type groupStore interface {
	Users() domain.UserRepository
	Groups() domain.GroupRepository
}

// storageDrivers returns the in-memory driver and, when TEST_POSTGRES_DSN is
// set, a migrated PostgreSQL driver.
func storageDrivers(t *testing.T) map[string]groupStore {
	t.Helper()
	drivers := map[string]groupStore{"memory": NewInMemoryRepository()}

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		return drivers
	}
	db, err := database.Connect(database.Config{DSN: dsn})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	require.NoError(t, database.Migrate(context.Background(), db, zerolog.Nop()))
	drivers["postgres"] = NewPostgresRepository(db)
	return drivers
}

func TestGroupsCanShareConversation(t *testing.T) {
	for name, store := range storageDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			suffix := strings.ToLower(ulid.Make().String())
			conversationID := "conv-" + suffix

			owner := &domain.User{Name: "Ana", Email: "ana-" + suffix + "@example.com"}
			require.NoError(t, store.Users().Create(ctx, owner))

			first := &domain.Group{Name: "Team A", OwnerID: owner.ID}
			second := &domain.Group{Name: "Team B", OwnerID: owner.ID}
			require.NoError(t, store.Groups().Create(ctx, first))
			require.NoError(t, store.Groups().Create(ctx, second))

			pinnedFirst, err := store.Groups().SetExternalConversationID(ctx, first.ID, conversationID)
			require.NoError(t, err)
			pinnedSecond, err := store.Groups().SetExternalConversationID(ctx, second.ID, conversationID)
			require.NoError(t, err)
			assert.Equal(t, conversationID, pinnedFirst.ConversationID())
			assert.Equal(t, conversationID, pinnedSecond.ConversationID())

			groups, err := store.Groups().ListByExternalConversationID(ctx, conversationID)
			require.NoError(t, err)
			require.Len(t, groups, 2)
			assert.Equal(t, first.ID, groups[0].ID)
			assert.Equal(t, second.ID, groups[1].ID)

			oldest, err := store.Groups().FindByExternalConversationID(ctx, conversationID)
			require.NoError(t, err)
			assert.Equal(t, first.ID, oldest.ID)

			none, err := store.Groups().ListByExternalConversationID(ctx, "missing-"+suffix)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}
