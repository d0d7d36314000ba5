package chat

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/infrastructure/database/entities"
)

// PostgresRepository persists users, groups and messages.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Users returns the user port backed by this repository.
func (r *PostgresRepository) Users() domain.UserRepository { return postgresUsers{r.db} }

// Groups returns the group port backed by this repository.
func (r *PostgresRepository) Groups() domain.GroupRepository { return postgresGroups{r.db} }

// Messages returns the message port backed by this repository.
func (r *PostgresRepository) Messages() domain.MessageRepository { return postgresMessages{r.db} }

type postgresUsers struct{ db *gorm.DB }

func (r postgresUsers) Create(ctx context.Context, user *domain.User) error {
	entity := entities.NewUserEntity(user)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return dbError(ctx, "failed to create user", err, "72e2b38d-2f74-4c83-abe1-a695be9bf809")
	}
	*user = *entity.EtoD()
	return nil
}

func (r postgresUsers) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, dbError(ctx, "user not found", err, "105b26fc-d5ba-43df-9347-2bd44b349f7e")
	}
	return entity.EtoD(), nil
}

func (r postgresUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&entity).Error; err != nil {
		return nil, dbError(ctx, "user not found", err, "72f96401-13df-48e7-a153-3aab0b266e62")
	}
	return entity.EtoD(), nil
}

func (r postgresUsers) FindByAgentRef(ctx context.Context, ref string) (*domain.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).Where("agent_ref = ?", ref).First(&entity).Error; err != nil {
		return nil, dbError(ctx, "agent user not found", err, "c15aa9b0-a757-441f-a697-8916ed255c71")
	}
	return entity.EtoD(), nil
}

func (r postgresUsers) FindByIDs(ctx context.Context, ids []uint) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []entities.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to load users", err, "a1c35af6-803a-4311-bea3-949716f4e473")
	}
	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].EtoD())
	}
	return users, nil
}

func (r postgresUsers) AssignExternalIDs(ctx context.Context, id uint, contactID, sourceID string) (*domain.User, error) {
	err := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"external_contact_id": gorm.Expr("COALESCE(external_contact_id, ?)", contactID),
			"external_source_id":  gorm.Expr("COALESCE(external_source_id, ?)", sourceID),
		}).Error
	if err != nil {
		return nil, dbError(ctx, "failed to assign external ids", err, "92639380-363c-45fd-832e-706efaef4277")
	}
	return r.FindByID(ctx, id)
}

type postgresGroups struct{ db *gorm.DB }

func (r postgresGroups) Create(ctx context.Context, group *domain.Group) error {
	entity := entities.NewGroupEntity(group)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return dbError(ctx, "failed to create group", err, "e0e0e872-eaab-4889-bcac-739e864f0930")
	}
	*group = *entity.EtoD()
	return nil
}

func (r postgresGroups) FindByID(ctx context.Context, id uint) (*domain.Group, error) {
	var entity entities.Group
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, dbError(ctx, "group not found", err, "e6f3d910-34cd-47d6-81be-e9dcde59564b")
	}
	return entity.EtoD(), nil
}

func (r postgresGroups) FindByExternalConversationID(ctx context.Context, conversationID string) (*domain.Group, error) {
	var entity entities.Group
	if err := r.db.WithContext(ctx).Where("external_conversation_id = ?", conversationID).Order("id ASC").First(&entity).Error; err != nil {
		return nil, dbError(ctx, "group not found for conversation", err, "3c29b0a8-9af2-4f56-9a1d-7d99e8d19ed1")
	}
	return entity.EtoD(), nil
}

func (r postgresGroups) ListByExternalConversationID(ctx context.Context, conversationID string) ([]*domain.Group, error) {
	var rows []entities.Group
	if err := r.db.WithContext(ctx).Where("external_conversation_id = ?", conversationID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list groups for conversation", err, "b8d41f6e-2c07-4a93-8e5b-71f0c3a9d264")
	}
	groups := make([]*domain.Group, 0, len(rows))
	for i := range rows {
		groups = append(groups, rows[i].EtoD())
	}
	return groups, nil
}

func (r postgresGroups) SetExternalConversationID(ctx context.Context, id uint, conversationID string) (*domain.Group, error) {
	err := r.db.WithContext(ctx).
		Model(&entities.Group{}).
		Where("id = ? AND external_conversation_id IS NULL", id).
		Update("external_conversation_id", conversationID).Error
	if err != nil {
		return nil, dbError(ctx, "failed to pin conversation", err, "251d18ef-0403-4b76-9680-bda01ae77858")
	}
	return r.FindByID(ctx, id)
}

func (r postgresGroups) AddMember(ctx context.Context, member domain.GroupMember) (bool, error) {
	entity := entities.GroupMember{
		GroupID: member.GroupID,
		UserID:  member.UserID,
		Role:    string(member.Role),
	}
	if entity.Role == "" {
		entity.Role = string(domain.MemberRoleMember)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entity)
	if result.Error != nil {
		return false, dbError(ctx, "failed to add group member", result.Error, "33aef864-34e8-4d20-aa7c-152613540ed6")
	}
	return result.RowsAffected == 1, nil
}

func (r postgresGroups) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, dbError(ctx, "failed to check membership", err, "67de314a-77f9-4d16-9515-8141e8aeb6e2")
	}
	return count > 0, nil
}

func (r postgresGroups) ListMemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entities.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("joined_at, user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, dbError(ctx, "failed to list group members", err, "30115ce7-005d-45f6-9e12-df5ba5d1dacd")
	}
	return ids, nil
}

func (r postgresGroups) ListGroupIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entities.GroupMember{}).
		Where("user_id = ?", userID).
		Order("group_id").
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, dbError(ctx, "failed to list user groups", err, "fc3fc5f6-150f-467e-a36f-d00353cc35cd")
	}
	return ids, nil
}

type postgresMessages struct{ db *gorm.DB }

func (r postgresMessages) Create(ctx context.Context, message *domain.Message) error {
	entity, err := entities.NewMessageEntity(message)
	if err != nil {
		return dbError(ctx, "failed to encode message metadata", err, "f6434fe1-2fd5-4842-98c6-b337e00f96cb")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return dbError(ctx, "failed to create message", err, "a1c50519-3649-41b1-8aaa-e69a726dfcfd")
	}
	message.ID = entity.ID
	message.CreatedAt = entity.CreatedAt
	message.UpdatedAt = entity.UpdatedAt
	return nil
}

// ListByGroup returns the latest limit messages in chronological order.
func (r postgresMessages) ListByGroup(ctx context.Context, groupID uint, limit int) ([]*domain.Message, error) {
	var rows []entities.Message
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, dbError(ctx, "failed to list messages", err, "0d5b973b-1952-4cbe-837f-52f99c0c26f5")
	}
	messages := make([]*domain.Message, len(rows))
	for i := range rows {
		messages[len(rows)-1-i] = rows[i].EtoD()
	}
	return messages, nil
}

var (
	_ domain.UserRepository    = postgresUsers{}
	_ domain.GroupRepository   = postgresGroups{}
	_ domain.MessageRepository = postgresMessages{}
)
