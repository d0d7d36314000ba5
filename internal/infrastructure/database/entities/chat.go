package entities

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/janhq/support-relay/internal/domain/chat"
)

// User represents the database schema for users.
type User struct {
	ID                uint      `gorm:"primaryKey"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
	Name              string    `gorm:"type:varchar(255);not null"`
	Email             *string   `gorm:"type:varchar(320)"`
	Role              string    `gorm:"type:varchar(20);not null;default:'member'"`
	AgentRef          *string   `gorm:"type:varchar(128)"`
	ExternalContactID *string   `gorm:"type:varchar(128)"`
	ExternalSourceID  *string   `gorm:"type:varchar(128)"`
}

func (User) TableName() string {
	return "users"
}

// Group represents the database schema for groups.
type Group struct {
	ID                     uint      `gorm:"primaryKey"`
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
	Name                   string    `gorm:"type:varchar(255);not null"`
	OwnerID                uint      `gorm:"not null"`
	ExternalConversationID *string   `gorm:"type:varchar(128)"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupMember represents the database schema for group memberships.
type GroupMember struct {
	GroupID  uint      `gorm:"primaryKey"`
	UserID   uint      `gorm:"primaryKey"`
	Role     string    `gorm:"type:varchar(20);not null;default:'member'"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// Message represents the database schema for relayed messages.
type Message struct {
	ID          uint           `gorm:"primaryKey"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	PublicID    string         `gorm:"type:varchar(32);uniqueIndex;not null"`
	GroupID     uint           `gorm:"not null;index"`
	SenderID    uint           `gorm:"not null"`
	MessageType string         `gorm:"type:varchar(10);not null"`
	Content     string         `gorm:"type:text;not null"`
	MediaURL    *string        `gorm:"type:text"`
	Direction   string         `gorm:"type:varchar(10);not null"`
	Tags        pq.StringArray `gorm:"type:text[]"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
}

func (Message) TableName() string {
	return "messages"
}

func NewUserEntity(u *chat.User) *User {
	entity := &User{
		ID:                u.ID,
		Name:              u.Name,
		Role:              string(u.Role),
		AgentRef:          u.AgentRef,
		ExternalContactID: u.ExternalContactID,
		ExternalSourceID:  u.ExternalSourceID,
	}
	if u.Email != "" {
		email := u.Email
		entity.Email = &email
	}
	if entity.Role == "" {
		entity.Role = string(chat.UserRoleMember)
	}
	return entity
}

func (u *User) EtoD() *chat.User {
	user := &chat.User{
		ID:                u.ID,
		Name:              u.Name,
		Role:              chat.UserRole(u.Role),
		AgentRef:          u.AgentRef,
		ExternalContactID: u.ExternalContactID,
		ExternalSourceID:  u.ExternalSourceID,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	return user
}

func NewGroupEntity(g *chat.Group) *Group {
	return &Group{
		ID:                     g.ID,
		Name:                   g.Name,
		OwnerID:                g.OwnerID,
		ExternalConversationID: g.ExternalConversationID,
	}
}

func (g *Group) EtoD() *chat.Group {
	return &chat.Group{
		ID:                     g.ID,
		Name:                   g.Name,
		OwnerID:                g.OwnerID,
		ExternalConversationID: g.ExternalConversationID,
		CreatedAt:              g.CreatedAt,
		UpdatedAt:              g.UpdatedAt,
	}
}

func NewMessageEntity(m *chat.Message) (*Message, error) {
	entity := &Message{
		PublicID:    m.PublicID,
		GroupID:     m.GroupID,
		SenderID:    m.SenderID,
		MessageType: string(m.MessageType),
		Content:     m.Content,
		MediaURL:    m.MediaURL,
		Direction:   string(m.Direction),
		Tags:        pq.StringArray(m.Tags),
	}
	if entity.Tags == nil {
		entity.Tags = pq.StringArray{}
	}
	if len(m.Metadata) > 0 {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, err
		}
		entity.Metadata = datatypes.JSON(raw)
	}
	return entity, nil
}

func (m *Message) EtoD() *chat.Message {
	message := &chat.Message{
		ID:          m.ID,
		PublicID:    m.PublicID,
		GroupID:     m.GroupID,
		SenderID:    m.SenderID,
		MessageType: chat.MessageType(m.MessageType),
		Content:     m.Content,
		MediaURL:    m.MediaURL,
		Direction:   chat.Direction(m.Direction),
		Tags:        []string(m.Tags),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &message.Metadata)
	}
	return message
}
