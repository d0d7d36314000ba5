package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/janhq/support-relay/internal/domain/chat"
)

// InMemoryRepository is a thread-safe repository used by tests and STORAGE_DRIVER=memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	users    map[uint]domain.User
	groups   map[uint]domain.Group
	members  map[uint]map[uint]domain.GroupMember
	messages []domain.Message
	nextID   uint
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[uint]domain.User),
		groups:  make(map[uint]domain.Group),
		members: make(map[uint]map[uint]domain.GroupMember),
	}
}

func (r *InMemoryRepository) Users() domain.UserRepository       { return memoryUsers{r} }
func (r *InMemoryRepository) Groups() domain.GroupRepository     { return memoryGroups{r} }
func (r *InMemoryRepository) Messages() domain.MessageRepository { return memoryMessages{r} }

func (r *InMemoryRepository) allocID() uint {
	r.nextID++
	return r.nextID
}

type memoryUsers struct{ r *InMemoryRepository }

func (m memoryUsers) Create(ctx context.Context, user *domain.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	now := time.Now().UTC()
	user.ID = m.r.allocID()
	if user.Role == "" {
		user.Role = domain.UserRoleMember
	}
	user.CreatedAt, user.UpdatedAt = now, now
	m.r.users[user.ID] = cloneUser(*user)
	return nil
}

func (m memoryUsers) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	user, ok := m.r.users[id]
	if !ok {
		return nil, notFound(ctx, "user not found", "f73f3d7c-5150-46c4-87b3-43f2c1ded5e8")
	}
	out := cloneUser(user)
	return &out, nil
}

func (m memoryUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	for _, user := range m.r.users {
		if user.Email != "" && strings.EqualFold(user.Email, email) {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, notFound(ctx, "user not found", "2ccd4277-de63-4bd2-9f6b-bbcafa0f18f1")
}

func (m memoryUsers) FindByAgentRef(ctx context.Context, ref string) (*domain.User, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	for _, user := range m.r.users {
		if user.AgentRef != nil && *user.AgentRef == ref {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, notFound(ctx, "agent user not found", "491828e9-08f1-42c7-b41d-89e727beb484")
}

func (m memoryUsers) FindByIDs(ctx context.Context, ids []uint) ([]*domain.User, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var users []*domain.User
	for _, id := range sorted {
		if user, ok := m.r.users[id]; ok {
			out := cloneUser(user)
			users = append(users, &out)
		}
	}
	return users, nil
}

func (m memoryUsers) AssignExternalIDs(ctx context.Context, id uint, contactID, sourceID string) (*domain.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	user, ok := m.r.users[id]
	if !ok {
		return nil, notFound(ctx, "user not found", "96e765f1-8439-4084-a25a-23fb80108faa")
	}
	if user.ExternalContactID == nil {
		user.ExternalContactID = &contactID
	}
	if user.ExternalSourceID == nil {
		user.ExternalSourceID = &sourceID
	}
	user.UpdatedAt = time.Now().UTC()
	m.r.users[id] = user
	out := cloneUser(user)
	return &out, nil
}

type memoryGroups struct{ r *InMemoryRepository }

func (m memoryGroups) Create(ctx context.Context, group *domain.Group) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	now := time.Now().UTC()
	group.ID = m.r.allocID()
	group.CreatedAt, group.UpdatedAt = now, now
	m.r.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (m memoryGroups) FindByID(ctx context.Context, id uint) (*domain.Group, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	group, ok := m.r.groups[id]
	if !ok {
		return nil, notFound(ctx, "group not found", "4881bd2c-92c8-4a15-bc5f-1a0ee08f25ef")
	}
	out := cloneGroup(group)
	return &out, nil
}

func (m memoryGroups) FindByExternalConversationID(ctx context.Context, conversationID string) (*domain.Group, error) {
	groups, err := m.ListByExternalConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, notFound(ctx, "group not found for conversation", "30854297-cf9e-471f-b360-d40a0b695ee5")
	}
	return groups[0], nil
}

func (m memoryGroups) ListByExternalConversationID(ctx context.Context, conversationID string) ([]*domain.Group, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	groups := make([]*domain.Group, 0)
	for _, group := range m.r.groups {
		if group.ConversationID() == conversationID {
			out := cloneGroup(group)
			groups = append(groups, &out)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (m memoryGroups) SetExternalConversationID(ctx context.Context, id uint, conversationID string) (*domain.Group, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	group, ok := m.r.groups[id]
	if !ok {
		return nil, notFound(ctx, "group not found", "e9184743-e15c-4f5a-a1f5-42697328f3ef")
	}
	if group.ExternalConversationID == nil {
		group.ExternalConversationID = &conversationID
		group.UpdatedAt = time.Now().UTC()
		m.r.groups[id] = group
	}
	out := cloneGroup(group)
	return &out, nil
}

func (m memoryGroups) AddMember(ctx context.Context, member domain.GroupMember) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.groups[member.GroupID]; !ok {
		return false, notFound(ctx, "group not found", "50c7c5f8-4a48-49fa-a8fd-f44f72c57f0f")
	}
	byUser, ok := m.r.members[member.GroupID]
	if !ok {
		byUser = make(map[uint]domain.GroupMember)
		m.r.members[member.GroupID] = byUser
	}
	if _, exists := byUser[member.UserID]; exists {
		return false, nil
	}
	if member.Role == "" {
		member.Role = domain.MemberRoleMember
	}
	member.JoinedAt = time.Now().UTC()
	byUser[member.UserID] = member
	return true, nil
}

func (m memoryGroups) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	_, ok := m.r.members[groupID][userID]
	return ok, nil
}

func (m memoryGroups) ListMemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	ids := make([]uint, 0, len(m.r.members[groupID]))
	for id := range m.r.members[groupID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m memoryGroups) ListGroupIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var ids []uint
	for groupID, byUser := range m.r.members {
		if _, ok := byUser[userID]; ok {
			ids = append(ids, groupID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memoryMessages struct{ r *InMemoryRepository }

func (m memoryMessages) Create(ctx context.Context, message *domain.Message) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	now := time.Now().UTC()
	message.ID = m.r.allocID()
	message.CreatedAt, message.UpdatedAt = now, now
	m.r.messages = append(m.r.messages, *message)
	return nil
}

func (m memoryMessages) ListByGroup(ctx context.Context, groupID uint, limit int) ([]*domain.Message, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var out []*domain.Message
	for i := range m.r.messages {
		if m.r.messages[i].GroupID == groupID {
			message := m.r.messages[i]
			out = append(out, &message)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func cloneUser(u domain.User) domain.User {
	u.ExternalContactID = cloneString(u.ExternalContactID)
	u.ExternalSourceID = cloneString(u.ExternalSourceID)
	u.AgentRef = cloneString(u.AgentRef)
	return u
}

func cloneGroup(g domain.Group) domain.Group {
	g.ExternalConversationID = cloneString(g.ExternalConversationID)
	return g
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var (
	_ domain.UserRepository    = memoryUsers{}
	_ domain.GroupRepository   = memoryGroups{}
	_ domain.MessageRepository = memoryMessages{}
)
