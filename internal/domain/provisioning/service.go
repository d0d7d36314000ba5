// Package provisioning onboards users and groups into the support inbox.
package provisioning

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/utils/htmltext"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// Reconciler is the subset of the identity reconciler provisioning needs.
type Reconciler interface {
	EnsureContact(ctx context.Context, user *chat.User) (*chat.User, error)
	ResolveConversation(ctx context.Context, user *chat.User, participantIDs []string, initialBody string) (*reconcile.ConversationHandle, error)
}

type ProvisionUserParams struct {
	Name  string
	Email string
}

type BootstrapGroupParams struct {
	Name      string
	OwnerID   uint
	MemberIDs []uint
}

// Result is a provisioned user or group with its support-inbox conversation.
type Result struct {
	User                *chat.User  `json:"user,omitempty"`
	Group               *chat.Group `json:"group"`
	ConversationID      string      `json:"conversation_id"`
	ConversationCreated bool        `json:"conversation_created"`
}

// ConversationMessage is one support-inbox conversation part rendered as text.
type ConversationMessage struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	AuthorType string    `json:"author_type"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AddParticipantsResult struct {
	Added          []uint `json:"added"`
	AlreadyMembers []uint `json:"already_members"`
	Notice         string `json:"notice,omitempty"`
}

// Service is the REST-facing provisioning API.
type Service interface {
	ProvisionUser(ctx context.Context, params ProvisionUserParams) (*Result, error)
	GetUser(ctx context.Context, id uint) (*chat.User, error)
	ListConversationMessages(ctx context.Context, conversationID string) ([]ConversationMessage, error)
	AddParticipants(ctx context.Context, conversationID string, userIDs []uint) (*AddParticipantsResult, error)
	BootstrapGroupConversation(ctx context.Context, params BootstrapGroupParams) (*Result, error)
}

type service struct {
	reconciler Reconciler
	inbox      provider.InboxClient
	users      chat.UserRepository
	groups     chat.GroupRepository
	greeting   string
	log        zerolog.Logger
}

func NewService(reconciler Reconciler, inbox provider.InboxClient, users chat.UserRepository, groups chat.GroupRepository, greeting string, log zerolog.Logger) Service {
	return &service{
		reconciler: reconciler,
		inbox:      inbox,
		users:      users,
		groups:     groups,
		greeting:   greeting,
		log:        log.With().Str("component", "provisioning").Logger(),
	}
}

// ProvisionUser finds or creates the local user by email, its support-inbox
// contact, its personal conversation and the group pinned to it. Repeating the
// call returns the same records.
func (s *service) ProvisionUser(ctx context.Context, params ProvisionUserParams) (*Result, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if name == "" || email == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "name and email are required", nil, "0d6f2a4b-8c1e-4b7a-9f35-e2a7c4d91b06")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, err
		}
		user = &chat.User{Name: name, Email: email, Role: chat.UserRoleMember}
		if err := s.users.Create(ctx, user); err != nil {
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
				return nil, err
			}
			if user, err = s.users.FindByEmail(ctx, email); err != nil {
				return nil, err
			}
		}
	}

	user, err = s.reconciler.EnsureContact(ctx, user)
	if err != nil {
		return nil, err
	}
	handle, err := s.reconciler.ResolveConversation(ctx, user, []string{user.ContactID()}, s.greeting)
	if err != nil {
		return nil, err
	}

	group, err := s.groupForConversation(ctx, handle.ID, "Support: "+user.Name, user.ID, nil)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Group: group, ConversationID: handle.ID, ConversationCreated: handle.Created}, nil
}

func (s *service) GetUser(ctx context.Context, id uint) (*chat.User, error) {
	return s.users.FindByID(ctx, id)
}

// ListConversationMessages returns the conversation's parts. Provider failures
// degrade to an empty list.
func (s *service) ListConversationMessages(ctx context.Context, conversationID string) ([]ConversationMessage, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation id is required", nil, "5e8b1c7d-3a92-4f06-b4d1-7c2e9a6f0b38")
	}

	conversation, err := s.inbox.GetConversation(ctx, conversationID)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to fetch conversation messages, returning empty list")
		return []ConversationMessage{}, nil
	}

	out := make([]ConversationMessage, 0, len(conversation.Parts))
	for _, part := range conversation.Parts {
		body := htmltext.PlainText(part.Body)
		if body == "" {
			continue
		}
		out = append(out, ConversationMessage{
			ID:         part.ID,
			Body:       body,
			AuthorType: string(part.AuthorType),
			AuthorID:   part.AuthorID,
			AuthorName: part.AuthorName,
			CreatedAt:  part.CreatedAt,
		})
	}
	return out, nil
}

// AddParticipants adds users to the conversation and then to the group pinned
// to it. Member rows are written only after the support inbox accepted the
// contacts, so a failed call can be retried. Users who already belong to the
// group are reported, not rejected.
func (s *service) AddParticipants(ctx context.Context, conversationID string, userIDs []uint) (*AddParticipantsResult, error) {
	if len(userIDs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "at least one user id is required", nil, "9b4e2d61-0f7a-4c3b-8e25-d1a6f3c7b940")
	}
	group, err := s.groups.FindByExternalConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	result := &AddParticipantsResult{Added: []uint{}, AlreadyMembers: []uint{}}
	var pending []*chat.User
	var newContacts []string
	for _, userID := range userIDs {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		member, err := s.groups.IsMember(ctx, group.ID, user.ID)
		if err != nil {
			return nil, err
		}
		if member {
			result.AlreadyMembers = append(result.AlreadyMembers, user.ID)
			continue
		}

		withContact, err := s.reconciler.EnsureContact(ctx, user)
		if err != nil {
			return nil, err
		}
		pending = append(pending, withContact)
		newContacts = append(newContacts, withContact.ContactID())
	}

	if len(newContacts) > 0 {
		if err := s.inbox.AddContacts(ctx, conversationID, newContacts); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "add contacts to conversation")
		}
	}
	for _, user := range pending {
		added, err := s.groups.AddMember(ctx, chat.GroupMember{GroupID: group.ID, UserID: user.ID, Role: chat.MemberRoleMember})
		if err != nil {
			return nil, err
		}
		if !added {
			result.AlreadyMembers = append(result.AlreadyMembers, user.ID)
			continue
		}
		result.Added = append(result.Added, user.ID)
	}

	if len(result.AlreadyMembers) > 0 {
		result.Notice = "some users were already participants"
	}
	s.log.Info().
		Str("conversation_id", conversationID).
		Int("added", len(result.Added)).
		Int("already_members", len(result.AlreadyMembers)).
		Msg("participants added")
	return result, nil
}

// BootstrapGroupConversation resolves the group conversation for the owner and
// members and returns the local group pinned to it.
func (s *service) BootstrapGroupConversation(ctx context.Context, params BootstrapGroupParams) (*Result, error) {
	if params.OwnerID == 0 || len(params.MemberIDs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "owner id and at least one member id are required", nil, "e27c9f40-6b1d-4a85-a3e8-5f0d2b7c1a96")
	}

	owner, err := s.users.FindByID(ctx, params.OwnerID)
	if err != nil {
		return nil, err
	}
	owner, err = s.reconciler.EnsureContact(ctx, owner)
	if err != nil {
		return nil, err
	}

	contacts := []string{owner.ContactID()}
	memberIDs := make([]uint, 0, len(params.MemberIDs))
	for _, id := range params.MemberIDs {
		if id == owner.ID {
			continue
		}
		member, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		member, err = s.reconciler.EnsureContact(ctx, member)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, member.ContactID())
		memberIDs = append(memberIDs, member.ID)
	}
	if len(memberIDs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "a group needs a member besides the owner", nil, "4c1a8e7f-2d93-4b60-9e1f-a5b7d3c2e084")
	}

	handle, err := s.reconciler.ResolveConversation(ctx, owner, contacts, s.greeting)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = "Support group"
	}
	group, err := s.groupForConversation(ctx, handle.ID, name, owner.ID, memberIDs)
	if err != nil {
		return nil, err
	}
	return &Result{User: owner, Group: group, ConversationID: handle.ID, ConversationCreated: handle.Created}, nil
}

// groupForConversation returns the group pinned to conversationID, creating it
// with the given owner and members when none exists.
func (s *service) groupForConversation(ctx context.Context, conversationID, name string, ownerID uint, memberIDs []uint) (*chat.Group, error) {
	existing, err := s.groups.FindByExternalConversationID(ctx, conversationID)
	if err == nil {
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	group := &chat.Group{Name: name, OwnerID: ownerID}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	if _, err := s.groups.AddMember(ctx, chat.GroupMember{GroupID: group.ID, UserID: ownerID, Role: chat.MemberRoleOwner}); err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if _, err := s.groups.AddMember(ctx, chat.GroupMember{GroupID: group.ID, UserID: id, Role: chat.MemberRoleMember}); err != nil {
			return nil, err
		}
	}

	pinned, err := s.groups.SetExternalConversationID(ctx, group.ID, conversationID)
	if err != nil {
		return nil, err
	}
	if pinned.ConversationID() != conversationID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "group is pinned to another conversation", nil, "8d3f6b2a-1e47-4c9d-b0a5-6e2c8f4d7a13")
	}
	s.log.Info().Uint("group_id", group.ID).Str("conversation_id", conversationID).Msg("created group for conversation")
	return pinned, nil
}
