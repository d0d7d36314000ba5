package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/infrastructure/metrics"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// Service decides which support-inbox conversation and which ticket belong to a
// local user or group, creating them only when no existing one matches.
type Service struct {
	inbox   provider.InboxClient
	tickets provider.TicketingClient
	users   chat.UserRepository
	locker  Locker
	cfg     Config
	log     zerolog.Logger
}

// NewService wires the reconciler.
func NewService(inbox provider.InboxClient, tickets provider.TicketingClient, users chat.UserRepository, locker Locker, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		inbox:   inbox,
		tickets: tickets,
		users:   users,
		locker:  locker,
		cfg:     cfg,
		log:     log.With().Str("component", "reconciler").Logger(),
	}
}

// ContactExternalID is the external_id the relay stamps on support-inbox contacts.
func ContactExternalID(user *chat.User) string {
	return strconv.FormatUint(uint64(user.ID), 10)
}

// EnsureContact returns user with its support-inbox contact id set, searching
// before creating. Stored ids are only ever filled, never replaced.
func (s *Service) EnsureContact(ctx context.Context, user *chat.User) (*chat.User, error) {
	if user == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user is required", nil, "2eeb449e-31b6-40de-98bb-035f53a43594")
	}
	if user.HasContact() {
		return user, nil
	}

	var stored *chat.User
	err := s.locker.WithLock(ctx, "contact:"+ContactExternalID(user), func(ctx context.Context) error {
		current, err := s.users.FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if current.HasContact() {
			stored = current
			return nil
		}

		externalID := ContactExternalID(user)
		contact, err := s.inbox.FindContactByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		if contact == nil {
			contact, err = s.inbox.CreateContact(ctx, provider.CreateContactRequest{
				ExternalID: externalID,
				Email:      user.Email,
				Name:       user.Name,
			})
			if err != nil {
				return err
			}
			metrics.RecordReconcilerAction("contact_created")
			s.log.Info().Uint("user_id", user.ID).Str("contact_id", contact.ID).Msg("created support inbox contact")
		}

		sourceID := contact.ExternalID
		if sourceID == "" {
			sourceID = externalID
		}
		stored, err = s.users.AssignExternalIDs(ctx, user.ID, contact.ID, sourceID)
		return err
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "ensure support inbox contact")
	}
	return stored, nil
}

// ResolveConversation finds or creates the conversation for participantIDs and
// guarantees it is open on return. initialBody seeds a newly created conversation.
func (s *Service) ResolveConversation(ctx context.Context, user *chat.User, participantIDs []string, initialBody string) (*ConversationHandle, error) {
	participants := NormalizeParticipants(participantIDs)
	if len(participants) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "at least one participant is required", nil, "66a014d5-4cd7-41ff-8e19-0631d25a904f")
	}

	existing, err := s.findConversation(ctx, participants)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find support inbox conversation")
	}
	if existing != nil {
		return s.ensureOpen(ctx, existing)
	}

	var handle *ConversationHandle
	err = s.locker.WithLock(ctx, participantKey(participants), func(ctx context.Context) error {
		again, err := s.findConversation(ctx, participants)
		if err != nil {
			return err
		}
		if again != nil {
			handle, err = s.ensureOpen(ctx, again)
			return err
		}
		handle, err = s.createConversation(ctx, user, participants, initialBody)
		return err
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve support inbox conversation")
	}
	return handle, nil
}

// ReopenIfNeeded fetches a known conversation and reopens it when it is not open.
func (s *Service) ReopenIfNeeded(ctx context.Context, conversationID string) (*ConversationHandle, error) {
	conversation, err := s.inbox.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "fetch support inbox conversation")
	}
	return s.ensureOpen(ctx, conversation)
}

func (s *Service) findConversation(ctx context.Context, participants []string) (*provider.Conversation, error) {
	if len(participants) == 1 {
		all, err := s.inbox.ListConversationsByContact(ctx, participants[0])
		if err != nil {
			return nil, err
		}
		personal := make([]provider.Conversation, 0, len(all))
		for _, conversation := range all {
			if conversation.Kind != provider.ConversationKindGroup {
				personal = append(personal, conversation)
			}
		}
		return mostRecent(personal), nil
	}

	candidates, err := s.inbox.SearchGroupConversations(ctx, participants)
	if err != nil {
		return nil, err
	}
	matches := make([]provider.Conversation, 0, len(candidates))
	for _, conversation := range candidates {
		if conversation.Kind != provider.ConversationKindGroup {
			continue
		}
		if SameParticipants(NormalizeParticipants(conversation.ContactIDs), participants) {
			matches = append(matches, conversation)
		}
	}
	return mostRecent(matches), nil
}

func (s *Service) ensureOpen(ctx context.Context, conversation *provider.Conversation) (*ConversationHandle, error) {
	handle := &ConversationHandle{
		ID:    conversation.ID,
		Kind:  conversation.Kind,
		State: conversation.State,
	}
	if conversation.IsOpen() {
		return handle, nil
	}

	if err := s.inbox.ReopenConversation(ctx, conversation.ID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "reopen support inbox conversation")
	}
	metrics.RecordReconcilerAction("conversation_reopened")
	s.log.Info().Str("conversation_id", conversation.ID).Str("previous_state", string(conversation.State)).Msg("reopened conversation")

	handle.State = provider.ConversationOpen
	handle.Reopened = true
	return handle, nil
}

func (s *Service) createConversation(ctx context.Context, user *chat.User, participants []string, initialBody string) (*ConversationHandle, error) {
	body := strings.TrimSpace(initialBody)
	if body == "" {
		body = s.cfg.Greeting
	}

	// The initiator opens the conversation when they are part of it.
	ordered := make([]string, 0, len(participants))
	if initiator := user.ContactID(); initiator != "" {
		for _, id := range participants {
			if id == initiator {
				ordered = append(ordered, id)
				break
			}
		}
	}
	for _, id := range participants {
		if len(ordered) > 0 && id == ordered[0] {
			continue
		}
		ordered = append(ordered, id)
	}

	conversation, err := s.inbox.CreateConversation(ctx, provider.CreateConversationRequest{
		ContactIDs: ordered,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordReconcilerAction("conversation_created")
	s.log.Info().
		Str("conversation_id", conversation.ID).
		Str("kind", string(conversation.Kind)).
		Int("participants", len(participants)).
		Msg("created conversation")

	return &ConversationHandle{
		ID:      conversation.ID,
		Kind:    provider.ConversationKindFor(len(participants)),
		State:   provider.ConversationOpen,
		Created: true,
	}, nil
}

// ResolveTicket appends body to the ticket tagged for conversationID, creating the
// ticket when none exists. Agent messages become private notes and never create
// a requester identity.
func (s *Service) ResolveTicket(ctx context.Context, conversationID string, requester Requester, body string, isAgentMessage bool) (*TicketHandle, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation id is required", nil, "58256608-9c84-480f-b0ce-d5a8647a249b")
	}
	tag := provider.ConversationTag(conversationID)
	formatted := FormatTicketBody(requester.Name, body, isAgentMessage)

	ticket, err := s.findTicket(ctx, tag)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find ticket")
	}
	if ticket != nil {
		return s.appendToTicket(ctx, ticket, requester, formatted, isAgentMessage)
	}

	var handle *TicketHandle
	err = s.locker.WithLock(ctx, "ticket:"+tag, func(ctx context.Context) error {
		again, err := s.findTicket(ctx, tag)
		if err != nil {
			return err
		}
		if again != nil {
			handle, err = s.appendToTicket(ctx, again, requester, formatted, isAgentMessage)
			return err
		}
		handle, err = s.createTicket(ctx, tag, requester, formatted, isAgentMessage)
		return err
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve ticket")
	}
	return handle, nil
}

func (s *Service) findTicket(ctx context.Context, tag string) (*provider.Ticket, error) {
	found, err := s.tickets.SearchTicketsByTag(ctx, tag)
	if err == nil {
		return pickTicket(found, tag), nil
	}

	s.log.Warn().Err(err).Str("tag", tag).Msg("ticket search failed, falling back to list")
	all, listErr := s.tickets.ListTickets(ctx)
	if listErr != nil {
		return nil, listErr
	}
	openLike := make([]provider.Ticket, 0, len(all))
	for _, ticket := range all {
		if ticket.Status.IsOpenLike() {
			openLike = append(openLike, ticket)
		}
	}
	return pickTicket(openLike, tag), nil
}

func (s *Service) appendToTicket(ctx context.Context, ticket *provider.Ticket, requester Requester, body string, isAgentMessage bool) (*TicketHandle, error) {
	comment := provider.TicketComment{Body: body, Public: !isAgentMessage}
	if !isAgentMessage {
		requesterID, err := s.resolveRequester(ctx, requester)
		if err != nil {
			return nil, err
		}
		comment.AuthorID = requesterID
	}

	updated, err := s.tickets.UpdateTicket(ctx, ticket.ID, provider.UpdateTicketRequest{
		Comment: comment,
		Status:  provider.TicketPending,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordReconcilerAction("ticket_updated")

	status := updated.Status
	if status == "" {
		status = provider.TicketPending
	}
	return &TicketHandle{ID: ticket.ID, Status: status, RequesterID: comment.AuthorID}, nil
}

func (s *Service) createTicket(ctx context.Context, tag string, requester Requester, body string, isAgentMessage bool) (*TicketHandle, error) {
	req := provider.CreateTicketRequest{
		Subject:  ticketSubject(requester.Name),
		Comment:  provider.TicketComment{Body: body, Public: !isAgentMessage},
		Priority: provider.TicketPriorityNormal,
		Status:   provider.TicketNew,
		Tags:     []string{tag},
	}
	if !isAgentMessage {
		requesterID, err := s.resolveRequester(ctx, requester)
		if err != nil {
			return nil, err
		}
		req.RequesterID = requesterID
	}

	created, err := s.tickets.CreateTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RecordReconcilerAction("ticket_created")
	s.log.Info().Int64("ticket_id", created.ID).Str("tag", tag).Msg("created ticket")

	return &TicketHandle{ID: created.ID, Status: provider.TicketNew, Created: true, RequesterID: req.RequesterID}, nil
}

func (s *Service) resolveRequester(ctx context.Context, requester Requester) (int64, error) {
	email := strings.TrimSpace(requester.Email)
	if email == "" {
		email = fmt.Sprintf("user-%s@%s", requester.Key, s.cfg.RequesterEmailDomain)
	}

	user, err := s.tickets.FindUserByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if user != nil {
		return user.ID, nil
	}

	user, err = s.tickets.CreateUser(ctx, requester.Name, email)
	if err != nil {
		return 0, err
	}
	metrics.RecordReconcilerAction("requester_created")
	return user.ID, nil
}

// FormatTicketBody renders a relayed message as ticket comment text.
func FormatTicketBody(authorName, body string, isAgentMessage bool) string {
	name := strings.TrimSpace(authorName)
	if isAgentMessage {
		if name == "" {
			name = "Support agent"
		}
		return fmt.Sprintf("[Agent message relayed to app] %s: %s", name, body)
	}
	if name == "" {
		return body
	}
	return fmt.Sprintf("%s: %s", name, body)
}

func ticketSubject(requesterName string) string {
	name := strings.TrimSpace(requesterName)
	if name == "" {
		return "Support conversation"
	}
	return "Support conversation with " + name
}
