// Package relay moves messages between the app's group chat, the support inbox
// and the ticketing provider.
package relay

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/realtime"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/infrastructure/metrics"
	"github.com/janhq/support-relay/internal/utils/htmltext"
	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

// Router drives one relay chain per inbound event. Provider calls within a
// chain run strictly in order and nothing is persisted or broadcast before
// every provider call of the chain has succeeded.
type Router struct {
	reconciler Reconciler
	inbox      provider.InboxClient
	users      chat.UserRepository
	groups     chat.GroupRepository
	messages   chat.MessageRepository
	fanout     Broadcaster
	echoes     EchoGuard
	validate   *validator.Validate
	tracer     trace.Tracer
	log        zerolog.Logger
}

// Deps bundles the router's collaborators.
type Deps struct {
	Reconciler Reconciler
	Inbox      provider.InboxClient
	Users      chat.UserRepository
	Groups     chat.GroupRepository
	Messages   chat.MessageRepository
	Fanout     Broadcaster
	Echoes     EchoGuard
}

func NewRouter(deps Deps, log zerolog.Logger) *Router {
	return &Router{
		reconciler: deps.Reconciler,
		inbox:      deps.Inbox,
		users:      deps.Users,
		groups:     deps.Groups,
		messages:   deps.Messages,
		fanout:     deps.Fanout,
		echoes:     deps.Echoes,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		tracer:     otel.Tracer("support-relay/relay"),
		log:        log.With().Str("component", "relay-router").Logger(),
	}
}

var _ Service = (*Router)(nil)

// SendAppMessage relays a message written in the app to the support inbox and
// the ticket, then persists and broadcasts it.
func (r *Router) SendAppMessage(ctx context.Context, params SendParams) (msg *chat.Message, err error) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "relay.send_app_message", trace.WithAttributes(
		attribute.Int64("group_id", int64(params.GroupID)),
		attribute.Int64("user_id", int64(params.UserID)),
	))
	state := StateIdle
	defer func() { r.finish(span, directionOutbound, state, started, err) }()

	if err := r.validate.Struct(params); err != nil {
		state = StateFailed
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, validationMessage(err), err, "b5a0f0e2-7f55-4a43-8b6a-9f3f0c8e1d21")
	}
	if params.MessageType == "" {
		params.MessageType = chat.MessageTypeText
	}

	group, err := r.groups.FindByID(ctx, params.GroupID)
	if err != nil {
		state = StateFailed
		return nil, err
	}
	sender, err := r.users.FindByID(ctx, params.UserID)
	if err != nil {
		state = StateFailed
		return nil, err
	}
	member, err := r.groups.IsMember(ctx, group.ID, sender.ID)
	if err != nil {
		state = StateFailed
		return nil, err
	}
	if !member {
		state = StateFailed
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "user is not a member of the group", nil, "3f9d7c61-2a4e-4f0b-9d1c-6a3e8b5f2c70")
	}

	state = StateAwaitingProviderAck
	body := outboundBody(params)

	sender, err = r.reconciler.EnsureContact(ctx, sender)
	if err != nil {
		state = StateFailed
		return nil, err
	}

	conversationID, created, err := r.conversationForGroup(ctx, group, sender, body)
	if err != nil {
		state = StateFailed
		return nil, err
	}

	metadata := map[string]any{chat.MetaConversationID: conversationID}
	if !created {
		reply, err := r.inbox.ReplyAsUser(ctx, conversationID, sender.ContactID(), body)
		if err != nil {
			state = StateFailed
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "send message to support inbox")
		}
		if reply.PartID != "" {
			metadata[chat.MetaPartID] = reply.PartID
		}
	}

	ticket, err := r.reconciler.ResolveTicket(ctx, conversationID, reconcile.Requester{
		Name:  sender.Name,
		Email: sender.Email,
		Key:   reconcile.ContactExternalID(sender),
	}, body, false)
	if err != nil {
		state = StateFailed
		return nil, err
	}
	metadata[chat.MetaTicketID] = ticket.ID

	msg = &chat.Message{
		PublicID:    ulid.Make().String(),
		GroupID:     group.ID,
		SenderID:    sender.ID,
		MessageType: params.MessageType,
		Content:     params.Content,
		MediaURL:    params.MediaURL,
		Direction:   chat.DirectionIncoming,
		Metadata:    metadata,
	}
	if err := r.messages.Create(ctx, msg); err != nil {
		state = StateFailed
		return nil, err
	}

	state = StateDelivered
	r.fanout.EmitToGroup(group.ID, realtime.EventNewMessage, msg)
	r.log.Info().
		Uint("group_id", group.ID).
		Uint("user_id", sender.ID).
		Str("conversation_id", conversationID).
		Int64("ticket_id", ticket.ID).
		Bool("conversation_created", created).
		Msg("app message relayed")
	return msg, nil
}

// conversationForGroup returns the group's pinned conversation, resolving and
// pinning one when the group has none. created reports whether body already
// opened a brand new conversation.
func (r *Router) conversationForGroup(ctx context.Context, group *chat.Group, sender *chat.User, body string) (string, bool, error) {
	if pinned := group.ConversationID(); pinned != "" {
		handle, err := r.reconciler.ReopenIfNeeded(ctx, pinned)
		if err != nil {
			return "", false, err
		}
		return handle.ID, false, nil
	}

	participants, err := r.participantContacts(ctx, group, sender)
	if err != nil {
		return "", false, err
	}
	handle, err := r.reconciler.ResolveConversation(ctx, sender, participants, body)
	if err != nil {
		return "", false, err
	}

	stored, err := r.groups.SetExternalConversationID(ctx, group.ID, handle.ID)
	if err != nil {
		return "", false, err
	}
	if winner := stored.ConversationID(); winner != "" && winner != handle.ID {
		r.log.Warn().
			Uint("group_id", group.ID).
			Str("resolved", handle.ID).
			Str("pinned", winner).
			Msg("group already pinned to another conversation")
		again, err := r.reconciler.ReopenIfNeeded(ctx, winner)
		if err != nil {
			return "", false, err
		}
		return again.ID, false, nil
	}
	return handle.ID, handle.Created, nil
}

// participantContacts returns the support-inbox contact ids of the group's app
// members, creating contacts as needed.
func (r *Router) participantContacts(ctx context.Context, group *chat.Group, sender *chat.User) ([]string, error) {
	memberIDs, err := r.groups.ListMemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	members, err := r.users.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	contacts := []string{sender.ContactID()}
	for _, member := range members {
		if member.ID == sender.ID || member.Role == chat.UserRoleAgent {
			continue
		}
		withContact, err := r.reconciler.EnsureContact(ctx, member)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, withContact.ContactID())
	}
	return contacts, nil
}

// HandleTicketEvent relays a public agent comment from a ticket back to the
// support inbox and the app.
func (r *Router) HandleTicketEvent(ctx context.Context, event TicketEvent) (result *Result, err error) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "relay.ticket_event", trace.WithAttributes(
		attribute.String("event_type", event.Type),
		attribute.Int64("ticket_id", event.Ticket.ID),
	))
	state := StateIdle
	defer func() { r.finish(span, directionTicket, state, started, err) }()

	switch event.Type {
	case TicketEventCommentAdded:
	case TicketEventStatusChanged, TicketEventCreated, TicketEventUpdated:
		state = StateIgnored
		return ignored("event type is acknowledged without relay"), nil
	default:
		state = StateIgnored
		r.log.Debug().Str("type", event.Type).Msg("unrecognized ticket event")
		return ignored("unrecognized event type"), nil
	}

	if event.Ticket.ID == 0 || event.Comment == nil || strings.TrimSpace(event.Comment.Body) == "" || event.Comment.Public == nil {
		state = StateFailed
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "ticket id, comment body and is_public are required", nil, "c1e5b6a8-94d2-4d7e-b8f3-0a2d6c9e4b17")
	}
	comment := event.Comment

	conversationID, ok := provider.ConversationIDFromTags(event.Ticket.Tags)
	if !ok {
		state = StateIgnored
		return ignored("ticket is not linked to a conversation"), nil
	}
	if !*comment.Public {
		state = StateIgnored
		return ignored("private comment"), nil
	}
	if comment.Author.Role == "end-user" || (event.Ticket.RequesterID != 0 && comment.Author.ID == event.Ticket.RequesterID) {
		state = StateIgnored
		return ignored("comment was relayed from the app"), nil
	}

	state = StateAwaitingRelayToApp
	authorName := strings.TrimSpace(comment.Author.Name)
	reply, err := r.inbox.ReplyAsAdmin(ctx, conversationID, inboxBody(authorName, comment.Body))
	if err != nil {
		state = StateFailed
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "send agent comment to support inbox")
	}
	if reply.PartID != "" {
		r.echoes.Remember(reply.PartID)
	}

	ticket, err := r.reconciler.ResolveTicket(ctx, conversationID, reconcile.Requester{Name: authorName}, comment.Body, true)
	if err != nil {
		state = StateFailed
		return nil, err
	}

	authorID := strconv.FormatInt(comment.Author.ID, 10)
	msg, err := r.deliverAgentMessage(ctx, conversationID, provider.NameTicketing, authorID, authorName, comment.Body, map[string]any{
		chat.MetaConversationID: conversationID,
		chat.MetaPartID:         reply.PartID,
		chat.MetaTicketID:       ticket.ID,
		chat.MetaAuthorID:       authorID,
	})
	if err != nil {
		state = StateFailed
		return nil, err
	}

	state = StateDelivered
	return &Result{State: StateDelivered, Message: msg}, nil
}

// HandleInboxEvent relays a reply an agent typed directly in the support inbox.
func (r *Router) HandleInboxEvent(ctx context.Context, event InboxEvent) (result *Result, err error) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "relay.inbox_event", trace.WithAttributes(
		attribute.String("topic", event.Topic),
		attribute.String("conversation_id", event.Data.Item.ID),
	))
	state := StateIdle
	defer func() { r.finish(span, directionInbox, state, started, err) }()

	if event.Topic != InboxTopicAdminReplied {
		state = StateIgnored
		return ignored("topic is acknowledged without relay"), nil
	}

	conversationID := strings.TrimSpace(event.Data.Item.ID)
	if conversationID == "" {
		state = StateFailed
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation id is required", nil, "7a2c4e91-5d3b-4f68-a0e7-2b9c1d8f6e43")
	}

	part := lastAdminPart(event.Data.Item.ConversationParts.Parts)
	if part == nil {
		state = StateIgnored
		return ignored("no admin reply in payload"), nil
	}
	if r.echoes.Seen(part.ID) {
		state = StateIgnored
		return ignored("reply was posted by the relay"), nil
	}
	body := htmltext.PlainText(part.Body)
	if body == "" {
		state = StateIgnored
		return ignored("empty reply"), nil
	}

	state = StateAwaitingRelayToApp
	authorName := strings.TrimSpace(part.Author.Name)
	ticket, err := r.reconciler.ResolveTicket(ctx, conversationID, reconcile.Requester{Name: authorName}, body, true)
	if err != nil {
		state = StateFailed
		return nil, err
	}

	msg, err := r.deliverAgentMessage(ctx, conversationID, provider.NameInbox, part.Author.ID, authorName, body, map[string]any{
		chat.MetaConversationID: conversationID,
		chat.MetaPartID:         part.ID,
		chat.MetaTicketID:       ticket.ID,
		chat.MetaAuthorID:       part.Author.ID,
	})
	if err != nil {
		state = StateFailed
		return nil, err
	}

	state = StateDelivered
	return &Result{State: StateDelivered, Message: msg}, nil
}

// deliverAgentMessage persists an agent-side message for every group pinned to
// conversationID and broadcasts it. It returns the message stored for the
// oldest group. Conversations with no local group are relayed to the providers only.
func (r *Router) deliverAgentMessage(ctx context.Context, conversationID, source, authorID, authorName, body string, metadata map[string]any) (*chat.Message, error) {
	groups, err := r.groups.ListByExternalConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		r.log.Warn().Str("conversation_id", conversationID).Msg("no group pinned to conversation, skipping app delivery")
		return nil, nil
	}

	agent, err := r.agentUser(ctx, source, authorID, authorName)
	if err != nil {
		return nil, err
	}

	var first *chat.Message
	for _, group := range groups {
		msg := &chat.Message{
			PublicID:    ulid.Make().String(),
			GroupID:     group.ID,
			SenderID:    agent.ID,
			MessageType: chat.MessageTypeText,
			Content:     body,
			Direction:   chat.DirectionOutgoing,
			Metadata:    metadata,
		}
		if err := r.messages.Create(ctx, msg); err != nil {
			return nil, err
		}
		r.fanout.EmitToGroup(group.ID, realtime.EventNewMessage, msg)
		if first == nil {
			first = msg
		}
	}

	r.log.Info().
		Int("groups", len(groups)).
		Str("conversation_id", conversationID).
		Str("source", source).
		Msg("agent message relayed to app")
	return first, nil
}

// agentUser finds or creates the local stand-in for a support agent.
func (r *Router) agentUser(ctx context.Context, source, authorID, authorName string) (*chat.User, error) {
	ref := AgentRef(source, authorID)
	existing, err := r.users.FindByAgentRef(ctx, ref)
	if err == nil {
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	name := authorName
	if name == "" {
		name = "Support agent"
	}
	agent := &chat.User{Name: name, Role: chat.UserRoleAgent, AgentRef: &ref}
	if err := r.users.Create(ctx, agent); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return r.users.FindByAgentRef(ctx, ref)
		}
		return nil, err
	}
	return agent, nil
}

// AgentRef is the stable key of a local agent user.
func AgentRef(source, authorID string) string {
	return "agent:" + source + ":" + authorID
}

func (r *Router) finish(span trace.Span, direction string, state State, started time.Time, err error) {
	if err != nil {
		state = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Debug().Err(err).Str("direction", direction).Msg("relay chain failed")
	}
	span.SetAttributes(attribute.String("relay.state", string(state)))
	span.End()
	metrics.RecordRelayOutcome(direction, string(state), started)
}

func ignored(reason string) *Result {
	return &Result{State: StateIgnored, Reason: reason}
}

func outboundBody(params SendParams) string {
	body := strings.TrimSpace(params.Content)
	if params.MediaURL != nil && *params.MediaURL != "" {
		body += "\n" + *params.MediaURL
	}
	return body
}

func inboxBody(authorName, body string) string {
	if authorName == "" {
		return body
	}
	return authorName + ": " + body
}

func lastAdminPart(parts []InboxEventPart) *InboxEventPart {
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Author.Type == string(provider.AuthorAdmin) {
			return &parts[i]
		}
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid message"
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return "invalid message: " + strings.Join(fields, ", ")
}
