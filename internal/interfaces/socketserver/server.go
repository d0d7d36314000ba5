// Package socketserver speaks the realtime websocket protocol: clients
// authenticate, join group rooms and send messages that are relayed
// asynchronously.
package socketserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/config"
	"github.com/janhq/support-relay/internal/domain/realtime"
	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/infrastructure/auth"
	"github.com/janhq/support-relay/internal/worker"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errNotMember        = errors.New("not a member of this group")
	errUserMismatch     = errors.New("user id does not match the authenticated user")
)

// Membership answers whether a user belongs to a group.
type Membership interface {
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
}

// Submitter queues background work.
type Submitter interface {
	Submit(task worker.Task) error
}

type Server struct {
	cfg      *config.Config
	registry *realtime.Registry
	groups   Membership
	relay    relay.Service
	jobs     Submitter
	auth     *auth.Validator
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func New(cfg *config.Config, registry *realtime.Registry, groups Membership, relayService relay.Service, jobs Submitter, authValidator *auth.Validator, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		groups:   groups,
		relay:    relayService,
		jobs:     jobs,
		auth:     authValidator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.With().Str("component", "socketserver").Logger(),
	}
}

// Register mounts the upgrade endpoint.
func (s *Server) Register(engine *gin.Engine) {
	engine.GET(s.cfg.SocketPath, s.Handle)
}

// Handle upgrades the request and serves the connection until it closes.
func (s *Server) Handle(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConnection(ws, s.cfg.SocketWriteTimeout)
	s.registry.Connect(conn)
	go conn.writePump()

	s.readLoop(conn)
}

func (s *Server) readLoop(conn *connection) {
	defer func() {
		s.registry.Disconnect(conn)
		conn.close()
	}()

	conn.ws.SetReadLimit(maxFrameSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("socket_id", conn.id).Msg("websocket read error")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.log.Debug().Err(err).Str("socket_id", conn.id).Msg("invalid websocket frame")
			continue
		}
		s.dispatch(conn, frame)
	}
}

func (s *Server) dispatch(conn *connection, frame inboundFrame) {
	switch frame.Event {
	case EventAuthenticate:
		s.reply(conn, frame.ID, s.authenticate(conn, frame.Data))
	case EventJoinGroup:
		s.reply(conn, frame.ID, s.joinGroup(conn, frame.Data))
	case EventLeaveGroup:
		var payload groupPayload
		if err := json.Unmarshal(frame.Data, &payload); err == nil && payload.GroupID != 0 {
			s.registry.LeaveGroup(conn, payload.GroupID)
		}
	case EventSendMessage:
		s.sendMessage(conn, frame.Data)
	default:
		s.log.Debug().Str("event", frame.Event).Str("socket_id", conn.id).Msg("unknown socket event")
	}
}

func (s *Server) reply(conn *connection, id string, err error) {
	if sendErr := conn.ack(id, err); sendErr != nil {
		s.log.Debug().Err(sendErr).Str("socket_id", conn.id).Msg("failed to send ack")
	}
}

func (s *Server) authenticate(conn *connection, raw json.RawMessage) error {
	var payload authenticatePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.UserID == 0 {
		return errors.New("user_id is required")
	}
	if s.auth.Enabled() {
		if _, err := s.auth.ValidateForUser(payload.Token, payload.UserID); err != nil {
			if errors.Is(err, auth.ErrSubjectMismatch) {
				return errUserMismatch
			}
			return errors.New("invalid token")
		}
	}
	s.registry.Authenticate(conn, payload.UserID)
	return nil
}

func (s *Server) joinGroup(conn *connection, raw json.RawMessage) error {
	userID, ok := s.registry.UserFor(conn)
	if !ok {
		return errNotAuthenticated
	}
	var payload groupPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.GroupID == 0 {
		return errors.New("group_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProviderTimeout)
	defer cancel()
	member, err := s.groups.IsMember(ctx, payload.GroupID, userID)
	if err != nil {
		s.log.Error().Err(err).Uint("group_id", payload.GroupID).Msg("membership lookup failed")
		return errors.New("membership lookup failed")
	}
	if !member {
		return errNotMember
	}
	s.registry.JoinGroup(conn, payload.GroupID)
	return nil
}

// sendMessage queues the relay; success reaches the room as new_message and
// failure reaches the sender as message_error.
func (s *Server) sendMessage(conn *connection, raw json.RawMessage) {
	var params relay.SendParams
	if err := json.Unmarshal(raw, &params); err != nil {
		s.notifyError(conn, params, errors.New("invalid message payload"))
		return
	}
	userID, ok := s.registry.UserFor(conn)
	if !ok {
		s.notifyError(conn, params, errNotAuthenticated)
		return
	}
	if params.UserID == 0 {
		params.UserID = userID
	}
	if params.UserID != userID {
		s.notifyError(conn, params, errUserMismatch)
		return
	}

	err := s.jobs.Submit(worker.Task{
		Name: EventSendMessage,
		Run: func(ctx context.Context) error {
			_, err := s.relay.SendAppMessage(ctx, params)
			return err
		},
		OnError: func(err error) {
			s.registry.EmitToUser(userID, realtime.EventMessageError, MessageError{GroupID: params.GroupID, Content: params.Content, Error: err.Error()})
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Uint("group_id", params.GroupID).Msg("failed to queue message relay")
		s.notifyError(conn, params, err)
	}
}

func (s *Server) notifyError(conn *connection, params relay.SendParams, err error) {
	_ = conn.Send(realtime.EventMessageError, MessageError{GroupID: params.GroupID, Content: params.Content, Error: err.Error()})
}
