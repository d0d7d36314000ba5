// Package realtime tracks which sockets belong to which users and group rooms,
// and pushes events to them.
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/infrastructure/metrics"
)

// Event names pushed to clients.
const (
	EventNewMessage   = "new_message"
	EventMessageError = "message_error"
)

// Conn is one connected socket. Send must not block on a slow peer.
type Conn interface {
	ID() string
	Send(event string, payload any) error
}

// Registry owns the socket/user/room maps. Entries are removed only on Disconnect.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]Conn
	userSocket  map[uint]string
	socketUser  map[string]uint
	rooms       map[uint]map[string]struct{}
	socketRooms map[string]map[uint]struct{}
	log         zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns:       make(map[string]Conn),
		userSocket:  make(map[uint]string),
		socketUser:  make(map[string]uint),
		rooms:       make(map[uint]map[string]struct{}),
		socketRooms: make(map[string]map[uint]struct{}),
		log:         log.With().Str("component", "realtime-registry").Logger(),
	}
}

// Connect records a new socket before it authenticates.
func (r *Registry) Connect(conn Conn) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()
	metrics.RecordSocketConnected()
}

// Authenticate maps userID to conn. A later registration for the same user
// silently replaces the earlier socket. A socket that switches to another user
// leaves every room it joined as the previous one.
func (r *Registry) Authenticate(conn Conn, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	socketID := conn.ID()
	r.conns[socketID] = conn
	if previous, ok := r.socketUser[socketID]; ok && previous != userID {
		if r.userSocket[previous] == socketID {
			delete(r.userSocket, previous)
		}
		r.leaveAllLocked(socketID)
	}
	if old, ok := r.userSocket[userID]; ok && old != socketID {
		r.log.Debug().Uint("user_id", userID).Str("previous_socket", old).Str("socket_id", socketID).Msg("user socket replaced")
	}
	r.userSocket[userID] = socketID
	r.socketUser[socketID] = userID
}

// UserFor returns the user authenticated on conn.
func (r *Registry) UserFor(conn Conn) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.socketUser[conn.ID()]
	return userID, ok
}

// JoinGroup adds conn to the group's room. It reports false when conn was
// already in the room.
func (r *Registry) JoinGroup(conn Conn, groupID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	socketID := conn.ID()
	r.conns[socketID] = conn
	room, ok := r.rooms[groupID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[groupID] = room
	}
	if _, already := room[socketID]; already {
		metrics.RecordRoomJoin(false)
		return false
	}
	room[socketID] = struct{}{}

	joined, ok := r.socketRooms[socketID]
	if !ok {
		joined = make(map[uint]struct{})
		r.socketRooms[socketID] = joined
	}
	joined[groupID] = struct{}{}
	metrics.RecordRoomJoin(true)
	return true
}

// LeaveGroup removes conn from the group's room.
func (r *Registry) LeaveGroup(conn Conn, groupID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn.ID(), groupID)
}

func (r *Registry) leaveLocked(socketID string, groupID uint) {
	if room, ok := r.rooms[groupID]; ok {
		delete(room, socketID)
		if len(room) == 0 {
			delete(r.rooms, groupID)
		}
	}
	if joined, ok := r.socketRooms[socketID]; ok {
		delete(joined, groupID)
		if len(joined) == 0 {
			delete(r.socketRooms, socketID)
		}
	}
}

func (r *Registry) leaveAllLocked(socketID string) {
	for groupID := range r.socketRooms[socketID] {
		r.leaveLocked(socketID, groupID)
	}
}

// Disconnect forgets conn. The user mapping is dropped only when it still
// points at this socket.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	socketID := conn.ID()
	if _, ok := r.conns[socketID]; !ok {
		return
	}
	r.leaveAllLocked(socketID)
	if userID, ok := r.socketUser[socketID]; ok {
		if r.userSocket[userID] == socketID {
			delete(r.userSocket, userID)
		}
		delete(r.socketUser, socketID)
	}
	delete(r.conns, socketID)
	metrics.RecordSocketDisconnected()
}

// EmitToGroup sends the event to every socket in the group's room and returns
// how many sockets it was handed to.
func (r *Registry) EmitToGroup(groupID uint, event string, payload any) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.rooms[groupID]))
	for socketID := range r.rooms[groupID] {
		if conn, ok := r.conns[socketID]; ok {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		r.send(conn, event, payload)
	}
	return len(targets)
}

// EmitToUser sends the event to the user's last registered socket.
func (r *Registry) EmitToUser(userID uint, event string, payload any) bool {
	r.mu.RLock()
	conn, ok := r.conns[r.userSocket[userID]]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	r.send(conn, event, payload)
	return true
}

func (r *Registry) send(conn Conn, event string, payload any) {
	if err := conn.Send(event, payload); err != nil {
		r.log.Debug().Err(err).Str("socket_id", conn.ID()).Str("event", event).Msg("emit dropped")
	}
}
