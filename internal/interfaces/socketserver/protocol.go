package socketserver

import "encoding/json"

// Client events.
const (
	EventAuthenticate = "authenticate"
	EventJoinGroup    = "join_group"
	EventLeaveGroup   = "leave_group"
	EventSendMessage  = "send_message"
)

// EventAck answers a client event that carries an id.
const EventAck = "ack"

// Frame is the JSON envelope in both directions.
type Frame struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Ack is the {success, error} acknowledgement payload.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type authenticatePayload struct {
	UserID uint   `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

type groupPayload struct {
	GroupID uint `json:"group_id"`
}

// MessageError tells the sender an asynchronous relay failed so it can retry.
type MessageError struct {
	GroupID uint   `json:"group_id"`
	Content string `json:"content"`
	Error   string `json:"error"`
}
