package socketserver

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 * 1024
	sendBufferSize = 64
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send buffer full")
)

// connection is one websocket client. Writes go through a buffered channel
// drained by writePump so emitters never block on a slow socket.
type connection struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newConnection(ws *websocket.Conn, writeTimeout time.Duration) *connection {
	return &connection{
		id:           uuid.NewString(),
		ws:           ws,
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (c *connection) ID() string {
	return c.id
}

// Send queues an event frame for the client.
func (c *connection) Send(event string, payload any) error {
	return c.enqueue(Frame{Event: event, Data: payload})
}

func (c *connection) ack(id string, err error) error {
	result := Ack{Success: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	return c.enqueue(Frame{Event: EventAck, ID: id, Data: result})
}

func (c *connection) enqueue(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSlowConsumer
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
