package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	id     string
	mu     sync.Mutex
	events []string
	fail   bool
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(event string, payload any) error {
	if c.fail {
		return errors.New("closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestJoinGroupIsIdempotent(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &recordingConn{id: "s1"}
	r.Connect(conn)

	assert.True(t, r.JoinGroup(conn, 7))
	assert.False(t, r.JoinGroup(conn, 7))

	delivered := r.EmitToGroup(7, EventNewMessage, map[string]string{"content": "hi"})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, conn.count())
}

func TestEmitToGroupReachesOnlyRoomMembers(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	inRoom := &recordingConn{id: "a"}
	elsewhere := &recordingConn{id: "b"}
	r.Connect(inRoom)
	r.Connect(elsewhere)
	r.JoinGroup(inRoom, 1)
	r.JoinGroup(elsewhere, 2)

	r.EmitToGroup(1, EventNewMessage, nil)

	assert.Equal(t, 1, inRoom.count())
	assert.Equal(t, 0, elsewhere.count())
}

func TestAuthenticateLastRegistrationWins(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	first := &recordingConn{id: "first"}
	second := &recordingConn{id: "second"}
	r.Connect(first)
	r.Connect(second)

	r.Authenticate(first, 42)
	r.Authenticate(second, 42)

	require.True(t, r.EmitToUser(42, EventMessageError, nil))
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())

	// The stale socket disconnecting must not unmap the newer one.
	r.Disconnect(first)
	assert.True(t, r.EmitToUser(42, EventMessageError, nil))
	assert.Equal(t, 2, second.count())
}

func TestDisconnectRemovesRoomsAndUser(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &recordingConn{id: "s1"}
	r.Connect(conn)
	r.Authenticate(conn, 5)
	r.JoinGroup(conn, 3)

	r.Disconnect(conn)

	assert.Equal(t, 0, r.EmitToGroup(3, EventNewMessage, nil))
	assert.False(t, r.EmitToUser(5, EventNewMessage, nil))
	_, ok := r.UserFor(conn)
	assert.False(t, ok)
}

func TestLeaveGroupStopsDelivery(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &recordingConn{id: "s1"}
	r.Connect(conn)
	r.JoinGroup(conn, 9)
	r.LeaveGroup(conn, 9)

	assert.Equal(t, 0, r.EmitToGroup(9, EventNewMessage, nil))
	assert.True(t, r.JoinGroup(conn, 9))
}

func TestEmitIgnoresSendFailures(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	broken := &recordingConn{id: "broken", fail: true}
	ok := &recordingConn{id: "ok"}
	r.Connect(broken)
	r.Connect(ok)
	r.JoinGroup(broken, 1)
	r.JoinGroup(ok, 1)

	assert.Equal(t, 2, r.EmitToGroup(1, EventNewMessage, nil))
	assert.Equal(t, 1, ok.count())
}

func TestSwitchingUserLeavesPreviousRooms(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &recordingConn{id: "s1"}
	r.Connect(conn)
	r.Authenticate(conn, 1)
	require.True(t, r.JoinGroup(conn, 7))

	r.Authenticate(conn, 1)
	assert.Equal(t, 1, r.EmitToGroup(7, EventNewMessage, nil), "re-authenticating as the same user keeps rooms")

	r.Authenticate(conn, 2)
	assert.Equal(t, 0, r.EmitToGroup(7, EventNewMessage, nil))
	userID, ok := r.UserFor(conn)
	require.True(t, ok)
	assert.Equal(t, uint(2), userID)
	assert.False(t, r.EmitToUser(1, EventNewMessage, nil))
}
