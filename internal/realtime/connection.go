package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Time allowed to write a message to the peer
const writeWait = 10 * time.Second

// Socket is the subset of *websocket.Conn the manager needs. Tests substitute
// a mock implementation.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps one live socket with its metadata. A Connection is owned by
// exactly one registry slot (a room membership or a presence slot) for its
// lifetime.
type Connection struct {
	ID          string
	UserID      uint
	RoomID      uint // 0 means presence scope
	ConnectedAt time.Time

	socket       Socket
	lastActivity atomic.Int64 // unix nanos

	// writeMu serializes writes; gorilla connections allow one writer at a time
	writeMu   sync.Mutex
	heartbeat *heartbeatSupervisor
	closeOnce sync.Once
}

func NewConnection(socket Socket, userID uint, roomID uint) *Connection {
	c := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		RoomID:      roomID,
		ConnectedAt: time.Now(),
		socket:      socket,
	}
	c.Touch()
	return c
}

// Touch updates the last-activity timestamp
func (c *Connection) Touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Send marshals the envelope and writes it to the socket
func (c *Connection) Send(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

func (c *Connection) sendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.Touch()
	return nil
}

// Close closes the underlying socket without a close frame, for paths where
// the peer is already gone. Only the first close (either variant) acts.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.socket.Close()
	})
}

// CloseWithCode sends a close frame with the given code and reason, then
// closes the underlying socket. Safe to call from any teardown path; only the
// first call acts.
func (c *Connection) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		// Best effort; the peer may already be gone
		c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		c.writeMu.Unlock()
		c.socket.Close()
	})
}
