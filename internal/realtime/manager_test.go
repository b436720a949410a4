package realtime

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pairplan-service/internal/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSocket is a mock implementation of the Socket interface for testing
type mockSocket struct {
	mu         sync.Mutex
	writes     []mockWrite
	closed     bool
	failWrites bool
	inbound    chan []byte
	inboundOnce sync.Once
}

type mockWrite struct {
	messageType int
	data        []byte
}

func newMockSocket() *mockSocket {
	return &mockSocket{inbound: make(chan []byte, 16)}
}

func (m *mockSocket) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return websocket.ErrCloseSent
	}
	if m.failWrites {
		return errors.New("write failed")
	}
	m.writes = append(m.writes, mockWrite{messageType, data})
	return nil
}

func (m *mockSocket) ReadMessage() (int, []byte, error) {
	data, ok := <-m.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, data, nil
}

func (m *mockSocket) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *mockSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.inboundOnce.Do(func() { close(m.inbound) })
	return nil
}

func (m *mockSocket) setFailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *mockSocket) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// textMessages returns the data of all text frames written so far
func (m *mockSocket) textMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result [][]byte
	for _, w := range m.writes {
		if w.messageType == websocket.TextMessage {
			result = append(result, w.data)
		}
	}
	return result
}

// closeCode returns the code of the close frame written, or 0 if none
func (m *mockSocket) closeCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writes {
		if w.messageType == websocket.CloseMessage && len(w.data) >= 2 {
			return int(binary.BigEndian.Uint16(w.data[:2]))
		}
	}
	return 0
}

type wireEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelopes(t *testing.T, msgs [][]byte) []wireEnvelope {
	t.Helper()
	envelopes := make([]wireEnvelope, 0, len(msgs))
	for _, raw := range msgs {
		var env wireEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		envelopes = append(envelopes, env)
	}
	return envelopes
}

// envelopeTypes filters out heartbeat pings so tests can assert on domain events
func envelopeTypes(t *testing.T, msgs [][]byte) []string {
	t.Helper()
	var types []string
	for _, env := range decodeEnvelopes(t, msgs) {
		if env.Type == string(EventPing) || env.Type == string(EventPong) {
			continue
		}
		types = append(types, env.Type)
	}
	return types
}

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		MaxConnsPerUser:   2,
		MaxConnsPerRoom:   2,
		OfflineQueueSize:  3,
		HeartbeatInterval: time.Hour, // keep pings out of registry tests
		PingTimeout:       time.Second,
	}
}

func newTestConn(userID, roomID uint) (*Connection, *mockSocket) {
	sock := newMockSocket()
	return NewConnection(sock, userID, roomID), sock
}

func TestJoinRoomUserQuota(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, _ := newTestConn(1, 10)
	c2, _ := newTestConn(1, 20)
	c3, _ := newTestConn(1, 30)

	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(20, c2))
	assert.ErrorIs(t, m.JoinRoom(30, c3), ErrUserQuotaExceeded)

	assert.Equal(t, 2, m.UserConnectionCount(1))
}

func TestJoinRoomCapacity(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, _ := newTestConn(1, 10)
	c2, _ := newTestConn(2, 10)
	c3, _ := newTestConn(3, 10)

	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(10, c2))
	assert.ErrorIs(t, m.JoinRoom(10, c3), ErrRoomFull)

	assert.Len(t, m.RoomMembers(10), 2)
	assert.Equal(t, 0, m.UserConnectionCount(3))
}

func TestEmptyRoomCleanup(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, _ := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, c1))

	m.LeaveRoom(10, c1)

	m.mu.Lock()
	_, exists := m.rooms[10]
	m.mu.Unlock()
	assert.False(t, exists, "empty room entry should be removed")
	assert.Equal(t, 0, m.UserConnectionCount(1))
}

func TestLeaveRoomIdempotent(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, _ := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, c1))

	m.LeaveRoom(10, c1)
	m.LeaveRoom(10, c1) // already gone, must not panic or go negative

	assert.Equal(t, 0, m.UserConnectionCount(1))
}

func TestBroadcastRoom(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnsPerRoom = 3
	m := NewManager(cfg)
	defer m.Shutdown()

	c1, s1 := newTestConn(1, 10)
	c2, s2 := newTestConn(2, 10)
	c3, s3 := newTestConn(3, 10)
	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(10, c2))
	require.NoError(t, m.JoinRoom(10, c3))

	delivered := m.BroadcastRoom(10, EventNewMessage, map[string]string{"text": "hi"}, c1)

	assert.Equal(t, 2, delivered)
	assert.Empty(t, envelopeTypes(t, s1.textMessages()), "excluded sender must not receive")
	assert.Equal(t, []string{"new_message"}, envelopeTypes(t, s2.textMessages()))
	assert.Equal(t, []string{"new_message"}, envelopeTypes(t, s3.textMessages()))
}

func TestBroadcastRemovesFailedMembers(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, s1 := newTestConn(1, 10)
	c2, s2 := newTestConn(2, 10)
	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(10, c2))

	s1.setFailWrites(true)
	delivered := m.BroadcastRoom(10, EventNewMessage, map[string]string{"text": "hi"}, nil)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []uint{2}, m.RoomMembers(10))
	assert.Equal(t, 0, m.UserConnectionCount(1))
	assert.True(t, s1.isClosed())
	assert.Equal(t, []string{"new_message"}, envelopeTypes(t, s2.textMessages()))
}

func TestBroadcastIsolation(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, s1 := newTestConn(1, 10)
	c2, s2 := newTestConn(2, 20)
	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(20, c2))

	m.BroadcastRoom(10, EventNewMessage, map[string]string{"text": "hi"}, nil)

	assert.Equal(t, []string{"new_message"}, envelopeTypes(t, s1.textMessages()))
	assert.Empty(t, envelopeTypes(t, s2.textMessages()), "other rooms must not receive")
	assert.Equal(t, 1, m.UserConnectionCount(2))
}

func TestPresenceSingleSlot(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	first, firstSock := newTestConn(1, 0)
	second, secondSock := newTestConn(1, 0)

	require.NoError(t, m.OpenPresence(first))
	require.NoError(t, m.OpenPresence(second))

	assert.True(t, firstSock.isClosed(), "replaced connection must be closed, not dropped")
	assert.Equal(t, websocket.CloseNormalClosure, firstSock.closeCode())
	assert.False(t, secondSock.isClosed())
	assert.Equal(t, 1, m.UserConnectionCount(1))

	// The new slot is live
	assert.Equal(t, Delivered, m.NotifyUser(1, EventPartnerConnected, nil))
	assert.Equal(t, []string{"partner_connected"}, envelopeTypes(t, secondSock.textMessages()))
}

func TestPresenceReplaceAllowedAtQuota(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	// Fill the per-user quota: one room + one presence
	room, _ := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, room))
	first, _ := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(first))
	assert.Equal(t, 2, m.UserConnectionCount(1))

	// Replacement keeps the footprint constant, so it is admitted
	second, _ := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(second))
	assert.Equal(t, 2, m.UserConnectionCount(1))

	// A third connection exceeds the per-user quota
	extra, _ := newTestConn(1, 20)
	assert.ErrorIs(t, m.JoinRoom(20, extra), ErrUserQuotaExceeded)
}

func TestPresenceQuotaShared(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	c1, _ := newTestConn(1, 10)
	c2, _ := newTestConn(1, 20)
	require.NoError(t, m.JoinRoom(10, c1))
	require.NoError(t, m.JoinRoom(20, c2))

	p, _ := newTestConn(1, 0)
	assert.ErrorIs(t, m.OpenPresence(p), ErrUserQuotaExceeded)
}

func TestNotifyUserQueuesWhenOffline(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	assert.Equal(t, Queued, m.NotifyUser(1, EventProposalCreated, map[string]uint{"id": 7}))

	m.mu.Lock()
	q := m.queues[1]
	m.mu.Unlock()
	require.NotNil(t, q)
	assert.Equal(t, 1, q.Len())
}

func TestNotifyUserSendFailureTearsDownAndQueues(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))
	sock.setFailWrites(true)

	result := m.NotifyUser(1, EventProposalCreated, map[string]uint{"id": 7})

	assert.Equal(t, Queued, result, "message must be queued, not lost")
	assert.False(t, m.IsUserOnline(1))
	assert.True(t, sock.isClosed())
	assert.Equal(t, 0, m.UserConnectionCount(1))
}

func TestOfflineQueueFlushOnOpen(t *testing.T) {
	m := NewManager(testConfig()) // queue capacity 3
	defer m.Shutdown()

	// Four messages while offline: capacity 3 with drop-oldest keeps B, C, D
	m.NotifyUser(1, EventProposalCreated, map[string]string{"tag": "A"})
	m.NotifyUser(1, EventProposalUpdated, map[string]string{"tag": "B"})
	m.NotifyUser(1, EventEventCreated, map[string]string{"tag": "C"})
	m.NotifyUser(1, EventEventDeleted, map[string]string{"tag": "D"})

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	types := envelopeTypes(t, sock.textMessages())
	assert.Equal(t, []string{"proposal_updated", "event_created", "event_deleted"}, types)

	m.mu.Lock()
	q := m.queues[1]
	m.mu.Unlock()
	if q != nil {
		assert.Equal(t, 0, q.Len())
	}
}

func TestOfflineFlushFailureRequeues(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	m.NotifyUser(1, EventProposalCreated, map[string]string{"tag": "A"})
	m.NotifyUser(1, EventProposalUpdated, map[string]string{"tag": "B"})

	conn, sock := newTestConn(1, 0)
	sock.setFailWrites(true)
	require.NoError(t, m.OpenPresence(conn))

	assert.False(t, m.IsUserOnline(1), "dead connection must be torn down")
	m.mu.Lock()
	q := m.queues[1]
	m.mu.Unlock()
	require.NotNil(t, q)
	assert.Equal(t, 2, q.Len(), "undelivered messages must be requeued")

	// A healthy reconnect receives them in the original order
	conn2, sock2 := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn2))
	assert.Equal(t, []string{"proposal_created", "proposal_updated"}, envelopeTypes(t, sock2.textMessages()))
}

func TestReadLoopAnswersPing(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	done := make(chan struct{})
	go func() {
		m.ReadLoop(conn)
		close(done)
	}()

	sock.inbound <- []byte(`{"type":"ping","timestamp":12345}`)
	sock.inbound <- []byte(`{"type":"subscribe"}`) // unknown, ignored
	sock.inbound <- []byte(`not json`)             // malformed, ignored

	require.Eventually(t, func() bool {
		for _, env := range decodeEnvelopes(t, sock.textMessages()) {
			if env.Type == string(EventPong) {
				var data struct {
					Timestamp int64 `json:"timestamp"`
				}
				require.NoError(t, json.Unmarshal(env.Data, &data))
				return data.Timestamp == 12345
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "ping must be answered with pong echoing the timestamp")

	sock.Close()
	<-done
	assert.False(t, m.IsUserOnline(1), "read loop exit must tear down the slot")
}

func TestShutdownCompleteness(t *testing.T) {
	m := NewManager(testConfig())

	room, roomSock := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, room))
	pres, presSock := newTestConn(2, 0)
	require.NoError(t, m.OpenPresence(pres))
	m.NotifyUser(3, EventProposalCreated, nil)

	m.Shutdown()
	m.Shutdown() // second call is a no-op

	assert.True(t, roomSock.isClosed())
	assert.Equal(t, websocket.CloseGoingAway, roomSock.closeCode())
	assert.True(t, presSock.isClosed())
	assert.Equal(t, websocket.CloseGoingAway, presSock.closeCode())

	m.mu.Lock()
	assert.Empty(t, m.rooms)
	assert.Empty(t, m.presence)
	assert.Empty(t, m.queues)
	assert.Empty(t, m.userConns)
	m.mu.Unlock()

	// No new admissions while draining
	late, _ := newTestConn(4, 10)
	assert.ErrorIs(t, m.JoinRoom(10, late), ErrShuttingDown)
	latePres, _ := newTestConn(4, 0)
	assert.ErrorIs(t, m.OpenPresence(latePres), ErrShuttingDown)
}

// Two users share a room; one stops answering pings and is reaped, after which
// broadcasts reach only the survivor.
func TestRoomHeartbeatScenario(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.PingTimeout = 30 * time.Millisecond
	m := NewManager(cfg)
	defer m.Shutdown()

	u1, u1Sock := newTestConn(1, 42)
	u2, _ := newTestConn(2, 42)
	require.NoError(t, m.JoinRoom(42, u1))
	require.NoError(t, m.JoinRoom(42, u2))
	require.Len(t, m.RoomMembers(42), 2)

	// u2 answers pings, u1 stays silent
	stopPump := make(chan struct{})
	defer close(stopPump)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				u2.heartbeat.Pong()
			case <-stopPump:
				return
			}
		}
	}()

	require.Eventually(t, func() bool {
		members := m.RoomMembers(42)
		return len(members) == 1 && members[0] == 2
	}, time.Second, 10*time.Millisecond, "silent member must be reaped within interval+timeout")

	assert.True(t, u1Sock.isClosed())
	assert.Equal(t, websocket.ClosePolicyViolation, u1Sock.closeCode())
	assert.Equal(t, 0, m.UserConnectionCount(1))

	delivered := m.BroadcastRoom(42, EventNewMessage, map[string]string{"text": "still here?"}, nil)
	assert.Equal(t, 1, delivered)
}
