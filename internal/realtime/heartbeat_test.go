package realtime

import (
	"testing"
	"time"

	"pairplan-service/internal/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heartbeatConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		MaxConnsPerUser:   4,
		MaxConnsPerRoom:   4,
		OfflineQueueSize:  10,
		HeartbeatInterval: 40 * time.Millisecond,
		PingTimeout:       25 * time.Millisecond,
	}
}

func TestHeartbeatTimeoutReapsRoomConnection(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))

	require.Eventually(t, func() bool {
		return sock.isClosed() && m.UserConnectionCount(1) == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, websocket.ClosePolicyViolation, sock.closeCode())
	assert.Empty(t, m.RoomMembers(10))
}

func TestHeartbeatTimeoutReapsPresenceConnection(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	require.Eventually(t, func() bool {
		return sock.isClosed() && !m.IsUserOnline(1)
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, websocket.ClosePolicyViolation, sock.closeCode())
}

func TestHeartbeatStalePongDoesNotAnswerNextPing(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))

	// A pong that arrives before any ping answers nothing
	conn.heartbeat.Pong()

	require.Eventually(t, func() bool {
		return sock.isClosed()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, websocket.ClosePolicyViolation, sock.closeCode())

	pings := 0
	for _, env := range decodeEnvelopes(t, sock.textMessages()) {
		if env.Type == string(EventPing) {
			pings++
		}
	}
	assert.Equal(t, 1, pings, "the unanswered first ping should reap the connection")
}

func TestHeartbeatPongKeepsConnectionAlive(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.heartbeat.Pong()
			case <-stop:
				return
			}
		}
	}()

	// Survive several full heartbeat cycles
	time.Sleep(200 * time.Millisecond)
	assert.False(t, sock.isClosed())
	assert.Equal(t, []uint{1}, m.RoomMembers(10))
}

func TestHeartbeatPingWriteFailureReaps(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, sock := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))
	sock.setFailWrites(true)

	require.Eventually(t, func() bool {
		return m.UserConnectionCount(1) == 0
	}, time.Second, 5*time.Millisecond, "an unwritable connection must be reaped on the next cycle")
}

func TestHeartbeatStopIsIdempotent(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, _ := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))

	conn.heartbeat.Stop()
	conn.heartbeat.Stop() // must not panic on double close
	m.LeaveRoom(10, conn) // leave also stops the heartbeat
}

func TestHeartbeatUpdatesLastActivity(t *testing.T) {
	m := NewManager(heartbeatConfig())
	defer m.Shutdown()

	conn, _ := newTestConn(1, 10)
	require.NoError(t, m.JoinRoom(10, conn))
	before := conn.LastActivity()

	time.Sleep(10 * time.Millisecond)
	conn.heartbeat.Pong()

	assert.True(t, conn.LastActivity().After(before))
}
