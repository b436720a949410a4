package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"pairplan-service/internal/config"

	"github.com/gorilla/websocket"
)

// Manager owns every live connection: room memberships, per-user presence
// slots, offline queues, and the per-user connection counters. All registry
// mutation goes through its methods under one mutex so membership and counter
// updates stay atomic; socket writes happen outside the lock against a
// snapshot, with failed members removed after the pass.
type Manager struct {
	cfg config.RealtimeConfig

	mu        sync.Mutex
	rooms     map[uint][]*Connection // roomID -> members in join order
	presence  map[uint]*Connection   // userID -> single presence slot
	queues    map[uint]*OfflineQueue // userID -> pending notifications
	userConns map[uint]int           // userID -> rooms + presence count

	draining     atomic.Bool
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

func NewManager(cfg config.RealtimeConfig) *Manager {
	return &Manager{
		cfg:       cfg,
		rooms:     make(map[uint][]*Connection),
		presence:  make(map[uint]*Connection),
		queues:    make(map[uint]*OfflineQueue),
		userConns: make(map[uint]int),
	}
}

// startHeartbeat must be called with m.mu held
func (m *Manager) startHeartbeat(conn *Connection) {
	s := newHeartbeatSupervisor(conn, m.cfg.HeartbeatInterval, m.cfg.PingTimeout, m.draining.Load, m.reapConnection)
	conn.heartbeat = s
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.run()
	}()
}

// reapConnection runs the registry leave/close path after a heartbeat timeout
func (m *Manager) reapConnection(conn *Connection) {
	if conn.RoomID != 0 {
		m.LeaveRoom(conn.RoomID, conn)
	} else {
		m.ClosePresence(conn)
	}
}

func (m *Manager) decrementUser(userID uint) {
	m.userConns[userID]--
	if m.userConns[userID] <= 0 {
		delete(m.userConns, userID)
	}
}

// JoinRoom admits a connection into a room after checking the user and room
// quotas, and starts its heartbeat. The caller has already authenticated the
// user and checked room access.
func (m *Manager) JoinRoom(roomID uint, conn *Connection) error {
	m.mu.Lock()
	if m.draining.Load() {
		m.mu.Unlock()
		return ErrShuttingDown
	}
	if m.userConns[conn.UserID] >= m.cfg.MaxConnsPerUser {
		m.mu.Unlock()
		return ErrUserQuotaExceeded
	}
	if len(m.rooms[roomID]) >= m.cfg.MaxConnsPerRoom {
		m.mu.Unlock()
		return ErrRoomFull
	}

	m.rooms[roomID] = append(m.rooms[roomID], conn)
	m.userConns[conn.UserID]++
	m.startHeartbeat(conn)
	members := len(m.rooms[roomID])
	m.mu.Unlock()

	slog.Info("connection joined room",
		"connectionId", conn.ID, "userId", conn.UserID, "roomId", roomID, "members", members)
	return nil
}

// LeaveRoom removes a connection from a room, stops its heartbeat, and deletes
// the room entry once empty. Removing an absent connection is a no-op.
func (m *Manager) LeaveRoom(roomID uint, conn *Connection) {
	m.mu.Lock()
	members := m.rooms[roomID]
	removed := false
	for i, c := range members {
		if c == conn {
			m.rooms[roomID] = append(members[:i], members[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		if len(m.rooms[roomID]) == 0 {
			delete(m.rooms, roomID)
		}
		m.decrementUser(conn.UserID)
	}
	m.mu.Unlock()

	if removed {
		if conn.heartbeat != nil {
			conn.heartbeat.Stop()
		}
		slog.Info("connection left room", "connectionId", conn.ID, "userId", conn.UserID, "roomId", roomID)
	}
}

// BroadcastRoom sends an event to every current member of a room except
// exclude. Sends happen against a membership snapshot; members whose socket
// write fails are removed and closed after the pass completes. Returns the
// number of successful deliveries.
func (m *Manager) BroadcastRoom(roomID uint, kind EventKind, payload interface{}, exclude *Connection) int {
	data, err := json.Marshal(&Envelope{Type: kind, Data: payload})
	if err != nil {
		slog.Error("failed to marshal broadcast payload", "roomId", roomID, "kind", kind, "error", err)
		return 0
	}

	m.mu.Lock()
	snapshot := make([]*Connection, len(m.rooms[roomID]))
	copy(snapshot, m.rooms[roomID])
	m.mu.Unlock()

	delivered := 0
	var failed []*Connection
	for _, c := range snapshot {
		if c == exclude {
			continue
		}
		if err := c.sendRaw(data); err != nil {
			slog.Debug("broadcast send failed, removing member",
				"connectionId", c.ID, "userId", c.UserID, "roomId", roomID, "error", err)
			failed = append(failed, c)
			continue
		}
		delivered++
	}

	for _, c := range failed {
		m.LeaveRoom(roomID, c)
		c.Close()
	}

	return delivered
}

// OpenPresence installs a connection as the user's single presence slot. A
// prior slot is explicitly closed and torn down before the replacement takes
// effect; queued offline notifications are flushed to the new connection.
func (m *Manager) OpenPresence(conn *Connection) error {
	m.mu.Lock()
	if m.draining.Load() {
		m.mu.Unlock()
		return ErrShuttingDown
	}

	old := m.presence[conn.UserID]
	effective := m.userConns[conn.UserID]
	if old != nil {
		// Replacement does not grow the user's footprint
		effective--
	}
	if effective >= m.cfg.MaxConnsPerUser {
		m.mu.Unlock()
		return ErrUserQuotaExceeded
	}

	if old != nil {
		m.decrementUser(old.UserID)
	}
	m.presence[conn.UserID] = conn
	m.userConns[conn.UserID]++
	m.startHeartbeat(conn)

	var pending [][]byte
	if q := m.queues[conn.UserID]; q != nil {
		pending = q.Drain()
	}
	m.mu.Unlock()

	if old != nil {
		if old.heartbeat != nil {
			old.heartbeat.Stop()
		}
		old.CloseWithCode(websocket.CloseNormalClosure, "replaced by a newer connection")
		slog.Info("presence connection replaced", "userId", conn.UserID, "oldConnectionId", old.ID, "newConnectionId", conn.ID)
	} else {
		slog.Info("presence connection opened", "connectionId", conn.ID, "userId", conn.UserID)
	}

	m.flush(conn, pending)
	return nil
}

// flush delivers drained offline payloads in FIFO order. On the first send
// failure the undelivered remainder goes back to the queue and the connection
// is torn down.
func (m *Manager) flush(conn *Connection, pending [][]byte) {
	for i, data := range pending {
		if err := conn.sendRaw(data); err != nil {
			slog.Warn("offline flush failed, requeueing remainder",
				"userId", conn.UserID, "remaining", len(pending)-i, "error", err)
			m.mu.Lock()
			q := m.queues[conn.UserID]
			if q == nil {
				q = NewOfflineQueue(m.cfg.OfflineQueueSize)
				m.queues[conn.UserID] = q
			}
			q.Requeue(pending[i:])
			m.mu.Unlock()

			m.ClosePresence(conn)
			return
		}
	}
	if len(pending) > 0 {
		slog.Info("offline queue flushed", "userId", conn.UserID, "delivered", len(pending))
	}
}

// ClosePresence tears down the user's presence slot if conn still occupies it.
// Idempotent; a slot already replaced by a newer connection is left alone.
func (m *Manager) ClosePresence(conn *Connection) {
	m.mu.Lock()
	removed := m.presence[conn.UserID] == conn
	if removed {
		delete(m.presence, conn.UserID)
		m.decrementUser(conn.UserID)
	}
	m.mu.Unlock()

	if removed {
		if conn.heartbeat != nil {
			conn.heartbeat.Stop()
		}
		conn.Close()
		slog.Info("presence connection closed", "connectionId", conn.ID, "userId", conn.UserID)
	}
}

// NotifyUser delivers an event to the user's presence connection, or queues it
// when the user is offline. A send failure tears the dead connection down and
// queues the message instead of losing it.
func (m *Manager) NotifyUser(userID uint, kind EventKind, payload interface{}) DeliveryResult {
	data, err := json.Marshal(&Envelope{Type: kind, Data: payload})
	if err != nil {
		slog.Error("failed to marshal notification", "userId", userID, "kind", kind, "error", err)
		return Failed
	}

	m.mu.Lock()
	conn := m.presence[userID]
	m.mu.Unlock()

	if conn != nil {
		if err := conn.sendRaw(data); err == nil {
			return Delivered
		}
		m.ClosePresence(conn)
	}

	m.mu.Lock()
	q := m.queues[userID]
	if q == nil {
		q = NewOfflineQueue(m.cfg.OfflineQueueSize)
		m.queues[userID] = q
	}
	q.Push(data)
	m.mu.Unlock()

	return Queued
}

// IsUserOnline reports whether the user has a live presence connection
func (m *Manager) IsUserOnline(userID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.presence[userID]
	return ok
}

// RoomMembers returns the user ids currently joined to a room
func (m *Manager) RoomMembers(roomID uint) []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.rooms[roomID]
	ids := make([]uint, 0, len(members))
	for _, c := range members {
		ids = append(ids, c.UserID)
	}
	return ids
}

// UserConnectionCount returns the user's combined room + presence count
func (m *Manager) UserConnectionCount(userID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userConns[userID]
}

// ReadLoop consumes inbound messages until the peer disconnects, answering
// ping with pong and routing pong to the heartbeat supervisor. Everything else
// is logged and ignored. On exit the connection is removed from its registry.
func (m *Manager) ReadLoop(conn *Connection) {
	defer func() {
		m.reapConnection(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "connectionId", conn.ID, "userId", conn.UserID, "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed inbound message", "connectionId", conn.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "ping":
			conn.Touch()
			if err := conn.Send(&Envelope{Type: EventPong, Data: map[string]int64{"timestamp": msg.Timestamp}}); err != nil {
				return
			}
		case "pong":
			if conn.heartbeat != nil {
				conn.heartbeat.Pong()
			} else {
				conn.Touch()
			}
		default:
			slog.Debug("ignoring inbound message", "connectionId", conn.ID, "type", msg.Type)
		}
	}
}

// Shutdown drains the manager: no new connections or heartbeat cycles are
// admitted, every room and presence connection receives a going-away close,
// all heartbeat goroutines are awaited, and registries and queues are cleared.
// Subsequent calls are no-ops.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.draining.Store(true)

		m.mu.Lock()
		var conns []*Connection
		for _, members := range m.rooms {
			conns = append(conns, members...)
		}
		for _, c := range m.presence {
			conns = append(conns, c)
		}
		m.rooms = make(map[uint][]*Connection)
		m.presence = make(map[uint]*Connection)
		m.queues = make(map[uint]*OfflineQueue)
		m.userConns = make(map[uint]int)
		m.mu.Unlock()

		for _, c := range conns {
			if c.heartbeat != nil {
				c.heartbeat.Stop()
			}
			c.CloseWithCode(CloseGoingAway, "server shutting down")
		}
		m.wg.Wait()

		slog.Info("realtime manager shut down", "closedConnections", len(conns))
	})
}
