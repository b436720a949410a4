package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Heartbeat states
const (
	hbActive int32 = iota
	hbAwaitingPong
	hbTimedOut
)

// heartbeatSupervisor runs one liveness loop per connection. Every interval it
// sends a ping envelope and waits up to pingTimeout for the client's pong; a
// missed pong (or a failed ping write) closes the connection and hands it back
// to the owning registry through onTimeout.
type heartbeatSupervisor struct {
	conn     *Connection
	interval time.Duration
	timeout  time.Duration

	// onTimeout runs the registry leave/close path for the dead connection
	onTimeout func(*Connection)
	// draining reports whether the manager is shutting down; no new heartbeat
	// cycles start once it returns true
	draining func() bool

	state    atomic.Int32
	pongCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newHeartbeatSupervisor(conn *Connection, interval, timeout time.Duration, draining func() bool, onTimeout func(*Connection)) *heartbeatSupervisor {
	return &heartbeatSupervisor{
		conn:      conn,
		interval:  interval,
		timeout:   timeout,
		onTimeout: onTimeout,
		draining:  draining,
		pongCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// run loops until the connection is torn down by any path. Must be called on
// its own goroutine; the manager tracks it via WaitGroup.
func (s *heartbeatSupervisor) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.draining() {
				return
			}
			if !s.cycle() {
				return
			}
		}
	}
}

// cycle sends one ping and waits for the pong. Returns false when the
// connection timed out and has been reaped.
func (s *heartbeatSupervisor) cycle() bool {
	s.state.Store(hbAwaitingPong)

	// A pong buffered between cycles answered an earlier ping; drop it so
	// only a reply to this ping counts
	select {
	case <-s.pongCh:
	default:
	}

	ping := &Envelope{Type: EventPing, Data: map[string]int64{"timestamp": time.Now().UnixMilli()}}
	if err := s.conn.Send(ping); err != nil {
		slog.Debug("heartbeat ping failed", "connectionId", s.conn.ID, "userId", s.conn.UserID, "error", err)
		s.reap()
		return false
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.pongCh:
		s.state.Store(hbActive)
		s.conn.Touch()
		return true
	case <-timer.C:
		slog.Info("heartbeat timeout, closing connection",
			"connectionId", s.conn.ID, "userId", s.conn.UserID, "roomId", s.conn.RoomID)
		s.reap()
		return false
	case <-s.stopCh:
		return false
	}
}

func (s *heartbeatSupervisor) reap() {
	s.state.Store(hbTimedOut)
	s.conn.CloseWithCode(ClosePolicy, "heartbeat timeout")
	if s.onTimeout != nil {
		s.onTimeout(s.conn)
	}
}

// Pong records a liveness reply from the client
func (s *heartbeatSupervisor) Pong() {
	s.conn.Touch()
	select {
	case s.pongCh <- struct{}{}:
	default:
	}
}

// Stop cancels the loop. Idempotent; callable from any teardown path.
func (s *heartbeatSupervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
