package realtime

import (
	"errors"

	"github.com/gorilla/websocket"
)

// EventKind identifies a server-to-client notification type
type EventKind string

// Domain event kinds (closed set)
const (
	EventPartnerConnected    EventKind = "partner_connected"
	EventPartnerDisconnected EventKind = "partner_disconnected"
	EventProposalCreated     EventKind = "proposal_created"
	EventProposalUpdated     EventKind = "proposal_updated"
	EventEventCreated        EventKind = "event_created"
	EventEventDeleted        EventKind = "event_deleted"
	EventNewMessage          EventKind = "new_message"
	EventDeleteMessage       EventKind = "delete_message"
	EventNewChecklistItem    EventKind = "new_checklist_item"
	EventUpdateChecklistItem EventKind = "update_checklist_item"
	EventDeleteChecklistItem EventKind = "delete_checklist_item"
)

// Control kinds used by the heartbeat protocol, never dispatched by services
const (
	EventPing EventKind = "ping"
	EventPong EventKind = "pong"
)

// EventReminder travels only on the push hand-off topic. Connected clients
// already see the event on their calendar, so it is never sent over a socket.
const EventReminder EventKind = "reminder"

// IsValid checks if the EventKind belongs to the dispatchable set
func (k EventKind) IsValid() bool {
	switch k {
	case EventPartnerConnected, EventPartnerDisconnected,
		EventProposalCreated, EventProposalUpdated,
		EventEventCreated, EventEventDeleted,
		EventNewMessage, EventDeleteMessage,
		EventNewChecklistItem, EventUpdateChecklistItem, EventDeleteChecklistItem:
		return true
	default:
		return false
	}
}

func (k EventKind) String() string {
	return string(k)
}

// Envelope is the server-to-client message shape
type Envelope struct {
	Type EventKind   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inboundMessage is what clients may send over the socket. Only ping and pong
// are recognized; everything else is logged and ignored.
type inboundMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Close codes sent when a connection is rejected or torn down
const (
	CloseGoingAway    = websocket.CloseGoingAway         // 1001 graceful shutdown
	CloseRoomNotFound = websocket.CloseUnsupportedData   // 1003 unknown room
	ClosePolicy       = websocket.ClosePolicyViolation   // 1008 quota or heartbeat
	CloseInternal     = websocket.CloseInternalServerErr // 1011 unexpected failure
	CloseUnauthorized = 4001                             // bad or missing token
	CloseForbidden    = 4003                             // authenticated, not a member
)

// DeliveryResult reports what happened to a targeted notification
type DeliveryResult int

const (
	// Delivered means the message was written to a live presence connection
	Delivered DeliveryResult = iota
	// Queued means the user was offline and the message entered the offline queue
	Queued
	// Failed means the message could not be delivered or queued
	Failed
)

func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Admission errors returned by JoinRoom and OpenPresence
var (
	ErrUserQuotaExceeded = errors.New("user connection quota exceeded")
	ErrRoomFull          = errors.New("room member limit reached")
	ErrShuttingDown      = errors.New("connection manager is shutting down")
)
