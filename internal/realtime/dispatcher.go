package realtime

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"
)

// Dispatcher translates domain events into addressed realtime messages. Every
// method is fire-and-forget: delivery failures are queued or logged, never
// returned, so a business operation cannot fail because a notification did.
//
// Partner-scoped events go to the recipient's presence channel and are also
// handed to Kafka for the external push worker. Room-scoped events broadcast
// to the event's room.
type Dispatcher struct {
	manager  *Manager
	producer sarama.SyncProducer // nil disables the push hand-off
	topic    string
}

func NewDispatcher(manager *Manager, producer sarama.SyncProducer, topic string) *Dispatcher {
	return &Dispatcher{
		manager:  manager,
		producer: producer,
		topic:    topic,
	}
}

type pushMessage struct {
	UserID uint        `json:"user_id"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data,omitempty"`
}

func (d *Dispatcher) notifyUser(userID uint, kind EventKind, payload interface{}) {
	result := d.manager.NotifyUser(userID, kind, payload)
	if result == Failed {
		slog.Warn("notification dropped", "userId", userID, "kind", kind)
	}
	d.publishPush(userID, kind, payload)
}

func (d *Dispatcher) broadcastRoom(roomID uint, kind EventKind, payload interface{}, exclude *Connection) {
	d.manager.BroadcastRoom(roomID, kind, payload, exclude)
}

// publishPush hands the notification to the push-notification topic. Failures
// are absorbed; push delivery is the external worker's concern.
func (d *Dispatcher) publishPush(userID uint, kind EventKind, payload interface{}) {
	if d.producer == nil {
		return
	}

	data, err := json.Marshal(pushMessage{UserID: userID, Type: kind.String(), Data: payload})
	if err != nil {
		slog.Warn("failed to marshal push message", "userId", userID, "kind", kind, "error", err)
		return
	}

	_, _, err = d.producer.SendMessage(&sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(userID), 10)),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		slog.Warn("failed to publish push message", "userId", userID, "kind", kind, "error", err)
	}
}

/** -------------------- Partner-scoped events -------------------- */

func (d *Dispatcher) PartnerConnected(userID uint, payload interface{}) {
	d.notifyUser(userID, EventPartnerConnected, payload)
}

func (d *Dispatcher) PartnerDisconnected(userID uint, payload interface{}) {
	d.notifyUser(userID, EventPartnerDisconnected, payload)
}

func (d *Dispatcher) ProposalCreated(userID uint, payload interface{}) {
	d.notifyUser(userID, EventProposalCreated, payload)
}

func (d *Dispatcher) ProposalUpdated(userID uint, payload interface{}) {
	d.notifyUser(userID, EventProposalUpdated, payload)
}

func (d *Dispatcher) EventCreated(userID uint, payload interface{}) {
	d.notifyUser(userID, EventEventCreated, payload)
}

func (d *Dispatcher) EventDeleted(userID uint, payload interface{}) {
	d.notifyUser(userID, EventEventDeleted, payload)
}

/** -------------------- Room-scoped events -------------------- */

func (d *Dispatcher) NewMessage(roomID uint, payload interface{}, exclude *Connection) {
	d.broadcastRoom(roomID, EventNewMessage, payload, exclude)
}

func (d *Dispatcher) DeleteMessage(roomID uint, payload interface{}) {
	d.broadcastRoom(roomID, EventDeleteMessage, payload, nil)
}

func (d *Dispatcher) NewChecklistItem(roomID uint, payload interface{}) {
	d.broadcastRoom(roomID, EventNewChecklistItem, payload, nil)
}

func (d *Dispatcher) UpdateChecklistItem(roomID uint, payload interface{}) {
	d.broadcastRoom(roomID, EventUpdateChecklistItem, payload, nil)
}

func (d *Dispatcher) DeleteChecklistItem(roomID uint, payload interface{}) {
	d.broadcastRoom(roomID, EventDeleteChecklistItem, payload, nil)
}

/** -------------------- Push-only events -------------------- */

// Reminder publishes an event reminder on the push hand-off topic without
// touching any socket
func (d *Dispatcher) Reminder(userID uint, payload interface{}) {
	d.publishPush(userID, EventReminder, payload)
}
