package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherPartnerScopedDelivery(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	d := NewDispatcher(m, producer, "push-notifications")

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var push pushMessage
		if err := json.Unmarshal(value, &push); err != nil {
			return err
		}
		if push.UserID != 1 || push.Type != "partner_connected" {
			return fmt.Errorf("unexpected push message: %+v", push)
		}
		return nil
	})

	d.PartnerConnected(1, map[string]string{"displayName": "Sam"})

	assert.Equal(t, []string{"partner_connected"}, envelopeTypes(t, sock.textMessages()))
}

func TestDispatcherQueuesForOfflineUser(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	d := NewDispatcher(m, producer, "push-notifications")

	// Offline recipient: realtime delivery queues, push hand-off still happens
	producer.ExpectSendMessageAndSucceed()
	d.ProposalCreated(1, map[string]uint{"id": 7})

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))
	assert.Equal(t, []string{"proposal_created"}, envelopeTypes(t, sock.textMessages()))
}

func TestDispatcherRoomScopedDelivery(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	d := NewDispatcher(m, nil, "")

	sender, senderSock := newTestConn(1, 42)
	other, otherSock := newTestConn(2, 42)
	require.NoError(t, m.JoinRoom(42, sender))
	require.NoError(t, m.JoinRoom(42, other))

	d.NewMessage(42, map[string]string{"text": "hi"}, sender)
	d.NewChecklistItem(42, map[string]string{"title": "buy flowers"})

	assert.Equal(t, []string{"new_checklist_item"}, envelopeTypes(t, senderSock.textMessages()),
		"sender is excluded from its own message but receives other room events")
	assert.Equal(t, []string{"new_message", "new_checklist_item"}, envelopeTypes(t, otherSock.textMessages()))
}

func TestDispatcherAbsorbsPushFailure(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	d := NewDispatcher(m, producer, "push-notifications")

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	producer.ExpectSendMessageAndFail(fmt.Errorf("broker unavailable"))

	// Must not panic or surface the broker error
	d.EventCreated(1, map[string]uint{"id": 3})
	assert.Equal(t, []string{"event_created"}, envelopeTypes(t, sock.textMessages()))
}

func TestEventKindValidation(t *testing.T) {
	for _, kind := range []EventKind{
		EventPartnerConnected, EventPartnerDisconnected,
		EventProposalCreated, EventProposalUpdated,
		EventEventCreated, EventEventDeleted,
		EventNewMessage, EventDeleteMessage,
		EventNewChecklistItem, EventUpdateChecklistItem, EventDeleteChecklistItem,
	} {
		assert.True(t, kind.IsValid(), kind.String())
	}

	assert.False(t, EventPing.IsValid(), "control kinds are not dispatchable")
	assert.False(t, EventPong.IsValid())
	assert.False(t, EventReminder.IsValid(), "reminders travel only on the push topic")
	assert.False(t, EventKind("bogus").IsValid())
}

func TestDispatcherReminderIsPushOnly(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Shutdown()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	d := NewDispatcher(m, producer, "push-notifications")

	conn, sock := newTestConn(1, 0)
	require.NoError(t, m.OpenPresence(conn))

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var push pushMessage
		if err := json.Unmarshal(value, &push); err != nil {
			return err
		}
		if push.UserID != 1 || push.Type != "reminder" {
			return fmt.Errorf("unexpected push message: %+v", push)
		}
		return nil
	})

	d.Reminder(1, map[string]interface{}{"eventId": 3, "minutes": 30})

	// The connected presence socket stays silent
	assert.Empty(t, envelopeTypes(t, sock.textMessages()))
}
