package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairplan-service/internal/models"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"
)

const (
	reminderPollInterval = 30 * time.Second
	reminderLookahead    = 2 * time.Hour
	reminderWindow       = time.Minute
	reminderDedupeTTL    = 24 * time.Hour
)

// ReminderPayload is the push hand-off body for one event reminder
type ReminderPayload struct {
	EventID   uint      `json:"eventId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	StartTime time.Time `json:"startTime"`
	Minutes   int       `json:"minutes"`
}

// ReminderService periodically scans upcoming events and publishes a push
// reminder per configured minutes-before offset to every attendee, deduped
// through Redis so restarts and overlapping sweeps never double-send.
type ReminderService struct {
	events     *postgres.EventRepository
	redis      *RedisService
	dispatcher *realtime.Dispatcher

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReminderService(events *postgres.EventRepository, redis *RedisService, dispatcher *realtime.Dispatcher) *ReminderService {
	return &ReminderService{
		events:     events,
		redis:      redis,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}
}

// dueReminder returns the first offset whose send moment falls within
// [0, window) of now. Past offsets are skipped, they had their chance on an
// earlier sweep.
func dueReminder(now, start time.Time, offsets []int, window time.Duration) (int, bool) {
	lead := start.Sub(now)
	for _, m := range offsets {
		target := time.Duration(m) * time.Minute
		if lead >= target && lead-target < window {
			return m, true
		}
	}
	return 0, false
}

// Start launches the background sweep loop
func (s *ReminderService) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the loop and waits for an in-flight sweep. Idempotent.
func (s *ReminderService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *ReminderService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(reminderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep(context.Background())
		}
	}
}

func (s *ReminderService) sweep(ctx context.Context) {
	now := time.Now().UTC()

	events, err := s.events.GetUpcomingWithReminders(now, now.Add(reminderLookahead))
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return
	}

	for i := range events {
		event := &events[i]
		minutes, ok := dueReminder(now, event.StartTime, parseReminders(event.Reminders), reminderWindow)
		if !ok {
			continue
		}
		s.send(ctx, event, minutes)
	}
}

func (s *ReminderService) send(ctx context.Context, event *models.Event, minutes int) {
	payload := ReminderPayload{
		EventID:   event.ID,
		Title:     "Event Reminder",
		Body:      fmt.Sprintf("%s starts at %s", event.Title, event.StartTime.UTC().Format("15:04 UTC")),
		StartTime: event.StartTime,
		Minutes:   minutes,
	}

	recipients := map[uint]struct{}{event.CreatedBy: {}}
	for _, a := range event.Attendees {
		recipients[a.ID] = struct{}{}
	}

	for userID := range recipients {
		key := fmt.Sprintf("reminder_sent:%d:%d:%d", event.ID, minutes, userID)
		sent, err := s.redis.SetNX(ctx, key, time.Now().Unix(), reminderDedupeTTL)
		if err != nil {
			// Skip rather than risk a duplicate; the next sweep retries
			slog.Warn("reminder dedupe check failed", "eventId", event.ID, "userId", userID, "error", err)
			continue
		}
		if !sent {
			continue
		}
		s.dispatcher.Reminder(userID, payload)
		slog.Info("reminder published", "eventId", event.ID, "userId", userID, "minutes", minutes)
	}
}
