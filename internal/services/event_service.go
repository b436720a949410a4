package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"pairplan-service/internal/models"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"

	"gorm.io/gorm"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventForbidden    = errors.New("no access to this event")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotMessageSender  = errors.New("only the sender can delete a message")
	ErrChecklistNotFound = errors.New("checklist item not found")
	ErrNotItemCreator    = errors.New("only the creator can delete a checklist item")
)

type EventService struct {
	events     *postgres.EventRepository
	partners   *PartnerService
	redis      *RedisService
	dispatcher *realtime.Dispatcher
}

func NewEventService(events *postgres.EventRepository, partners *PartnerService, redis *RedisService, dispatcher *realtime.Dispatcher) *EventService {
	return &EventService{
		events:     events,
		partners:   partners,
		redis:      redis,
		dispatcher: dispatcher,
	}
}

func serializeReminders(minutes []int) string {
	if len(minutes) == 0 {
		return ""
	}
	parts := make([]string, len(minutes))
	for i, m := range minutes {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

func parseReminders(s string) []int {
	if s == "" {
		return nil
	}
	var minutes []int
	for _, part := range strings.Split(s, ",") {
		if m, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			minutes = append(minutes, m)
		}
	}
	return minutes
}

func toEventResponse(e *models.Event) models.EventResponse {
	attendees := make([]uint, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendees = append(attendees, a.ID)
	}
	return models.EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Location:    e.Location,
		Visibility:  e.Visibility,
		CreatedBy:   e.CreatedBy,
		Attendees:   attendees,
		Reminders:   parseReminders(e.Reminders),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// maskTitleOnly strips the details a title_only event hides from the partner
func maskTitleOnly(resp models.EventResponse) models.EventResponse {
	resp.Description = ""
	resp.Location = ""
	resp.Reminders = nil
	return resp
}

// invalidateAvailability drops the cached availability of both partners after
// any calendar mutation
func (s *EventService) invalidateAvailability(ctx context.Context, userID uint) {
	keys := []string{fmt.Sprintf("availability:%d", userID)}
	if partnerID, err := s.partners.PartnerID(userID); err == nil {
		keys = append(keys, fmt.Sprintf("availability:%d", partnerID))
	}
	if err := s.redis.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate availability cache", "userId", userID, "error", err)
	}
}

// mapEventLookupError keeps not-found distinct from transient repository
// failures so callers do not report a live event as missing
func mapEventLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEventNotFound
	}
	return fmt.Errorf("failed to load event: %w", err)
}

// CheckAccess loads the event and verifies userID is its creator or an
// attendee. Used by handlers, including the room websocket admission.
func (s *EventService) CheckAccess(userID, eventID uint) (*models.Event, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, mapEventLookupError(err)
	}
	if !event.HasAccess(userID) {
		return nil, ErrEventForbidden
	}
	return event, nil
}

// List returns the user's events in [from, to), plus the partner's shared and
// title_only events. The partner's private events stay invisible; title_only
// ones lose their details.
func (s *EventService) List(userID uint, from, to time.Time) ([]models.EventResponse, error) {
	mine, err := s.events.GetInRange(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]models.EventResponse, 0, len(mine))
	seen := make(map[uint]bool)
	for i := range mine {
		responses = append(responses, toEventResponse(&mine[i]))
		seen[mine[i].ID] = true
	}

	partnerID, err := s.partners.PartnerID(userID)
	if err != nil {
		if errors.Is(err, ErrNoPartner) {
			return responses, nil
		}
		return nil, err
	}

	theirs, err := s.events.GetInRange(partnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list partner events: %w", err)
	}
	for i := range theirs {
		e := &theirs[i]
		if seen[e.ID] || e.Visibility == models.VisibilityPrivate {
			continue
		}
		resp := toEventResponse(e)
		if e.Visibility == models.VisibilityTitleOnly {
			resp = maskTitleOnly(resp)
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func (s *EventService) Get(userID, eventID uint) (*models.EventResponse, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, mapEventLookupError(err)
	}

	if event.HasAccess(userID) {
		resp := toEventResponse(event)
		return &resp, nil
	}

	// The partner may see non-private events in reduced form
	partnerID, perr := s.partners.PartnerID(userID)
	if perr == nil && event.CreatedBy == partnerID && event.Visibility != models.VisibilityPrivate {
		resp := toEventResponse(event)
		if event.Visibility == models.VisibilityTitleOnly {
			resp = maskTitleOnly(resp)
		}
		return &resp, nil
	}

	return nil, ErrEventForbidden
}

func (s *EventService) Create(ctx context.Context, userID uint, req *models.CreateEventRequest) (*models.EventResponse, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Visibility:  req.Visibility,
		CreatedBy:   userID,
		Reminders:   serializeReminders(req.Reminders),
	}
	if event.Visibility == "" {
		event.Visibility = models.VisibilityShared
	}

	if err := s.events.Create(event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	if len(req.Attendees) > 0 {
		if err := s.events.SetAttendees(event.ID, req.Attendees); err != nil {
			return nil, fmt.Errorf("failed to set attendees: %w", err)
		}
	}

	created, err := s.events.GetByID(event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload event: %w", err)
	}
	resp := toEventResponse(created)

	s.invalidateAvailability(ctx, userID)
	if partnerID, perr := s.partners.PartnerID(userID); perr == nil && event.Visibility != models.VisibilityPrivate {
		notified := resp
		if event.Visibility == models.VisibilityTitleOnly {
			notified = maskTitleOnly(notified)
		}
		s.dispatcher.EventCreated(partnerID, notified)
	}

	slog.Info("event created", "eventId", event.ID, "userId", userID)
	return &resp, nil
}

func (s *EventService) Update(ctx context.Context, userID, eventID uint, req *models.UpdateEventRequest) (*models.EventResponse, error) {
	event, err := s.CheckAccess(userID, eventID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if !event.EndTime.After(event.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Visibility != nil {
		event.Visibility = *req.Visibility
	}
	if req.Reminders != nil {
		event.Reminders = serializeReminders(*req.Reminders)
	}

	// Save scalar fields before touching the attendee association
	event.Attendees = nil
	if err := s.events.Update(event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if req.Attendees != nil {
		if err := s.events.SetAttendees(event.ID, *req.Attendees); err != nil {
			return nil, fmt.Errorf("failed to set attendees: %w", err)
		}
	}

	updated, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload event: %w", err)
	}
	resp := toEventResponse(updated)

	s.invalidateAvailability(ctx, userID)
	return &resp, nil
}

func (s *EventService) Delete(ctx context.Context, userID, eventID uint) error {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return mapEventLookupError(err)
	}
	if event.CreatedBy != userID {
		return ErrEventForbidden
	}

	if err := s.events.Delete(eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.invalidateAvailability(ctx, userID)
	if partnerID, perr := s.partners.PartnerID(userID); perr == nil {
		s.dispatcher.EventDeleted(partnerID, map[string]uint{"id": eventID})
	}

	slog.Info("event deleted", "eventId", eventID, "userId", userID)
	return nil
}

/** -------------------- Messages -------------------- */

func (s *EventService) ListMessages(userID, eventID uint, limit int, before *int64) ([]models.EventMessageResponse, error) {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return nil, err
	}
	return s.events.GetMessagesWithPagination(eventID, limit, before)
}

func (s *EventService) SendMessage(userID, eventID uint, req *models.SendEventMessageRequest) (*models.EventMessageResponse, error) {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return nil, err
	}

	msg := &models.EventMessage{
		EventID:  eventID,
		SenderID: userID,
		Text:     req.Text,
	}
	if err := s.events.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	resp := models.EventMessageResponse{
		ID:        msg.ID,
		EventID:   eventID,
		SenderID:  userID,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	s.dispatcher.NewMessage(eventID, resp, nil)
	return &resp, nil
}

func (s *EventService) DeleteMessage(userID, eventID, messageID uint) error {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return err
	}

	msg, err := s.events.GetMessage(messageID)
	if err != nil || msg.EventID != eventID {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageSender
	}

	if err := s.events.DeleteMessage(messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.dispatcher.DeleteMessage(eventID, map[string]uint{"id": messageID, "eventId": eventID})
	return nil
}

/** -------------------- Checklist -------------------- */

func (s *EventService) ListChecklist(userID, eventID uint) ([]models.ChecklistItem, error) {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return nil, err
	}
	return s.events.GetChecklist(eventID)
}

func (s *EventService) CreateChecklistItem(userID, eventID uint, req *models.CreateChecklistItemRequest) (*models.ChecklistItem, error) {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return nil, err
	}

	item := &models.ChecklistItem{
		EventID:    eventID,
		Title:      req.Title,
		CreatedBy:  userID,
		AssignedTo: req.AssignedTo,
	}
	if err := s.events.CreateChecklistItem(item); err != nil {
		return nil, fmt.Errorf("failed to create checklist item: %w", err)
	}

	s.dispatcher.NewChecklistItem(eventID, item)
	return item, nil
}

func (s *EventService) UpdateChecklistItem(userID, eventID, itemID uint, req *models.UpdateChecklistItemRequest) (*models.ChecklistItem, error) {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return nil, err
	}

	item, err := s.events.GetChecklistItem(itemID)
	if err != nil || item.EventID != eventID {
		return nil, ErrChecklistNotFound
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.AssignedTo != nil {
		item.AssignedTo = req.AssignedTo
	}
	if req.Completed != nil && *req.Completed != item.Completed {
		item.Completed = *req.Completed
		if item.Completed {
			now := time.Now()
			item.CompletedBy = &userID
			item.CompletedAt = &now
		} else {
			item.CompletedBy = nil
			item.CompletedAt = nil
		}
	}

	if err := s.events.UpdateChecklistItem(item); err != nil {
		return nil, fmt.Errorf("failed to update checklist item: %w", err)
	}

	s.dispatcher.UpdateChecklistItem(eventID, item)
	return item, nil
}

func (s *EventService) DeleteChecklistItem(userID, eventID, itemID uint) error {
	if _, err := s.CheckAccess(userID, eventID); err != nil {
		return err
	}

	item, err := s.events.GetChecklistItem(itemID)
	if err != nil || item.EventID != eventID {
		return ErrChecklistNotFound
	}
	if item.CreatedBy != userID {
		return ErrNotItemCreator
	}

	if err := s.events.DeleteChecklistItem(itemID); err != nil {
		return fmt.Errorf("failed to delete checklist item: %w", err)
	}

	s.dispatcher.DeleteChecklistItem(eventID, map[string]uint{"id": itemID, "eventId": eventID})
	return nil
}
