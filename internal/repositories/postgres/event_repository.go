package postgres

import (
	"time"

	"pairplan-service/internal/models"

	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db}
}

func (r *EventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *EventRepository) Update(event *models.Event) error {
	return r.db.Save(event).Error
}

func (r *EventRepository) Delete(eventID uint) error {
	// Clear the many-to-many association first so attendee rows do not leak
	err := r.db.Model(&models.Event{Model: gorm.Model{ID: eventID}}).Association("Attendees").Clear()
	if err != nil {
		return err
	}
	return r.db.Delete(&models.Event{}, eventID).Error
}

func (r *EventRepository) GetByID(eventID uint) (*models.Event, error) {
	var e models.Event
	err := r.db.Preload("Attendees", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, display_name, email, color_preference")
	}).First(&e, eventID).Error
	return &e, err
}

// GetUpcomingWithReminders returns events starting in [from, to] that have
// reminder offsets configured, with attendees loaded for fan-out
func (r *EventRepository) GetUpcomingWithReminders(from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Preload("Attendees", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, display_name, email, color_preference")
		}).
		Where("start_time >= ? AND start_time <= ?", from, to).
		Where("reminders <> ''").
		Order("start_time ASC").
		Find(&events).Error
	return events, err
}

// GetInRange returns events overlapping [from, to) where the user is creator or attendee
func (r *EventRepository) GetInRange(userID uint, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Preload("Attendees", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, display_name, email, color_preference")
		}).
		Joins("LEFT JOIN event_attendees ON events.id = event_attendees.event_id").
		Where("(events.created_by = ? OR event_attendees.user_id = ?)", userID, userID).
		Where("events.start_time < ? AND events.end_time > ?", to, from).
		Group("events.id").
		Order("events.start_time ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) SetAttendees(eventID uint, userIDs []uint) error {
	users := make([]*models.User, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, &models.User{Model: gorm.Model{ID: id}})
	}
	return r.db.Model(&models.Event{Model: gorm.Model{ID: eventID}}).Association("Attendees").Replace(users)
}

/** -------------------- Messages -------------------- */

func (r *EventRepository) CreateMessage(msg *models.EventMessage) error {
	return r.db.Create(msg).Error
}

func (r *EventRepository) GetMessage(messageID uint) (*models.EventMessage, error) {
	var m models.EventMessage
	err := r.db.First(&m, messageID).Error
	return &m, err
}

func (r *EventRepository) DeleteMessage(messageID uint) error {
	result := r.db.Delete(&models.EventMessage{}, messageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetMessagesWithPagination supports time-based infinite scroll, newest page first
func (r *EventRepository) GetMessagesWithPagination(eventID uint, limit int, before *int64) ([]models.EventMessageResponse, error) {
	var responses []models.EventMessageResponse
	db := r.db.Table("event_messages").
		Select("event_messages.id, event_messages.event_id, event_messages.sender_id, users.display_name as sender_name, event_messages.text, event_messages.created_at").
		Joins("JOIN users ON users.id = event_messages.sender_id").
		Where("event_messages.event_id = ? AND event_messages.deleted_at IS NULL", eventID)

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if before != nil {
		db = db.Where("event_messages.created_at < to_timestamp(?)", *before).
			Order("event_messages.created_at ASC").
			Limit(limit)
	} else {
		db = db.Order("event_messages.created_at DESC").Limit(limit)
	}

	err := db.Scan(&responses).Error
	if err != nil {
		return nil, err
	}

	if before == nil {
		for i, j := 0, len(responses)-1; i < j; i, j = i+1, j-1 {
			responses[i], responses[j] = responses[j], responses[i]
		}
	}

	return responses, nil
}

/** -------------------- Checklist -------------------- */

func (r *EventRepository) CreateChecklistItem(item *models.ChecklistItem) error {
	return r.db.Create(item).Error
}

func (r *EventRepository) GetChecklistItem(itemID uint) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	err := r.db.First(&item, itemID).Error
	return &item, err
}

func (r *EventRepository) GetChecklist(eventID uint) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := r.db.
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *EventRepository) UpdateChecklistItem(item *models.ChecklistItem) error {
	return r.db.Save(item).Error
}

func (r *EventRepository) DeleteChecklistItem(itemID uint) error {
	result := r.db.Delete(&models.ChecklistItem{}, itemID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
