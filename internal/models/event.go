package models

import (
	"time"

	"gorm.io/gorm"
)

// Event visibility constants
const (
	VisibilityShared    = "shared"
	VisibilityPrivate   = "private"
	VisibilityTitleOnly = "title_only"
)

/** --------------------ENTITIES-------------------- */
// Event represents a calendar event shared between partners. Each event also
// acts as a realtime room for its chat and checklist.
type Event struct {
	gorm.Model
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `gorm:"not null;index" json:"startTime"`
	EndTime     time.Time `gorm:"not null" json:"endTime"`
	Location    string    `json:"location,omitempty"`
	Visibility  string    `gorm:"not null;type:varchar(12);default:'shared';check:visibility IN ('shared', 'private', 'title_only')" json:"visibility"`
	CreatedBy   uint      `gorm:"not null;index" json:"createdBy"`
	// Reminders holds minutes-before-start offsets as a comma separated list
	// (e.g. "10,60"). Kept denormalized, the reminder scheduler parses it.
	Reminders string `json:"reminders,omitempty"`

	Attendees []*User `gorm:"many2many:event_attendees" json:"attendees"`
}

// HasAccess reports whether userID is the creator or an attendee.
func (e *Event) HasAccess(userID uint) bool {
	if e.CreatedBy == userID {
		return true
	}
	for _, a := range e.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// EventMessage is one chat message inside an event room
type EventMessage struct {
	gorm.Model
	EventID  uint   `gorm:"not null;index" json:"eventId"`
	SenderID uint   `gorm:"not null" json:"senderId"`
	Text     string `gorm:"not null" json:"text"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

// ChecklistItem is one entry of an event's shared checklist
type ChecklistItem struct {
	gorm.Model
	EventID     uint       `gorm:"not null;index" json:"eventId"`
	Title       string     `gorm:"not null" json:"title"`
	CreatedBy   uint       `gorm:"not null" json:"createdBy"`
	AssignedTo  *uint      `json:"assignedTo,omitempty"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedBy *uint      `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

/** -------------------- DTOs -------------------- */
// Request
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
	Location    string    `json:"location,omitempty"`
	Visibility  string    `json:"visibility,omitempty" binding:"omitempty,oneof=shared private title_only"`
	Attendees   []uint    `json:"attendees,omitempty"`
	Reminders   []int     `json:"reminders,omitempty"`
}

type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Visibility  *string    `json:"visibility,omitempty" binding:"omitempty,oneof=shared private title_only"`
	Attendees   *[]uint    `json:"attendees,omitempty"`
	Reminders   *[]int     `json:"reminders,omitempty"`
}

type SendEventMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type CreateChecklistItemRequest struct {
	Title      string `json:"title" binding:"required,max=200"`
	AssignedTo *uint  `json:"assignedTo,omitempty"`
}

type UpdateChecklistItemRequest struct {
	Title      *string `json:"title,omitempty" binding:"omitempty,max=200"`
	AssignedTo *uint   `json:"assignedTo,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
}

// Response
type EventResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location,omitempty"`
	Visibility  string    `json:"visibility"`
	CreatedBy   uint      `json:"createdBy"`
	Attendees   []uint    `json:"attendees"`
	Reminders   []int     `json:"reminders,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type EventMessageResponse struct {
	ID         uint      `json:"id"`
	EventID    uint      `json:"eventId"`
	SenderID   uint      `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
