package models

import (
	"time"

	"gorm.io/gorm"
)

// Proposal status constants
const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalDeclined = "declined"
)

/** --------------------ENTITIES-------------------- */
// Proposal is a meeting-time suggestion from one partner to the other. The
// recipient accepts exactly one of the proposed slots, which creates an Event.
type Proposal struct {
	gorm.Model
	Title          string `gorm:"not null" json:"title"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	ProposedBy     uint   `gorm:"not null;index" json:"proposedBy"`
	ProposedTo     uint   `gorm:"not null;index" json:"proposedTo"`
	Status         string `gorm:"not null;type:varchar(10);default:'pending';check:status IN ('pending', 'accepted', 'declined')" json:"status"`
	AcceptedSlotID *uint  `json:"acceptedSlotId,omitempty"`

	ProposedTimes []TimeSlot `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE" json:"proposedTimes"`
}

// TimeSlot is one candidate window of a proposal
type TimeSlot struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ProposalID uint      `gorm:"not null;index" json:"-"`
	StartTime  time.Time `gorm:"not null" json:"startTime"`
	EndTime    time.Time `gorm:"not null" json:"endTime"`
}

/** -------------------- DTOs -------------------- */
type TimeSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

type CreateProposalRequest struct {
	Title         string            `json:"title" binding:"required"`
	Description   string            `json:"description,omitempty"`
	Location      string            `json:"location,omitempty"`
	ProposedTo    uint              `json:"proposedTo" binding:"required"`
	ProposedTimes []TimeSlotRequest `json:"proposedTimes" binding:"required,min=1,dive"`
}

type AcceptProposalRequest struct {
	SlotID uint `json:"slotId" binding:"required"`
}

/** -------------------- Availability -------------------- */
// AvailabilitySlot is one mutual free window of both partners
type AvailabilitySlot struct {
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

type AvailabilityRequest struct {
	DurationMinutes int `json:"durationMinutes" binding:"required,min=5"`
	DateRangeDays   int `json:"dateRangeDays,omitempty" binding:"omitempty,min=1,max=60"`
}
