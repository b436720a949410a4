package services

import (
	"errors"
	"testing"
	"time"

	"pairplan-service/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestReminderSerialization(t *testing.T) {
	assert.Equal(t, "", serializeReminders(nil))
	assert.Equal(t, "30", serializeReminders([]int{30}))
	assert.Equal(t, "10,30,60", serializeReminders([]int{10, 30, 60}))
}

func TestReminderParsing(t *testing.T) {
	assert.Nil(t, parseReminders(""))
	assert.Equal(t, []int{30}, parseReminders("30"))
	assert.Equal(t, []int{10, 30, 60}, parseReminders("10,30,60"))
	// Malformed entries are skipped rather than failing the whole event
	assert.Equal(t, []int{10, 60}, parseReminders("10,abc,60"))
}

func TestEventLookupErrorMapping(t *testing.T) {
	assert.ErrorIs(t, mapEventLookupError(gorm.ErrRecordNotFound), ErrEventNotFound)

	// A transient repository failure must not masquerade as a missing event
	dbDown := errors.New("connection refused")
	mapped := mapEventLookupError(dbDown)
	assert.NotErrorIs(t, mapped, ErrEventNotFound)
	assert.ErrorIs(t, mapped, dbDown)
}

func TestMaskTitleOnly(t *testing.T) {
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	resp := models.EventResponse{
		ID:          7,
		Title:       "Dinner",
		Description: "Anniversary surprise",
		Location:    "Chez Panisse",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		Visibility:  models.VisibilityTitleOnly,
		Reminders:   []int{30},
	}

	masked := maskTitleOnly(resp)

	assert.Equal(t, "Dinner", masked.Title)
	assert.Equal(t, start, masked.StartTime)
	assert.Empty(t, masked.Description)
	assert.Empty(t, masked.Location)
	assert.Nil(t, masked.Reminders)
}
