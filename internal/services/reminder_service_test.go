package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueReminderMatchesWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Starts in 30m, 30m offset due right now
	minutes, ok := dueReminder(now, now.Add(30*time.Minute), []int{30}, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 30, minutes)

	// Still inside the sweep window 40s later
	minutes, ok = dueReminder(now, now.Add(30*time.Minute+40*time.Second), []int{30}, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 30, minutes)
}

func TestDueReminderOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Too early: the 30m offset is not due for another 15 minutes
	_, ok := dueReminder(now, now.Add(45*time.Minute), []int{30}, time.Minute)
	assert.False(t, ok)

	// Too late: the offset moment passed before this sweep
	_, ok = dueReminder(now, now.Add(28*time.Minute), []int{30}, time.Minute)
	assert.False(t, ok)
}

func TestDueReminderPicksTheDueOffset(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Starts in 1h: the 60m offset is due, the 10m one is not yet
	minutes, ok := dueReminder(now, now.Add(time.Hour), []int{10, 60}, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 60, minutes)
}

func TestDueReminderNoOffsets(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, ok := dueReminder(now, now.Add(time.Hour), nil, time.Minute)
	assert.False(t, ok)
}

func TestReminderServiceStopIdempotent(t *testing.T) {
	s := NewReminderService(nil, nil, nil)
	s.Start()
	s.Stop()
	s.Stop()
}
