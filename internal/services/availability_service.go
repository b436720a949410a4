package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pairplan-service/internal/models"
	"pairplan-service/internal/repositories/postgres"
)

const (
	defaultRangeDays = 7
	availabilityTTL  = 5 * time.Minute
)

// AvailabilityService finds mutual free windows of both partners by merging
// their busy intervals over a date range. Results are cached in Redis with a
// short TTL and invalidated on any calendar mutation.
type AvailabilityService struct {
	events   *postgres.EventRepository
	partners *PartnerService
	redis    *RedisService
}

func NewAvailabilityService(events *postgres.EventRepository, partners *PartnerService, redis *RedisService) *AvailabilityService {
	return &AvailabilityService{
		events:   events,
		partners: partners,
		redis:    redis,
	}
}

type cachedAvailability struct {
	DurationMinutes int                       `json:"durationMinutes"`
	DateRangeDays   int                       `json:"dateRangeDays"`
	ComputedAt      time.Time                 `json:"computedAt"`
	Slots           []models.AvailabilitySlot `json:"slots"`
}

type interval struct {
	start time.Time
	end   time.Time
}

// mergeIntervals collapses overlapping busy intervals, returning them sorted
func mergeIntervals(intervals []interval) []interval {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start.Before(intervals[j].start)
	})

	merged := []interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// FindSlots returns the free windows shared by both partners that are at
// least req.DurationMinutes long
func (s *AvailabilityService) FindSlots(ctx context.Context, userID uint, req *models.AvailabilityRequest) ([]models.AvailabilitySlot, error) {
	partnerID, err := s.partners.PartnerID(userID)
	if err != nil {
		return nil, err
	}

	days := req.DateRangeDays
	if days <= 0 {
		days = defaultRangeDays
	}

	cacheKey := fmt.Sprintf("availability:%d", userID)
	var cached cachedAvailability
	if err := s.redis.Get(ctx, cacheKey, &cached); err == nil &&
		cached.DurationMinutes == req.DurationMinutes && cached.DateRangeDays == days {
		return cached.Slots, nil
	}

	from := time.Now()
	to := from.AddDate(0, 0, days)

	var busy []interval
	for _, id := range []uint{userID, partnerID} {
		events, err := s.events.GetInRange(id, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load events: %w", err)
		}
		for _, e := range events {
			busy = append(busy, interval{start: e.StartTime, end: e.EndTime})
		}
	}

	minLength := time.Duration(req.DurationMinutes) * time.Minute
	slots := make([]models.AvailabilitySlot, 0)
	cursor := from
	for _, iv := range mergeIntervals(busy) {
		if iv.start.After(cursor) && iv.start.Sub(cursor) >= minLength {
			slots = append(slots, models.AvailabilitySlot{
				StartTime:       cursor,
				EndTime:         iv.start,
				DurationMinutes: int(iv.start.Sub(cursor).Minutes()),
			})
		}
		if iv.end.After(cursor) {
			cursor = iv.end
		}
	}
	if to.After(cursor) && to.Sub(cursor) >= minLength {
		slots = append(slots, models.AvailabilitySlot{
			StartTime:       cursor,
			EndTime:         to,
			DurationMinutes: int(to.Sub(cursor).Minutes()),
		})
	}

	entry := cachedAvailability{
		DurationMinutes: req.DurationMinutes,
		DateRangeDays:   days,
		ComputedAt:      time.Now(),
		Slots:           slots,
	}
	if err := s.redis.Set(ctx, cacheKey, entry, availabilityTTL); err != nil {
		slog.Warn("failed to cache availability", "userId", userID, "error", err)
	}

	return slots, nil
}
