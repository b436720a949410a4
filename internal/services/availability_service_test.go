package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
}

func TestMergeIntervalsEmpty(t *testing.T) {
	assert.Nil(t, mergeIntervals(nil))
}

func TestMergeIntervalsDisjoint(t *testing.T) {
	merged := mergeIntervals([]interval{
		{start: at(14), end: at(15)},
		{start: at(9), end: at(10)},
	})

	assert.Len(t, merged, 2)
	assert.Equal(t, at(9), merged[0].start)
	assert.Equal(t, at(10), merged[0].end)
	assert.Equal(t, at(14), merged[1].start)
}

func TestMergeIntervalsOverlapping(t *testing.T) {
	merged := mergeIntervals([]interval{
		{start: at(9), end: at(11)},
		{start: at(10), end: at(13)},
		{start: at(12), end: at(14)},
	})

	assert.Len(t, merged, 1)
	assert.Equal(t, at(9), merged[0].start)
	assert.Equal(t, at(14), merged[0].end)
}

func TestMergeIntervalsTouching(t *testing.T) {
	// Back to back busy blocks leave no gap between them
	merged := mergeIntervals([]interval{
		{start: at(9), end: at(10)},
		{start: at(10), end: at(11)},
	})

	assert.Len(t, merged, 1)
	assert.Equal(t, at(9), merged[0].start)
	assert.Equal(t, at(11), merged[0].end)
}

func TestMergeIntervalsContained(t *testing.T) {
	merged := mergeIntervals([]interval{
		{start: at(9), end: at(17)},
		{start: at(11), end: at(12)},
	})

	assert.Len(t, merged, 1)
	assert.Equal(t, at(9), merged[0].start)
	assert.Equal(t, at(17), merged[0].end)
}
