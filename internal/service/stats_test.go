package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/prodevhub/internal/model"
)

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	day := func(daysAgo, hour int) time.Time {
		return time.Date(2024, 3, 15-daysAgo, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		starts []time.Time
		want   int
	}{
		{"no sessions", nil, 0},
		{"only today", []time.Time{day(0, 9)}, 1},
		{"several today count once", []time.Time{day(0, 15), day(0, 11), day(0, 9)}, 1},
		{"three consecutive days", []time.Time{day(0, 9), day(1, 9), day(2, 9)}, 3},
		{"gap ends the run", []time.Time{day(0, 9), day(1, 9), day(3, 9), day(4, 9)}, 2},
		{"nothing today", []time.Time{day(1, 9), day(2, 9)}, 0},
		{"future session ignored", []time.Time{day(-1, 9), day(0, 9), day(1, 9)}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CurrentStreak(tc.starts, now, time.UTC))
		})
	}
}

// A session at 23:30 in New York is already the next day in UTC. The streak
// must follow the user's calendar, not UTC's.
func TestCurrentStreak_UsesUserTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, ny)
	starts := []time.Time{
		time.Date(2024, 3, 15, 8, 0, 0, 0, ny),
		time.Date(2024, 3, 14, 23, 30, 0, 0, ny), // 03:30 UTC on the 15th
	}

	assert.Equal(t, 2, CurrentStreak(starts, now, ny))
	assert.Equal(t, 1, CurrentStreak(starts, now, time.UTC))
}

func TestCurrentStreak_NilLocationIsUTC(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, CurrentStreak([]time.Time{now.Add(-time.Hour)}, now, nil))
}

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{0, 0},
		{-3, 0},
		{5, 20},
		{12.5, 50},
		{25, 100},
		{40, 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ProductivityScore(tc.hours), "hours=%v", tc.hours)
	}
}

func TestSessionAggregates(t *testing.T) {
	sessions := []model.Session{
		{Project: "Alpha", Duration: 3600},
		{Project: "Beta", Duration: 1800},
		{Project: "Alpha", Duration: 900},
	}

	assert.InDelta(t, 1.75, sumHours(sessions), 1e-9)
	assert.InDelta(t, 0.5833, averageHours(sessions), 1e-3)
	assert.Equal(t, []string{"Alpha", "Beta"}, distinctProjects(sessions))

	assert.Zero(t, averageHours(nil))
	assert.Empty(t, distinctProjects(nil))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 1.8, round1(1.75))
	assert.Equal(t, 0.6, round1(0.58333))
	assert.Equal(t, 2.0, round1(2))
}
