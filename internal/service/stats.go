package service

import (
	"math"
	"time"

	"github.com/sakif/prodevhub/internal/model"
)

// ScoreTargetHours is the number of hours that earns a productivity score of 100.
const ScoreTargetHours = 25.0

// CurrentStreak counts consecutive calendar days, ending today, on which at
// least one session started. Days are taken in loc, so a session at 23:30
// local time counts for that local day even when it is already tomorrow in
// UTC.
//
// starts must be sorted newest first. Sessions dated in the future are
// ignored. If nothing started today the streak is 0, even when yesterday
// had sessions.
func CurrentStreak(starts []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}

	expected := dayOf(now, loc)
	streak := 0
	for _, start := range starts {
		day := dayOf(start, loc)
		switch {
		case day.After(expected):
			// A later session on a day already counted, or one in the future.
			continue
		case day.Equal(expected):
			streak++
			expected = expected.AddDate(0, 0, -1)
		default:
			// A gap: the run has ended.
			return streak
		}
	}
	return streak
}

// dayOf truncates t to midnight of its calendar day in loc, expressed in UTC
// so that AddDate steps whole days regardless of DST changes in loc.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ProductivityScore maps total hours onto 0..100, reaching 100 at
// ScoreTargetHours.
func ProductivityScore(totalHours float64) int {
	if totalHours <= 0 {
		return 0
	}
	return int(math.Min(100, math.Floor(totalHours/ScoreTargetHours*100)))
}

// sumHours adds the durations of sessions, in hours.
func sumHours(sessions []model.Session) float64 {
	var seconds int64
	for _, s := range sessions {
		seconds += s.Duration
	}
	return float64(seconds) / model.SecondsPerHour
}

// averageHours is the mean session length in hours, 0 for no sessions.
func averageHours(sessions []model.Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	return sumHours(sessions) / float64(len(sessions))
}

// distinctProjects returns project names in first-seen order.
func distinctProjects(sessions []model.Session) []string {
	seen := make(map[string]bool, len(sessions))
	names := make([]string, 0)
	for _, s := range sessions {
		if !seen[s.Project] {
			seen[s.Project] = true
			names = append(names, s.Project)
		}
	}
	return names
}
