package model

import "time"

// SecondsPerHour converts stored durations into the hour figures shown to users.
const SecondsPerHour = 3600.0

// Session is one tracked coding interval.
// Duration is always whole seconds; every hour figure is derived as Duration/3600.
type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    int64      `json:"duration"`
	Project     string     `json:"project"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Hours returns the session length in hours.
func (s Session) Hours() float64 {
	return float64(s.Duration) / SecondsPerHour
}
