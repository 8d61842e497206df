// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. They are similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Default goal values applied when a user registers without specifying them.
const (
	DefaultDailyGoal  = 4  // hours
	DefaultWeeklyGoal = 20 // hours
	DefaultTimezone   = "UTC"
)

// User represents a registered account.
//
// SECRETS NEVER LEAVE THE SERVER:
// PasswordHash and GitHubAccessToken carry `json:"-"`, so encoding a User can
// never leak them. The repository also leaves GitHubAccessToken empty on
// ordinary reads; only GetGitHubToken selects it.
//
// WHY GitHubUsername *string?
// The link to GitHub is optional. A nil pointer means "not linked", which is
// different from an empty string typed by mistake. Enrichment code branches on
// nil instead of guessing.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	GitHubUsername    *string   `json:"githubUsername,omitempty"`
	GitHubAccessToken string    `json:"-"`
	DailyGoal         float64   `json:"dailyGoal"`
	WeeklyGoal        float64   `json:"weeklyGoal"`
	Timezone          string    `json:"timezone"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Location returns the user's configured time zone, falling back to UTC
// when the stored name is empty or unknown to the host's tz database.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
