// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, not *sqlite.DB, so tests pass
// in-memory fakes and nothing here imports SQL.
//
// OWNERSHIP:
// Every operation on a user-owned record takes the caller's userID and hands
// it to the repository, which scopes the query. "Not yours" and "doesn't
// exist" therefore come back as the same NotFound error.
package service

import (
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/prodevhub/internal/apperror"
)

// Validation limits.
const (
	MaxNameLength        = 50
	MinPasswordLength    = 6
	MaxProjectNameLength = 100
	MaxDescriptionLength = 500
)

// Paging defaults for session lists.
const (
	DefaultPage      = 1
	DefaultListLimit = 20
	MaxListLimit     = 100
	RecentLimit      = 10
)

// week is the rolling window used by weekly figures. It is a fixed 7×24h
// span back from "now", not the calendar week.
const week = 7 * 24 * time.Hour

// clock lets tests pin "now". Production code uses time.Now.
type clock func() time.Time

// validateEmail accepts a bare address like "dev@example.com".
// Display-name forms ("Dev <dev@example.com>") are rejected.
func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@'):], ".") {
		return apperror.ValidationFailed("email", "please provide a valid email")
	}
	return nil
}

// validateTimezone requires a name the host's tz database knows.
func validateTimezone(tz string) error {
	if tz == "" || tz == "Local" {
		return apperror.ValidationFailed("timezone", "timezone must be a valid IANA name such as Europe/Berlin")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return apperror.ValidationFailed("timezone", "timezone must be a valid IANA name such as Europe/Berlin")
	}
	return nil
}

// cleanList trims every entry and drops empty ones. The result is never nil.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// round1 rounds to one decimal place, half away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
