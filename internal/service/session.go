package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

// SessionService handles coding sessions and the statistics derived from them.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	logger   *slog.Logger
	now      clock
}

func NewSessionService(sessions repository.SessionRepository, users repository.UserRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// SessionInput is the body of a create request.
type SessionInput struct {
	Duration    *int64     `json:"duration"`
	Project     string     `json:"project"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
}

// SessionUpdate is a partial update: nil fields are left unchanged.
type SessionUpdate struct {
	Duration    *int64     `json:"duration,omitempty"`
	Project     *string    `json:"project,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

type ListSessionsParams struct {
	Page    int
	Limit   int
	Project string
}

type SessionPage struct {
	Sessions    []model.Session `json:"sessions"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Total       int             `json:"total"`
}

type SessionStats struct {
	TotalSessions int     `json:"totalSessions"`
	TotalHours    float64 `json:"totalHours"`
	CurrentStreak int     `json:"currentStreak"`
	WeeklyHours   float64 `json:"weeklyHours"`
}

// Create records a finished session. StartTime defaults to now; EndTime is
// always stamped with the current time.
func (s *SessionService) Create(ctx context.Context, userID string, in SessionInput) (*model.Session, error) {
	if in.Duration == nil {
		return nil, apperror.ValidationFailed("duration", "duration is required")
	}
	if *in.Duration < 0 {
		return nil, apperror.ValidationFailed("duration", "duration cannot be negative")
	}
	project := strings.TrimSpace(in.Project)
	if project == "" {
		return nil, apperror.ValidationFailed("project", "project is required")
	}
	description := strings.TrimSpace(in.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := s.now()
	start := now
	if in.StartTime != nil {
		start = *in.StartTime
	}

	session := &model.Session{
		UserID:      userID,
		StartTime:   start,
		EndTime:     &now,
		Duration:    *in.Duration,
		Project:     project,
		Description: description,
		Tags:        cleanList(in.Tags),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/session: creating session: %w", err)
	}

	s.logger.Info("session created",
		slog.String("userID", userID),
		slog.String("sessionID", session.ID),
		slog.Int64("duration", session.Duration),
	)
	return session, nil
}

// List returns one page of the caller's sessions, newest first, optionally
// filtered by a case-insensitive substring of the project name.
func (s *SessionService) List(ctx context.Context, userID string, p ListSessionsParams) (*SessionPage, error) {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	// A page whose offset would overflow is treated like a missing one.
	if page > math.MaxInt/limit {
		page = DefaultPage
	}

	filter := repository.SessionFilter{ProjectContains: strings.TrimSpace(p.Project)}

	total, err := s.sessions.Count(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("service/session: counting sessions: %w", err)
	}

	sessions, err := s.sessions.List(ctx, userID, filter, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("service/session: listing sessions: %w", err)
	}

	return &SessionPage{
		Sessions:    sessions,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// Recent returns the caller's latest sessions.
func (s *SessionService) Recent(ctx context.Context, userID string) ([]model.Session, error) {
	sessions, err := s.sessions.List(ctx, userID, repository.SessionFilter{}, repository.ListOptions{Limit: RecentLimit})
	if err != nil {
		return nil, fmt.Errorf("service/session: listing recent sessions: %w", err)
	}
	return sessions, nil
}

// Stats returns totals, the rolling 7-day hours and the current day streak.
// The streak uses the user's own timezone to decide where days begin.
func (s *SessionService) Stats(ctx context.Context, userID string) (*SessionStats, error) {
	now := s.now()

	total, err := s.sessions.Count(ctx, userID, repository.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("service/session: counting sessions: %w", err)
	}
	allSeconds, err := s.sessions.SumDuration(ctx, userID, repository.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("service/session: summing durations: %w", err)
	}
	weekSeconds, err := s.sessions.SumDuration(ctx, userID, repository.SessionFilter{Since: now.Add(-week)})
	if err != nil {
		return nil, fmt.Errorf("service/session: summing weekly durations: %w", err)
	}
	starts, err := s.sessions.StartTimes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: loading start times: %w", err)
	}

	return &SessionStats{
		TotalSessions: total,
		TotalHours:    float64(allSeconds) / model.SecondsPerHour,
		CurrentStreak: CurrentStreak(starts, now, locationFor(ctx, s.users, userID, s.logger)),
		WeeklyHours:   float64(weekSeconds) / model.SecondsPerHour,
	}, nil
}

// Update changes an owned session. Duration, if given, must not be negative
// and project, if given, must not be blank.
func (s *SessionService) Update(ctx context.Context, id, userID string, upd SessionUpdate) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, id, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/session: loading session")
	}

	if upd.Duration != nil {
		if *upd.Duration < 0 {
			return nil, apperror.ValidationFailed("duration", "duration cannot be negative")
		}
		session.Duration = *upd.Duration
	}
	if upd.Project != nil {
		project := strings.TrimSpace(*upd.Project)
		if project == "" {
			return nil, apperror.ValidationFailed("project", "project is required")
		}
		session.Project = project
	}
	if upd.Description != nil {
		description := strings.TrimSpace(*upd.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		session.Description = description
	}
	if upd.Tags != nil {
		session.Tags = cleanList(upd.Tags)
	}
	if upd.StartTime != nil {
		session.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		session.EndTime = upd.EndTime
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, wrapNotFound(err, "service/session: updating session")
	}
	return session, nil
}

// Delete removes an owned session.
func (s *SessionService) Delete(ctx context.Context, id, userID string) error {
	if err := s.sessions.Delete(ctx, id, userID); err != nil {
		return wrapNotFound(err, "service/session: deleting session")
	}
	s.logger.Info("session deleted", slog.String("userID", userID), slog.String("sessionID", id))
	return nil
}

func validateDescription(description string) error {
	if len([]rune(description)) > MaxDescriptionLength {
		return apperror.ValidationFailed("description", fmt.Sprintf("description cannot be more than %d characters", MaxDescriptionLength))
	}
	return nil
}

// wrapNotFound passes NotFound through untouched so the handler can map it
// to 404, and wraps everything else with context.
func wrapNotFound(err error, action string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}
