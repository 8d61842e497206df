// Package repository declares the persistence contracts the services depend on.
//
// Every method that touches a user-owned record takes the owner's userID and
// scopes its query by it. A record owned by someone else is reported exactly
// like a missing record (apperror.ErrNotFound).
package repository

import (
	"context"
	"time"

	"github.com/sakif/prodevhub/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// SessionFilter narrows session queries. Zero values mean "no constraint".
type SessionFilter struct {
	// ProjectContains is a case-insensitive substring match on the project name.
	ProjectContains string
	// ProjectEquals is an exact project-name match.
	ProjectEquals string
	// Since keeps sessions whose start time is at or after this instant.
	Since time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail returns the user including PasswordHash, for login.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// GetGitHubToken returns the stored GitHub access token, "" if none.
	GetGitHubToken(ctx context.Context, userID string) (string, error)
	SetGitHubLink(ctx context.Context, userID, username, token string) error
}

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id, userID string) (*model.Project, error)
	List(ctx context.Context, userID string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id, userID string) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id, userID string) (*model.Session, error)
	// List returns sessions newest StartTime first.
	List(ctx context.Context, userID string, filter SessionFilter, opts ListOptions) ([]model.Session, error)
	Count(ctx context.Context, userID string, filter SessionFilter) (int, error)
	// SumDuration returns the total seconds of matching sessions.
	SumDuration(ctx context.Context, userID string, filter SessionFilter) (int64, error)
	// DurationByProject groups all of a user's sessions by exact project name.
	DurationByProject(ctx context.Context, userID string) (map[string]int64, error)
	// StartTimes returns every start time for the user, newest first.
	StartTimes(ctx context.Context, userID string) ([]time.Time, error)
	Update(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id, userID string) error
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.AIReport) error
	// LatestSince returns the most recently created report of the given type
	// created at or after since, or apperror.ErrNotFound.
	LatestSince(ctx context.Context, userID string, typ model.ReportType, since time.Time) (*model.AIReport, error)
}
