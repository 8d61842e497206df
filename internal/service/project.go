package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

// ProjectService handles projects. A project's hours come from sessions
// whose free-text project field equals the project name exactly.
type ProjectService struct {
	projects repository.ProjectRepository
	sessions repository.SessionRepository
	logger   *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, sessions repository.SessionRepository, logger *slog.Logger) *ProjectService {
	return &ProjectService{projects: projects, sessions: sessions, logger: logger}
}

// ProjectInput is used for both create and update. On update, nil fields
// are left unchanged.
type ProjectInput struct {
	Name          *string              `json:"name,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Deadline      *time.Time           `json:"deadline,omitempty"`
	Status        *model.ProjectStatus `json:"status,omitempty"`
	Technologies  []string             `json:"technologies,omitempty"`
	RepositoryURL *string              `json:"repositoryUrl,omitempty"`
}

// ProjectWithHours is a project annotated with its total tracked hours.
type ProjectWithHours struct {
	model.Project
	TotalHours float64 `json:"totalHours"`
}

type ProjectStats struct {
	Project model.Project   `json:"project"`
	Stats   ProjectSessions `json:"stats"`
}

type ProjectSessions struct {
	TotalHours     float64         `json:"totalHours"`
	SessionCount   int             `json:"sessionCount"`
	AverageSession float64         `json:"averageSession"`
	Sessions       []model.Session `json:"sessions"`
}

// Create adds a project for the caller. Status defaults to active.
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*model.Project, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "please add a project name")
	}

	project := &model.Project{UserID: userID, Status: model.ProjectActive}
	if err := applyProjectInput(project, in); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}

	s.logger.Info("project created", slog.String("userID", userID), slog.String("projectID", project.ID))
	return project, nil
}

// List returns the caller's projects, newest first, each with its total
// hours. All totals come from one grouped query regardless of project count.
func (s *ProjectService) List(ctx context.Context, userID string) ([]ProjectWithHours, error) {
	projects, err := s.projects.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects: %w", err)
	}

	totals, err := s.sessions.DurationByProject(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/project: totalling project hours: %w", err)
	}

	out := make([]ProjectWithHours, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectWithHours{
			Project:    p,
			TotalHours: float64(totals[p.Name]) / model.SecondsPerHour,
		})
	}
	return out, nil
}

// Update changes an owned project. Renaming detaches it from sessions logged
// under the old name.
func (s *ProjectService) Update(ctx context.Context, id, userID string, in ProjectInput) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, id, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/project: loading project")
	}

	if err := applyProjectInput(project, in); err != nil {
		return nil, err
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, wrapNotFound(err, "service/project: updating project")
	}
	return project, nil
}

// Delete removes an owned project. Its sessions stay.
func (s *ProjectService) Delete(ctx context.Context, id, userID string) error {
	if err := s.projects.Delete(ctx, id, userID); err != nil {
		return wrapNotFound(err, "service/project: deleting project")
	}
	s.logger.Info("project deleted", slog.String("userID", userID), slog.String("projectID", id))
	return nil
}

// Stats returns an owned project together with every session logged under
// its exact name.
func (s *ProjectService) Stats(ctx context.Context, id, userID string) (*ProjectStats, error) {
	project, err := s.projects.GetByID(ctx, id, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/project: loading project")
	}

	sessions, err := s.sessions.List(ctx, userID, repository.SessionFilter{ProjectEquals: project.Name}, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/project: listing project sessions: %w", err)
	}

	return &ProjectStats{
		Project: *project,
		Stats: ProjectSessions{
			TotalHours:     sumHours(sessions),
			SessionCount:   len(sessions),
			AverageSession: averageHours(sessions),
			Sessions:       sessions,
		},
	}, nil
}

// applyProjectInput validates and copies the non-nil fields of in onto p.
func applyProjectInput(p *model.Project, in ProjectInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperror.ValidationFailed("name", "please add a project name")
		}
		if len([]rune(name)) > MaxProjectNameLength {
			return apperror.ValidationFailed("name", fmt.Sprintf("project name cannot be more than %d characters", MaxProjectNameLength))
		}
		p.Name = name
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if err := validateDescription(description); err != nil {
			return err
		}
		p.Description = description
	}
	if in.Deadline != nil {
		deadline := *in.Deadline
		p.Deadline = &deadline
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return apperror.ValidationFailed("status", "status must be one of active, completed, on-hold")
		}
		p.Status = *in.Status
	}
	if in.Technologies != nil {
		p.Technologies = cleanList(in.Technologies)
	}
	if in.RepositoryURL != nil {
		raw := strings.TrimSpace(*in.RepositoryURL)
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return apperror.ValidationFailed("repositoryUrl", "repository URL must be an http(s) URL")
			}
		}
		p.RepositoryURL = raw
	}
	return nil
}
