package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

var _ repository.ProjectRepository = (*ProjectDB)(nil)

// ProjectDB stores projects. Every query is scoped by user_id.
type ProjectDB struct {
	conn *sql.DB
}

const projectColumns = `id, user_id, name, description, deadline, status,
	technologies, repository_url, created_at, updated_at`

// Create inserts a project. An empty status defaults to active.
func (p *ProjectDB) Create(ctx context.Context, project *model.Project) error {
	now := time.Now().UTC()
	project.ID = xid.New().String()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = model.ProjectActive
	}
	if project.Technologies == nil {
		project.Technologies = []string{}
	}

	technologies, err := encodeList(project.Technologies)
	if err != nil {
		return fmt.Errorf("sqlite: encoding technologies: %w", err)
	}

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.UserID,
		project.Name,
		project.Description,
		nullMillis(project.Deadline),
		string(project.Status),
		technologies,
		project.RepositoryURL,
		toMillis(project.CreatedAt),
		toMillis(project.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}
	return nil
}

// GetByID returns the project only when it belongs to userID.
func (p *ProjectDB) GetByID(ctx context.Context, id, userID string) (*model.Project, error) {
	row := p.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return project, nil
}

// List returns all of a user's projects, newest first.
func (p *ProjectDB) List(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}
	return projects, nil
}

// Update overwrites every mutable field of an owned project.
func (p *ProjectDB) Update(ctx context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now().UTC()

	technologies, err := encodeList(project.Technologies)
	if err != nil {
		return fmt.Errorf("sqlite: encoding technologies: %w", err)
	}

	result, err := p.conn.ExecContext(ctx,
		`UPDATE projects
		 SET name = ?, description = ?, deadline = ?, status = ?,
		     technologies = ?, repository_url = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		project.Name,
		project.Description,
		nullMillis(project.Deadline),
		string(project.Status),
		technologies,
		project.RepositoryURL,
		toMillis(project.UpdatedAt),
		project.ID,
		project.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", project.ID, err)
	}
	return expectOneRow(result, "project", project.ID)
}

// Delete removes an owned project. Sessions naming it are left alone.
func (p *ProjectDB) Delete(ctx context.Context, id, userID string) error {
	result, err := p.conn.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}
	return expectOneRow(result, "project", id)
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		project      model.Project
		deadline     sql.NullInt64
		status       string
		technologies string
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Description,
		&deadline,
		&status,
		&technologies,
		&project.RepositoryURL,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	list, err := decodeList(technologies)
	if err != nil {
		return nil, fmt.Errorf("decoding technologies: %w", err)
	}
	project.Technologies = list
	project.Deadline = fromNullMillis(deadline)
	project.Status = model.ProjectStatus(status)
	project.CreatedAt = fromMillis(createdAt)
	project.UpdatedAt = fromMillis(updatedAt)
	return &project, nil
}
