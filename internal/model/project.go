package model

import "time"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
)

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// Project belongs to exactly one user.
//
// Sessions are NOT linked by foreign key: a session's free-text Project field
// is matched against Name. Renaming a project therefore detaches its history.
type Project struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	Status        ProjectStatus `json:"status"`
	Technologies  []string      `json:"technologies"`
	RepositoryURL string        `json:"repositoryUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
