package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB stores coding sessions.
type SessionDB struct {
	conn *sql.DB
}

const sessionColumns = `id, user_id, start_time, end_time, duration, project,
	description, tags, created_at, updated_at`

// likeEscaper neutralises LIKE wildcards in user input so that a filter of
// "100%" matches the literal text, not "100 followed by anything".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereSessions builds the WHERE clause shared by List, Count and SumDuration.
//
// The project filter lower-cases both sides with unicode_lower, so "CAFÉ"
// matches "café" even though LIKE alone only folds ASCII.
func whereSessions(userID string, filter repository.SessionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if filter.ProjectContains != "" {
		clauses = append(clauses, unicodeLower+`(project) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.ProjectContains))+"%")
	}
	if filter.ProjectEquals != "" {
		clauses = append(clauses, "project = ?")
		args = append(args, filter.ProjectEquals)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, toMillis(filter.Since))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Create inserts a session. Tags default to an empty list.
func (s *SessionDB) Create(ctx context.Context, session *model.Session) error {
	now := time.Now().UTC()
	session.ID = xid.New().String()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Tags == nil {
		session.Tags = []string{}
	}

	tags, err := encodeList(session.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		toMillis(session.StartTime),
		nullMillis(session.EndTime),
		session.Duration,
		session.Project,
		session.Description,
		tags,
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}
	return nil
}

// GetByID returns the session only when it belongs to userID.
func (s *SessionDB) GetByID(ctx context.Context, id, userID string) (*model.Session, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}
	return session, nil
}

// List returns one page of matching sessions, newest start time first.
// Ties on start time are broken by id so paging is stable.
func (s *SessionDB) List(ctx context.Context, userID string, filter repository.SessionFilter, opts repository.ListOptions) ([]model.Session, error) {
	where, args := whereSessions(userID, filter)

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where +
		` ORDER BY start_time DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, max(opts.Limit, 0))
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sessions: %w", err)
	}
	return sessions, nil
}

// Count returns the number of sessions matching the filter.
func (s *SessionDB) Count(ctx context.Context, userID string, filter repository.SessionFilter) (int, error) {
	where, args := whereSessions(userID, filter)

	var count int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions`+where, args...,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting sessions: %w", err)
	}
	return count, nil
}

// SumDuration adds up the duration of matching sessions.
// COALESCE turns the NULL that SUM yields on an empty set into 0.
func (s *SessionDB) SumDuration(ctx context.Context, userID string, filter repository.SessionFilter) (int64, error) {
	where, args := whereSessions(userID, filter)

	var total int64
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration), 0) FROM sessions`+where, args...,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: summing session durations: %w", err)
	}
	return total, nil
}

// DurationByProject totals every session per exact project name in a single
// grouped query, so listing N projects costs one round trip instead of N.
func (s *SessionDB) DurationByProject(ctx context.Context, userID string) (map[string]int64, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT project, SUM(duration) FROM sessions
		 WHERE user_id = ?
		 GROUP BY project`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping sessions by project: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var (
			project string
			total   int64
		)
		if err := rows.Scan(&project, &total); err != nil {
			return nil, fmt.Errorf("sqlite: scanning project total: %w", err)
		}
		totals[project] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating project totals: %w", err)
	}
	return totals, nil
}

// StartTimes returns every session start for the user, newest first.
// The streak calculation only needs these, not whole rows.
func (s *SessionDB) StartTimes(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT start_time FROM sessions WHERE user_id = ? ORDER BY start_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing session start times: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("sqlite: scanning start time: %w", err)
		}
		starts = append(starts, fromMillis(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating start times: %w", err)
	}
	return starts, nil
}

// Update overwrites every mutable field of an owned session.
func (s *SessionDB) Update(ctx context.Context, session *model.Session) error {
	session.UpdatedAt = time.Now().UTC()

	tags, err := encodeList(session.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE sessions
		 SET start_time = ?, end_time = ?, duration = ?, project = ?,
		     description = ?, tags = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		toMillis(session.StartTime),
		nullMillis(session.EndTime),
		session.Duration,
		session.Project,
		session.Description,
		tags,
		toMillis(session.UpdatedAt),
		session.ID,
		session.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating session %s: %w", session.ID, err)
	}
	return expectOneRow(result, "session", session.ID)
}

// Delete removes an owned session.
func (s *SessionDB) Delete(ctx context.Context, id, userID string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return expectOneRow(result, "session", id)
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		session   model.Session
		startTime int64
		endTime   sql.NullInt64
		tags      string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&startTime,
		&endTime,
		&session.Duration,
		&session.Project,
		&session.Description,
		&tags,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	list, err := decodeList(tags)
	if err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	session.Tags = list
	session.StartTime = fromMillis(startTime)
	session.EndTime = fromNullMillis(endTime)
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	return &session, nil
}
