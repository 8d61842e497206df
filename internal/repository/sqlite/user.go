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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores user accounts.
type UserDB struct {
	conn *sql.DB
}

// userColumns is the default projection. github_access_token is left out on
// purpose: it is only read through GetGitHubToken.
const userColumns = `id, name, email, password_hash, github_username,
	daily_goal, weekly_goal, timezone, created_at, updated_at`

// Create inserts a new user and fills in ID and timestamps.
// A second account with the same email (any letter case) fails with
// apperror.DuplicateUser thanks to the unique index on users.email.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, github_username,
			github_access_token, daily_goal, weekly_goal, timezone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		nullString(user.GitHubUsername),
		user.GitHubAccessToken,
		user.DailyGoal,
		user.WeeklyGoal,
		user.Timezone,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateUser()
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail looks a user up by email, ignoring letter case.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// Update writes the mutable profile fields. The password hash and the
// GitHub access token are not touched here.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, email = ?, github_username = ?, daily_goal = ?,
		     weekly_goal = ?, timezone = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		nullString(user.GitHubUsername),
		user.DailyGoal,
		user.WeeklyGoal,
		user.Timezone,
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateUser()
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	return expectOneRow(result, "user", user.ID)
}

// GetGitHubToken is the only read path for the stored GitHub access token.
func (u *UserDB) GetGitHubToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := u.conn.QueryRowContext(ctx,
		`SELECT github_access_token FROM users WHERE id = ?`, userID,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("user", userID)
		}
		return "", fmt.Errorf("sqlite: reading github token for %s: %w", userID, err)
	}
	return token, nil
}

// SetGitHubLink records the GitHub login and OAuth token after a successful
// account connection.
func (u *UserDB) SetGitHubLink(ctx context.Context, userID, username, token string) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET github_username = ?, github_access_token = ?, updated_at = ?
		 WHERE id = ?`,
		username, token, toMillis(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking github for %s: %w", userID, err)
	}
	return expectOneRow(result, "user", userID)
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user      model.User
		github    sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&github,
		&user.DailyGoal,
		&user.WeeklyGoal,
		&user.Timezone,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	user.GitHubUsername = fromNullString(github)
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}

// expectOneRow turns "UPDATE/DELETE matched nothing" into NotFound.
// Because every write is scoped by owner, this also covers "not yours".
func expectOneRow(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
