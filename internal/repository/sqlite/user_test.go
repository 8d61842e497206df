package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/prodevhub/internal/apperror"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ada@example.com")

	// Create modifies the struct in place (pointer receiver)
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("Create() did not set user.UpdatedAt")
	}
}

func TestUserCreate_DuplicateEmailIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "ada@example.com")

	duplicate := *createUserTemplate("ADA@Example.com")
	err := db.Users().Create(context.Background(), &duplicate)

	if err == nil {
		t.Fatal("Create() should have failed for a duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "grace@example.com")

	found, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Email != "grace@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "grace@example.com")
	}
	if found.GitHubUsername != nil {
		t.Errorf("GitHubUsername = %v, want nil for an unlinked account", *found.GitHubUsername)
	}
	if found.GitHubAccessToken != "" {
		t.Error("GetByID() must not load the GitHub access token")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "linus@example.com")

	found, err := db.Users().GetByEmail(context.Background(), "LINUS@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.PasswordHash == "" {
		t.Error("GetByEmail() must return the password hash for login")
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ken@example.com")

	user.Name = "Ken T."
	user.DailyGoal = 6
	user.Timezone = "Asia/Dhaka"
	if err := db.Users().Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "Ken T." || found.DailyGoal != 6 || found.Timezone != "Asia/Dhaka" {
		t.Errorf("Update() not persisted: %+v", found)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)
	ghost := createUserTemplate("ghost@example.com")
	ghost.ID = "missing"

	err := db.Users().Update(context.Background(), ghost)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// GITHUB LINK TESTS
// =========================================================================

func TestUserGitHubLink(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "octo@example.com")
	ctx := context.Background()

	token, err := db.Users().GetGitHubToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetGitHubToken() error = %v", err)
	}
	if token != "" {
		t.Errorf("token = %q before linking, want empty", token)
	}

	if err := db.Users().SetGitHubLink(ctx, user.ID, "octocat", "gho_secret"); err != nil {
		t.Fatalf("SetGitHubLink() error = %v", err)
	}

	token, err = db.Users().GetGitHubToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetGitHubToken() error = %v", err)
	}
	if token != "gho_secret" {
		t.Errorf("token = %q, want %q", token, "gho_secret")
	}

	found, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.GitHubUsername == nil || *found.GitHubUsername != "octocat" {
		t.Errorf("GitHubUsername = %v, want octocat", found.GitHubUsername)
	}
}

func TestUserSetGitHubLink_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().SetGitHubLink(context.Background(), "missing", "octocat", "tok")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetGitHubLink() error = %v, want ErrNotFound", err)
	}
}
