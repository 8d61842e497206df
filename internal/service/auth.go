package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/auth"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

// GitHubOAuth is the part of auth.GitHubProvider the connect flow uses.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubLink, error)
}

// AuthService handles registration, login, token refresh, profile updates
// and linking an account to GitHub.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    GitHubOAuth // nil when GitHub OAuth is not configured
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. github may be nil, in which case
// the connect endpoints report that linking is unavailable.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	github GitHubOAuth,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		github:    github,
		logger:    logger,
	}
}

// AuthResult bundles the user with a freshly issued token pair.
type AuthResult struct {
	User         *model.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
}

type RegisterInput struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	GitHubUsername *string `json:"githubUsername,omitempty"`
}

// ProfileUpdate is a partial update: nil fields are left unchanged.
type ProfileUpdate struct {
	Name           *string  `json:"name,omitempty"`
	Email          *string  `json:"email,omitempty"`
	GitHubUsername *string  `json:"githubUsername,omitempty"`
	DailyGoal      *float64 `json:"dailyGoal,omitempty"`
	WeeklyGoal     *float64 `json:"weeklyGoal,omitempty"`
	Timezone       *string  `json:"timezone,omitempty"`
}

// Register creates an account and logs it in.
// The email is stored lower-cased; a second account with the same email in
// any letter case fails with DuplicateUser.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		GitHubUsername: normalizeUsername(in.GitHubUsername),
		DailyGoal:      model.DefaultDailyGoal,
		WeeklyGoal:     model.DefaultWeeklyGoal,
		Timezone:       model.DefaultTimezone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// DuplicateUser already carries the right type; pass it through as is.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login checks credentials and returns a token pair.
//
// Unknown email and wrong password both produce the same InvalidCredentials
// error, and both spend one bcrypt comparison, so neither the response nor
// its timing reveals which emails have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			s.logger.Warn("failed login attempt")
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// Refresh trades a valid refresh token for a new token pair. The user must
// still exist. Any failure is reported as Unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}

	return s.issue(user)
}

// GetMe returns the caller's profile. Secrets are never populated.
func (s *AuthService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd after validating them.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if upd.GitHubUsername != nil {
		user.GitHubUsername = normalizeUsername(upd.GitHubUsername)
	}
	if upd.DailyGoal != nil {
		if *upd.DailyGoal < 0 || *upd.DailyGoal > 24 {
			return nil, apperror.ValidationFailed("dailyGoal", "daily goal must be between 0 and 24 hours")
		}
		user.DailyGoal = *upd.DailyGoal
	}
	if upd.WeeklyGoal != nil {
		if *upd.WeeklyGoal < 0 || *upd.WeeklyGoal > 168 {
			return nil, apperror.ValidationFailed("weeklyGoal", "weekly goal must be between 0 and 168 hours")
		}
		user.WeeklyGoal = *upd.WeeklyGoal
	}
	if upd.Timezone != nil {
		tz := strings.TrimSpace(*upd.Timezone)
		if err := validateTimezone(tz); err != nil {
			return nil, err
		}
		user.Timezone = tz
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: updating user %s: %w", userID, err)
	}

	s.logger.Info("user profile updated", slog.String("userID", userID))
	return user, nil
}

// ValidateToken returns the userID of a valid access token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", apperror.Unauthorized("invalid or expired token")
	}
	return userID, nil
}

// GitHubConnectURL returns the GitHub authorization URL for the caller. The
// state parameter is a short-lived signed token naming the user, so the
// callback needs no server-side session to know whom to link.
func (s *AuthService) GitHubConnectURL(userID string) (string, error) {
	if s.github == nil {
		return "", apperror.Upstream("GitHub OAuth", errors.New("service/auth: GitHub OAuth is not configured"))
	}
	state, err := s.tokens.GenerateState(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: signing state: %w", err)
	}
	return s.github.AuthURL(state), nil
}

// CompleteGitHubConnect finishes the OAuth round trip started by
// GitHubConnectURL and stores the GitHub login and token on the user.
func (s *AuthService) CompleteGitHubConnect(ctx context.Context, state, code string) (*model.User, error) {
	if s.github == nil {
		return nil, apperror.Upstream("GitHub OAuth", errors.New("service/auth: GitHub OAuth is not configured"))
	}

	userID, err := s.tokens.ValidateState(state)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired OAuth state")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	link, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Upstream("GitHub", err)
	}

	if err := s.users.SetGitHubLink(ctx, userID, link.User.Login, link.AccessToken); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: linking GitHub for %s: %w", userID, err)
	}

	s.logger.Info("GitHub account linked",
		slog.String("userID", userID),
		slog.String("login", link.User.Login),
	)

	return s.GetMe(ctx, userID)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating refresh token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token, RefreshToken: refresh}, nil
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "please add a name")
	}
	if len([]rune(name)) > MaxNameLength {
		return apperror.ValidationFailed("name", fmt.Sprintf("name cannot be more than %d characters", MaxNameLength))
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

// normalizeUsername trims the GitHub username and treats blank as "not linked".
func normalizeUsername(username *string) *string {
	if username == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*username)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
