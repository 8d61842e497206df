package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/prodevhub/internal/ai"
	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/auth"
	"github.com/sakif/prodevhub/internal/github"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory repositories. Each one follows the same ownership
// rule as the SQL implementation: a record owned by someone else is NotFound.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	tokens map[string]string
	nextID int

	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		tokens: make(map[string]string),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.DuplicateUser()
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	copied.PasswordHash = ""
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range f.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return apperror.DuplicateUser()
		}
	}
	hash := stored.PasswordHash
	*stored = *user
	stored.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) GetGitHubToken(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return "", apperror.NotFound("user", userID)
	}
	return f.tokens[userID], nil
}

func (f *fakeUserRepo) SetGitHubLink(ctx context.Context, userID, username, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.GitHubUsername = &username
	f.tokens[userID] = token
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []model.Session
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = fmt.Sprintf("session-%d", f.nextID)
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	f.sessions = append(f.sessions, *s)
	return nil
}

// add stores a session directly, for test setup.
func (f *fakeSessionRepo) add(userID, project string, start time.Time, seconds int64) {
	_ = f.Create(context.Background(), &model.Session{
		UserID:    userID,
		Project:   project,
		StartTime: start,
		Duration:  seconds,
		Tags:      []string{},
	})
}

func (f *fakeSessionRepo) matching(userID string, filter repository.SessionFilter) []model.Session {
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if filter.ProjectContains != "" && !strings.Contains(strings.ToLower(s.Project), strings.ToLower(filter.ProjectContains)) {
			continue
		}
		if filter.ProjectEquals != "" && s.Project != filter.ProjectEquals {
			continue
		}
		if !filter.Since.IsZero() && s.StartTime.Before(filter.Since) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id, userID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id && s.UserID == userID {
			copied := s
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("session", id)
}

func (f *fakeSessionRepo) List(ctx context.Context, userID string, filter repository.SessionFilter, opts repository.ListOptions) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(userID, filter)
	if opts.Offset >= len(all) {
		return []model.Session{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (f *fakeSessionRepo) Count(ctx context.Context, userID string, filter repository.SessionFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching(userID, filter)), nil
}

func (f *fakeSessionRepo) SumDuration(ctx context.Context, userID string, filter repository.SessionFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, s := range f.matching(userID, filter) {
		total += s.Duration
	}
	return total, nil
}

func (f *fakeSessionRepo) DurationByProject(ctx context.Context, userID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for _, s := range f.matching(userID, repository.SessionFilter{}) {
		out[s.Project] += s.Duration
	}
	return out, nil
}

func (f *fakeSessionRepo) StartTimes(ctx context.Context, userID string) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, s := range f.matching(userID, repository.SessionFilter{}) {
		out = append(out, s.StartTime)
	}
	return out, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == s.ID && f.sessions[i].UserID == s.UserID {
			f.sessions[i] = *s
			return nil
		}
	}
	return apperror.NotFound("session", s.ID)
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id && f.sessions[i].UserID == userID {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("session", id)
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects []model.Project
	nextID   int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{}
}

func (f *fakeProjectRepo) Create(ctx context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = fmt.Sprintf("project-%d", f.nextID)
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.projects = append(f.projects, *p)
	return nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id, userID string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id && p.UserID == userID {
			copied := p
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("project", id)
}

// List returns newest first; the fake relies on insertion order for that.
func (f *fakeProjectRepo) List(ctx context.Context, userID string) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Project{}
	for i := len(f.projects) - 1; i >= 0; i-- {
		if f.projects[i].UserID == userID {
			out = append(out, f.projects[i])
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) Update(ctx context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		if f.projects[i].ID == p.ID && f.projects[i].UserID == p.UserID {
			f.projects[i] = *p
			return nil
		}
	}
	return apperror.NotFound("project", p.ID)
}

func (f *fakeProjectRepo) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		if f.projects[i].ID == id && f.projects[i].UserID == userID {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("project", id)
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports []model.AIReport
	nextID  int
}

func (f *fakeReportRepo) Create(ctx context.Context, r *model.AIReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = fmt.Sprintf("report-%d", f.nextID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = r.CreatedAt
	f.reports = append(f.reports, *r)
	return nil
}

func (f *fakeReportRepo) LatestSince(ctx context.Context, userID string, typ model.ReportType, since time.Time) (*model.AIReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.reports) - 1; i >= 0; i-- {
		r := f.reports[i]
		if r.UserID == userID && r.Type == typ && !r.CreatedAt.Before(since) {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("report", string(typ))
}

// fakeCompleter returns a canned reply and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []ai.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeGitHub serves canned events, repos and commit weeks, and remembers
// the token and repository it was asked for.
type fakeGitHub struct {
	events []github.Event
	repos  []github.Repo
	weeks  []github.WeeklyCommits
	err    error
	token  string
	owner  string
	repo   string
}

func (f *fakeGitHub) Events(ctx context.Context, username string) ([]github.Event, error) {
	return f.events, f.err
}

func (f *fakeGitHub) Repos(ctx context.Context, username string) ([]github.Repo, error) {
	return f.repos, f.err
}

func (f *fakeGitHub) CommitActivity(ctx context.Context, owner, repo string) ([]github.WeeklyCommits, error) {
	f.owner, f.repo = owner, repo
	return f.weeks, f.err
}

// clientFor returns a GitHubClientFor that records the requested token.
func (f *fakeGitHub) clientFor() GitHubClientFor {
	return func(token string) GitHubActivity {
		f.token = token
		return f
	}
}

// fakeOAuth is a GitHubOAuth that accepts one code.
type fakeOAuth struct {
	code string
	link auth.GitHubLink
	err  error
}

func (f *fakeOAuth) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (f *fakeOAuth) Exchange(ctx context.Context, code string) (*auth.GitHubLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	if code != f.code {
		return nil, fmt.Errorf("bad code %q", code)
	}
	link := f.link
	return &link, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func fixedClock(t time.Time) clock {
	return func() time.Time { return t }
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16", 0, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func ptr[T any](v T) *T {
	return &v
}
