package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/prodevhub/internal/github"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/service"
)

type authResponse = service.AuthResult

// Register creates an account and stores the returned tokens.
func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	return c.authenticate(ctx, "/api/auth/register", in)
}

// Login stores the returned tokens on success.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.User, error) {
	var res authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &res, false); err != nil {
		return nil, err
	}
	if err := c.store.Save(Tokens{AccessToken: res.Token, RefreshToken: res.RefreshToken}); err != nil {
		return nil, err
	}
	return res.User, nil
}

// Logout forgets the stored tokens. Tokens are stateless, so the server is
// not involved.
func (c *Client) Logout() error {
	return c.store.Clear()
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd service.ProfileUpdate) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPut, "/api/auth/profile", upd, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// GitHubConnectURL returns the authorization URL to open in a browser.
func (c *Client) GitHubConnectURL(ctx context.Context) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/github/connect", nil, &res, true); err != nil {
		return "", err
	}
	return res.URL, nil
}

// Sessions

func (c *Client) CreateSession(ctx context.Context, in service.SessionInput) (*model.Session, error) {
	var s model.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", in, &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions fetches one page. Zero Page or Limit use the server defaults.
func (c *Client) ListSessions(ctx context.Context, p service.ListSessionsParams) (*service.SessionPage, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Project != "" {
		q.Set("project", p.Project)
	}
	path := "/api/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page service.SessionPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) RecentSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/recent", nil, &sessions, true); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) SessionStats(ctx context.Context) (*service.SessionStats, error) {
	var stats service.SessionStats
	if err := c.do(ctx, http.MethodGet, "/api/sessions/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, upd service.SessionUpdate) (*model.Session, error) {
	var s model.Session
	if err := c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(id), upd, &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil, true)
}

// Projects

func (c *Client) CreateProject(ctx context.Context, in service.ProjectInput) (*model.Project, error) {
	var p model.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", in, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]service.ProjectWithHours, error) {
	var projects []service.ProjectWithHours
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects, true); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, in service.ProjectInput) (*model.Project, error) {
	var p model.Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(id), in, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) ProjectStats(ctx context.Context, id string) (*service.ProjectStats, error) {
	var stats service.ProjectStats
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AI and GitHub

func (c *Client) Insights(ctx context.Context) (*service.Insights, error) {
	var in service.Insights
	if err := c.do(ctx, http.MethodGet, "/api/ai/insights", nil, &in, true); err != nil {
		return nil, err
	}
	return &in, nil
}

func (c *Client) WeeklyReport(ctx context.Context) (*service.WeeklyReportResult, error) {
	var res service.WeeklyReportResult
	if err := c.do(ctx, http.MethodPost, "/api/ai/weekly-report", nil, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Suggestions(ctx context.Context) ([]string, error) {
	var res struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ai/suggestions", nil, &res, true); err != nil {
		return nil, err
	}
	return res.Suggestions, nil
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var res struct {
		Response string `json:"response"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/chat", map[string]string{"message": message}, &res, true)
	if err != nil {
		return "", err
	}
	return res.Response, nil
}

func (c *Client) GitHubRepos(ctx context.Context) ([]github.Repo, error) {
	var repos []github.Repo
	if err := c.do(ctx, http.MethodGet, "/api/github/repos", nil, &repos, true); err != nil {
		return nil, err
	}
	return repos, nil
}

// CommitActivity returns weekly commit counts for one of the signed-in
// user's GitHub repositories.
func (c *Client) CommitActivity(ctx context.Context, repo string) ([]github.WeeklyCommits, error) {
	var weeks []github.WeeklyCommits
	path := "/api/github/repos/" + url.PathEscape(repo) + "/commit-activity"
	if err := c.do(ctx, http.MethodGet, path, nil, &weeks, true); err != nil {
		return nil, err
	}
	return weeks, nil
}
