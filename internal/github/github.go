// Package github is a small read-only adapter over the GitHub REST API.
//
// go-github does the HTTP work; this package narrows its pointer-heavy types
// down to the few fields the insights features show, and turns every failure
// into an Upstream app error. Requests are anonymous unless a token is
// supplied, in which case x/oauth2 adds the bearer header (and GitHub grants
// the higher authenticated rate limit).
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/sakif/prodevhub/internal/apperror"
)

const (
	defaultBaseURL = "https://api.github.com/"
	serviceName    = "GitHub"
	reposPerPage   = 100
)

// Event is one entry of a user's public activity feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Repo      EventRepo `json:"repo"`
	CreatedAt time.Time `json:"created_at"`
}

type EventRepo struct {
	Name string `json:"name"`
}

// Repo is the subset of repository metadata shown to users.
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Fork        bool      `json:"fork"`
	PushedAt    time.Time `json:"pushed_at"`
}

// WeeklyCommits is one week of a repository's commit activity.
type WeeklyCommits struct {
	Week  time.Time `json:"week"` // start of the week
	Total int       `json:"total"`
	Days  []int     `json:"days"` // Sunday first
}

// Client calls the GitHub REST API.
type Client struct {
	api     *gh.Client
	baseURL *url.URL
	timeout time.Duration
}

// NewClient returns a client that authenticates with token when it is not
// empty. The token may be the server-wide GITHUB_TOKEN or a user's linked
// OAuth token.
func NewClient(token string) *Client {
	base, _ := url.Parse(defaultBaseURL)
	return newClient(base, token, 10*time.Second)
}

// NewClientWithBaseURL is NewClient against another host, such as a GitHub
// Enterprise install or a test server.
func NewClientWithBaseURL(baseURL, token string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("github: parsing base URL: %w", err)
	}
	return newClient(base, token, 10*time.Second), nil
}

func newClient(base *url.URL, token string, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		// oauth2.NewClient wraps the transport so every request carries
		// "Authorization: Bearer <token>".
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		httpClient.Timeout = timeout
	}

	api := gh.NewClient(httpClient)
	api.BaseURL = base
	return &Client{api: api, baseURL: base, timeout: timeout}
}

// WithToken returns a client for the same host using token instead.
func (c *Client) WithToken(token string) *Client {
	return newClient(c.baseURL, token, c.timeout)
}

// Events returns the user's most recent public events.
func (c *Client) Events(ctx context.Context, username string) ([]Event, error) {
	raw, _, err := c.api.Activity.ListEventsPerformedByUser(ctx, username, false, nil)
	if err != nil {
		return nil, upstream("listing events", err)
	}

	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, Event{
			ID:        e.GetID(),
			Type:      e.GetType(),
			Repo:      EventRepo{Name: e.GetRepo().GetName()},
			CreatedAt: e.GetCreatedAt().Time,
		})
	}
	return events, nil
}

// Repos returns the user's public repositories.
func (c *Client) Repos(ctx context.Context, username string) ([]Repo, error) {
	opts := &gh.RepositoryListByUserOptions{
		ListOptions: gh.ListOptions{PerPage: reposPerPage},
	}
	raw, _, err := c.api.Repositories.ListByUser(ctx, username, opts)
	if err != nil {
		return nil, upstream("listing repositories", err)
	}

	repos := make([]Repo, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repo{
			Name:        r.GetName(),
			FullName:    r.GetFullName(),
			Description: r.GetDescription(),
			HTMLURL:     r.GetHTMLURL(),
			Language:    r.GetLanguage(),
			Stars:       r.GetStargazersCount(),
			Fork:        r.GetFork(),
			PushedAt:    r.GetPushedAt().Time,
		})
	}
	return repos, nil
}

// CommitActivity returns the last year of weekly commit counts for a repo.
// GitHub answers 202 while it is still computing the statistics; that is
// reported as an empty result rather than an error.
func (c *Client) CommitActivity(ctx context.Context, owner, repo string) ([]WeeklyCommits, error) {
	raw, _, err := c.api.Repositories.ListCommitActivity(ctx, owner, repo)
	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return []WeeklyCommits{}, nil
	}
	if err != nil {
		return nil, upstream("reading commit activity", err)
	}

	weeks := make([]WeeklyCommits, 0, len(raw))
	for _, w := range raw {
		weeks = append(weeks, WeeklyCommits{
			Week:  w.GetWeek().Time.UTC(),
			Total: w.GetTotal(),
			Days:  w.Days,
		})
	}
	return weeks, nil
}

// upstream wraps any go-github failure (transport, non-2xx, rate limit or a
// body that does not decode) so clients only ever see "GitHub is unavailable".
func upstream(action string, err error) error {
	return apperror.Upstream(serviceName, fmt.Errorf("github: %s: %w", action, err))
}
