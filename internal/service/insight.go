package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/prodevhub/internal/ai"
	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/github"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

// insightSessionLimit is how many recent sessions the insight summary covers.
const insightSessionLimit = 50

const aiServiceName = "AI provider"

// GitHubActivity is the part of the GitHub client the insight and repo
// views read from.
type GitHubActivity interface {
	Events(ctx context.Context, username string) ([]github.Event, error)
	Repos(ctx context.Context, username string) ([]github.Repo, error)
	CommitActivity(ctx context.Context, owner, repo string) ([]github.WeeklyCommits, error)
}

// GitHubClientFor returns a client that authenticates with token, or the
// server-wide client when token is empty.
type GitHubClientFor func(token string) GitHubActivity

// InsightService turns session history into scores, AI reports and chat
// replies, enriched with GitHub activity when the user has linked an account.
type InsightService struct {
	sessions  repository.SessionRepository
	users     repository.UserRepository
	reports   repository.ReportRepository
	completer ai.Completer
	github    GitHubClientFor
	logger    *slog.Logger
	now       clock
}

func NewInsightService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	reports repository.ReportRepository,
	completer ai.Completer,
	github GitHubClientFor,
	logger *slog.Logger,
) *InsightService {
	return &InsightService{
		sessions:  sessions,
		users:     users,
		reports:   reports,
		completer: completer,
		github:    github,
		logger:    logger,
		now:       time.Now,
	}
}

// Insights is the dashboard summary.
type Insights struct {
	ProductivityScore int     `json:"productivityScore"`
	TotalSessions     int     `json:"totalSessions"`
	TotalHours        float64 `json:"totalHours"`
	AverageSession    float64 `json:"averageSession"`
	// GitHubActivity is the number of recent public GitHub events. It is
	// omitted when the user has no GitHub username.
	GitHubActivity *int                  `json:"githubActivity,omitempty"`
	WeeklyReport   *model.ReportInsights `json:"weeklyReport"`
}

// WeeklyReportResult is what a freshly generated report returns.
type WeeklyReportResult struct {
	ID   string        `json:"id"`
	Kind ai.ReportKind `json:"kind"`
	model.ReportInsights
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// Insights summarises the caller's latest sessions. GitHub activity and the
// most recent weekly report are looked up concurrently.
func (s *InsightService) Insights(ctx context.Context, userID string) (*Insights, error) {
	sessions, err := s.sessions.List(ctx, userID, repository.SessionFilter{}, repository.ListOptions{Limit: insightSessionLimit})
	if err != nil {
		return nil, fmt.Errorf("service/insight: listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		return &Insights{}, nil
	}

	totalHours := sumHours(sessions)
	insights := &Insights{
		ProductivityScore: ProductivityScore(totalHours),
		TotalSessions:     len(sessions),
		TotalHours:        round1(totalHours),
		AverageSession:    round1(averageHours(sessions)),
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/insight: loading user")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		insights.GitHubActivity = s.githubActivityCount(gctx, user.GitHubUsername)
		return nil
	})
	g.Go(func() error {
		report, err := s.reports.LatestSince(gctx, userID, model.ReportWeekly, s.now().Add(-week))
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("service/insight: loading weekly report: %w", err)
		}
		insights.WeeklyReport = &report.Insights
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return insights, nil
}

// githubActivityCount is a function of the optional username alone: nil
// when there is none, otherwise the event count, with any failure counted
// as zero.
func (s *InsightService) githubActivityCount(ctx context.Context, username *string) *int {
	if username == nil || s.github == nil {
		return nil
	}
	count := 0
	events, err := s.github(defaultToken).Events(ctx, *username)
	if err != nil {
		s.logger.Warn("GitHub activity unavailable",
			slog.String("username", *username),
			slog.String("error", err.Error()),
		)
		return &count
	}
	count = len(events)
	return &count
}

// defaultToken selects the server-wide GitHub client.
const defaultToken = ""

// GenerateWeeklyReport asks the completion provider to review the last
// seven days and stores the outcome as a new weekly report.
//
// A reply that is not the requested JSON is kept as a raw report; only a
// failed provider call is an error.
func (s *InsightService) GenerateWeeklyReport(ctx context.Context, userID string) (*WeeklyReportResult, error) {
	now := s.now()
	periodStart := now.Add(-week)

	sessions, err := s.sessions.List(ctx, userID, repository.SessionFilter{Since: periodStart}, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/insight: listing weekly sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, apperror.NoData("no sessions found for the last week")
	}

	totalHours := sumHours(sessions)
	average := averageHours(sessions)

	reply, err := s.completer.Complete(ctx, ai.WeeklyReportRequest(ai.WeekSummary{
		TotalHours:     totalHours,
		SessionCount:   len(sessions),
		Projects:       distinctProjects(sessions),
		AverageSession: average,
	}))
	if err != nil {
		s.logger.Error("weekly report generation failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream(aiServiceName, err)
	}

	parsed := ai.ParseWeeklyReport(reply)
	if parsed.Kind == ai.ReportRaw {
		s.logger.Warn("weekly report reply was not JSON, storing raw text", slog.String("userID", userID))
	}

	starts, err := s.sessions.StartTimes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/insight: loading start times: %w", err)
	}

	insights := model.ReportInsights{
		ProductivityScore: ProductivityScore(totalHours),
		Streak:            CurrentStreak(starts, now, locationFor(ctx, s.users, userID, s.logger)),
		TotalHours:        round1(totalHours),
		AverageSession:    round1(average),
		Summary:           parsed.Report.Summary,
		Achievements:      parsed.Report.Achievements,
		Recommendations:   parsed.Report.Recommendations,
		FocusAreas:        parsed.Report.FocusAreas,
	}

	report := &model.AIReport{
		UserID:      userID,
		Type:        model.ReportWeekly,
		ReportText:  reply,
		Insights:    insights,
		PeriodStart: periodStart,
		PeriodEnd:   now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("service/insight: saving report: %w", err)
	}

	s.logger.Info("weekly report generated",
		slog.String("userID", userID),
		slog.String("reportID", report.ID),
		slog.String("kind", string(parsed.Kind)),
	)

	return &WeeklyReportResult{
		ID:             report.ID,
		Kind:           parsed.Kind,
		ReportInsights: insights,
		PeriodStart:    periodStart,
		PeriodEnd:      now,
	}, nil
}

// Suggestions returns the fixed productivity tips.
func (s *InsightService) Suggestions(ctx context.Context, userID string) []string {
	return ai.Suggestions()
}

// Chat forwards a question to the coach persona and returns the reply as is.
func (s *InsightService) Chat(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperror.ValidationFailed("message", "message is required")
	}

	reply, err := s.completer.Complete(ctx, ai.ChatRequest(message))
	if err != nil {
		s.logger.Error("chat completion failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", apperror.Upstream(aiServiceName, err)
	}
	return reply, nil
}

// GitHubRepos lists the public repositories of the caller's GitHub account,
// using their linked OAuth token when there is one. No username, or any
// upstream failure, gives an empty list.
func (s *InsightService) GitHubRepos(ctx context.Context, userID string) ([]github.Repo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/insight: loading user")
	}
	if user.GitHubUsername == nil || s.github == nil {
		return []github.Repo{}, nil
	}

	token, err := s.users.GetGitHubToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/insight: reading GitHub token: %w", err)
	}

	repos, err := s.github(token).Repos(ctx, *user.GitHubUsername)
	if err != nil {
		s.logger.Warn("GitHub repos unavailable",
			slog.String("username", *user.GitHubUsername),
			slog.String("error", err.Error()),
		)
		return []github.Repo{}, nil
	}
	if repos == nil {
		repos = []github.Repo{}
	}
	return repos, nil
}

// locationFor returns the user's timezone, or UTC if the profile cannot be read.
func locationFor(ctx context.Context, users repository.UserRepository, userID string, logger *slog.Logger) *time.Location {
	if users == nil {
		return time.UTC
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("could not load user timezone, using UTC",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return time.UTC
	}
	return user.Location()
}

// CommitActivity returns the weekly commit counts of one of the caller's own
// repositories (owner is their linked GitHub username). Like GitHubRepos it
// degrades to an empty list when there is no username, GitHub is still
// computing the statistics, or the call fails.
func (s *InsightService) CommitActivity(ctx context.Context, userID, repo string) ([]github.WeeklyCommits, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return nil, apperror.ValidationFailed("repo", "repo is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapNotFound(err, "service/insight: loading user")
	}
	if user.GitHubUsername == nil || s.github == nil {
		return []github.WeeklyCommits{}, nil
	}

	token, err := s.users.GetGitHubToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/insight: reading GitHub token: %w", err)
	}

	weeks, err := s.github(token).CommitActivity(ctx, *user.GitHubUsername, repo)
	if err != nil {
		s.logger.Warn("GitHub commit activity unavailable",
			slog.String("username", *user.GitHubUsername),
			slog.String("repo", repo),
			slog.String("error", err.Error()),
		)
		return []github.WeeklyCommits{}, nil
	}
	if weeks == nil {
		weeks = []github.WeeklyCommits{}
	}
	return weeks, nil
}
