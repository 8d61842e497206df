package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/prodevhub/internal/service"
)

// AIHandler serves /api/ai and /api/github: everything backed by the
// InsightService.
type AIHandler struct {
	insights *service.InsightService
	logger   *slog.Logger
}

func NewAIHandler(insights *service.InsightService, logger *slog.Logger) *AIHandler {
	return &AIHandler{insights: insights, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// HandleInsights returns the dashboard summary.
//
// HTTP: GET /api/ai/insights
func (h *AIHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	insights, err := h.insights.Insights(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// HandleWeeklyReport generates and stores a report for the last seven days.
//
// HTTP: POST /api/ai/weekly-report
// 400 no_data when there were no sessions; 502 when the provider fails.
func (h *AIHandler) HandleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	report, err := h.insights.GenerateWeeklyReport(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// HandleSuggestions returns the static productivity tips.
//
// HTTP: GET /api/ai/suggestions
func (h *AIHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: h.insights.Suggestions(r.Context(), id)})
}

// HandleChat forwards a free-form question to the coach.
//
// HTTP: POST /api/ai/chat  {"message": "..."} → {"response": "..."}
func (h *AIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var in chatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reply, err := h.insights.Chat(r.Context(), id, in.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// HandleGitHubRepos lists the caller's public GitHub repositories.
//
// HTTP: GET /api/github/repos
func (h *AIHandler) HandleGitHubRepos(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	repos, err := h.insights.GitHubRepos(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandleGitHubCommitActivity returns weekly commit counts for one of the
// caller's repositories. An empty list means GitHub has no statistics yet.
//
// HTTP: GET /api/github/repos/{repo}/commit-activity
func (h *AIHandler) HandleGitHubCommitActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	weeks, err := h.insights.CommitActivity(r.Context(), id, chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}
