package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/prodevhub/internal/service"
)

// AuthHandler serves registration, login, token refresh, the profile
// endpoints and the GitHub account-linking round trip.
//
// Tokens travel in the response body and come back as
// "Authorization: Bearer <token>"; nothing is kept in cookies.
type AuthHandler struct {
	auth         *service.AuthService
	clientOrigin string
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. clientOrigin is where the browser
// is sent back to after the GitHub callback.
func NewAuthHandler(auth *service.AuthService, clientOrigin string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, clientOrigin: clientOrigin, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type connectResponse struct {
	URL string `json:"url"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// 201 with {user, token, refreshToken}; 409 if the email is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin checks credentials.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRefresh exchanges a refresh token for a new token pair.
//
// HTTP: POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetMe(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile applies a partial profile update.
//
// HTTP: PUT /api/auth/profile
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var upd service.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubConnect returns the GitHub authorization URL. The client opens
// it in the browser; a JSON answer works for SPAs that cannot follow a
// redirect carrying an Authorization header.
//
// HTTP: GET /api/auth/github/connect
func (h *AuthHandler) HandleGitHubConnect(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	authURL, err := h.auth.GitHubConnectURL(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{URL: authURL})
}

// HandleGitHubCallback completes the link and sends the browser back to the
// client app with a github=connected|denied|failed query parameter.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// The route is public: the signed state token identifies the user, because
// the browser arriving from GitHub carries no Authorization header.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// The user clicked "Cancel" on GitHub's consent screen.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("GitHub authorization denied", slog.String("error", errParam))
		h.redirectToClient(w, r, "denied")
		return
	}

	if _, err := h.auth.CompleteGitHubConnect(r.Context(), q.Get("state"), q.Get("code")); err != nil {
		h.logger.Warn("GitHub callback failed", slog.String("error", err.Error()))
		h.redirectToClient(w, r, "failed")
		return
	}

	h.redirectToClient(w, r, "connected")
}

func (h *AuthHandler) redirectToClient(w http.ResponseWriter, r *http.Request, outcome string) {
	target := h.clientOrigin + "/?" + url.Values{"github": {outcome}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
