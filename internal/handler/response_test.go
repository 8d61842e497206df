package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/auth"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), 400, "validation_error"},
		{"no data", apperror.NoData("no sessions found for the last week"), 400, "no_data"},
		{"credentials", apperror.InvalidCredentials(), 401, "invalid_credentials"},
		{"unauthorized", apperror.Unauthorized("token expired"), 401, "unauthorized"},
		{"not found", apperror.NotFound("session", "abc"), 404, "not_found"},
		{"conflict", apperror.DuplicateUser(), 409, "conflict"},
		{"upstream", apperror.Upstream("AI provider", errors.New("dial tcp: refused")), 502, "upstream_unavailable"},
		{"wrapped", fmt.Errorf("service/project: %w", apperror.NotFound("project", "p1")), 404, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, discard, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantType, decodeError(t, rr).Error)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	rr := httptest.NewRecorder()
	writeError(rr, logger, errors.New("sqlite: no such table: sessions"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "sqlite")
	assert.Contains(t, logs.String(), "no such table")
}

func TestWriteError_UpstreamHidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, discard, apperror.Upstream("GitHub", errors.New("token ghp_secret rejected")))

	body := decodeError(t, rr)
	assert.Equal(t, "GitHub is currently unavailable", body.Message)
	assert.NotContains(t, body.Message, "ghp_secret")
}

func TestWriteError_IncludesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, discard, apperror.ValidationFailed("dailyGoal", "dailyGoal must be between 0 and 24"))

	body := decodeError(t, rr)
	assert.Equal(t, "dailyGoal", body.Field)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		var dst loginRequest
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, "a@b.co", dst.Email)
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		var dst loginRequest
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestUserID(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := userID(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	id, ok := userID(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestHomeHandler(t *testing.T) {
	h, err := NewHomeHandler("http://localhost:3000", discard)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.HandleHome(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ProDevHub")
	assert.Contains(t, rr.Body.String(), "http://localhost:3000")

	rr = httptest.NewRecorder()
	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
