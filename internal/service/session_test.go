package service

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

func newTestSessionService(sessions *fakeSessionRepo, users *fakeUserRepo) *SessionService {
	svc := NewSessionService(sessions, users, discardLogger())
	svc.now = fixedClock(testNow)
	return svc
}

func TestSessionCreate(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestSessionService(repo, newFakeUserRepo())

	start := testNow.Add(-2 * time.Hour)
	s, err := svc.Create(context.Background(), "user-1", SessionInput{
		Duration:    ptr(int64(3600)),
		Project:     " ProDevHub ",
		Description: "wiring handlers",
		Tags:        []string{"go", " ", "api "},
		StartTime:   &start,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "ProDevHub", s.Project)
	assert.Equal(t, []string{"go", "api"}, s.Tags)
	assert.Equal(t, start, s.StartTime)
	require.NotNil(t, s.EndTime)
	assert.Equal(t, testNow, *s.EndTime)
}

func TestSessionCreate_StartTimeDefaultsToNow(t *testing.T) {
	svc := newTestSessionService(newFakeSessionRepo(), newFakeUserRepo())

	s, err := svc.Create(context.Background(), "user-1", SessionInput{Duration: ptr(int64(0)), Project: "p"})
	require.NoError(t, err)
	assert.Equal(t, testNow, s.StartTime)
	assert.Empty(t, s.Tags)
	assert.NotNil(t, s.Tags)
}

func TestSessionCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    SessionInput
		field string
	}{
		{"missing duration", SessionInput{Project: "p"}, "duration"},
		{"negative duration", SessionInput{Duration: ptr(int64(-1)), Project: "p"}, "duration"},
		{"missing project", SessionInput{Duration: ptr(int64(60)), Project: "  "}, "project"},
		{"long description", SessionInput{Duration: ptr(int64(60)), Project: "p", Description: strings.Repeat("d", 501)}, "description"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestSessionService(newFakeSessionRepo(), newFakeUserRepo())
			_, err := svc.Create(context.Background(), "user-1", tc.in)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}
}

func TestSessionList_Pagination(t *testing.T) {
	repo := newFakeSessionRepo()
	for i := 0; i < 25; i++ {
		repo.add("user-1", "Alpha", testNow.Add(-time.Duration(i)*time.Hour), 60)
	}
	repo.add("user-2", "Alpha", testNow, 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	t.Run("defaults", func(t *testing.T) {
		page, err := svc.List(context.Background(), "user-1", ListSessionsParams{})
		require.NoError(t, err)
		assert.Len(t, page.Sessions, 20)
		assert.Equal(t, 25, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Equal(t, testNow, page.Sessions[0].StartTime)
	})

	t.Run("second page", func(t *testing.T) {
		page, err := svc.List(context.Background(), "user-1", ListSessionsParams{Page: 2, Limit: 20})
		require.NoError(t, err)
		assert.Len(t, page.Sessions, 5)
		assert.Equal(t, 2, page.CurrentPage)
	})

	t.Run("past the end", func(t *testing.T) {
		page, err := svc.List(context.Background(), "user-1", ListSessionsParams{Page: 9, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Sessions)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("overflowing page falls back to the first", func(t *testing.T) {
		page, err := svc.List(context.Background(), "user-1", ListSessionsParams{Page: math.MaxInt, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Len(t, page.Sessions, 10)
		assert.Equal(t, testNow, page.Sessions[0].StartTime)
	})

	t.Run("limit is capped", func(t *testing.T) {
		page, err := svc.List(context.Background(), "user-1", ListSessionsParams{Limit: 1000})
		require.NoError(t, err)
		assert.Len(t, page.Sessions, 25)
		assert.Equal(t, 1, page.TotalPages)
	})
}

func TestSessionList_ProjectFilter(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("user-1", "Backend API", testNow, 60)
	repo.add("user-1", "frontend", testNow.Add(-time.Hour), 60)
	repo.add("user-1", "Docs", testNow.Add(-2*time.Hour), 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	page, err := svc.List(context.Background(), "user-1", ListSessionsParams{Project: "END"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestSessionList_Empty(t *testing.T) {
	svc := newTestSessionService(newFakeSessionRepo(), newFakeUserRepo())

	page, err := svc.List(context.Background(), "user-1", ListSessionsParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestSessionRecent(t *testing.T) {
	repo := newFakeSessionRepo()
	for i := 0; i < 12; i++ {
		repo.add("user-1", "Alpha", testNow.Add(-time.Duration(i)*time.Minute), 60)
	}
	svc := newTestSessionService(repo, newFakeUserRepo())

	recent, err := svc.Recent(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, recent, RecentLimit)
	assert.Equal(t, testNow, recent[0].StartTime)
}

func TestSessionStats(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("user-1", "Alpha", testNow.Add(-time.Hour), 3600)
	repo.add("user-1", "Beta", testNow.Add(-25*time.Hour), 1800)
	repo.add("user-1", "Alpha", testNow.Add(-10*24*time.Hour), 900)
	users := newFakeUserRepo()
	require.NoError(t, users.Create(context.Background(), &model.User{Email: "a@b.io", Timezone: "UTC"}))
	svc := newTestSessionService(repo, users)

	stats, err := svc.Stats(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalSessions)
	assert.InDelta(t, 1.75, stats.TotalHours, 1e-9)
	assert.InDelta(t, 1.5, stats.WeeklyHours, 1e-9)
	assert.Equal(t, 2, stats.CurrentStreak)
}

func TestSessionStats_UnknownUserFallsBackToUTC(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("ghost", "Alpha", testNow.Add(-time.Hour), 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	stats, err := svc.Stats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestSessionUpdate(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("user-1", "Alpha", testNow, 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	updated, err := svc.Update(context.Background(), "session-1", "user-1", SessionUpdate{
		Duration: ptr(int64(120)),
		Project:  ptr("Beta"),
		Tags:     []string{"review"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 120, updated.Duration)
	assert.Equal(t, "Beta", updated.Project)
	assert.Equal(t, []string{"review"}, updated.Tags)

	stored, err := repo.GetByID(context.Background(), "session-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Beta", stored.Project)
}

func TestSessionUpdate_Errors(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("user-1", "Alpha", testNow, 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	_, err := svc.Update(context.Background(), "session-1", "user-2", SessionUpdate{Project: ptr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound, "another user's session is not found")

	_, err = svc.Update(context.Background(), "session-1", "user-1", SessionUpdate{Duration: ptr(int64(-5))})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Update(context.Background(), "session-1", "user-1", SessionUpdate{Project: ptr(" ")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSessionDelete(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.add("user-1", "Alpha", testNow, 60)
	svc := newTestSessionService(repo, newFakeUserRepo())

	err := svc.Delete(context.Background(), "session-1", "user-2")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), "session-1", "user-1"))

	err = svc.Delete(context.Background(), "session-1", "user-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
