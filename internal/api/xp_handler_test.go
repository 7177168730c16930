package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/xp-api/internal/domain"
	"github.com/studyforge/xp-api/internal/service/leveling"
)

// stubLevelingService implements leveling.Service with canned responses.
type stubLevelingService struct {
	awardResult *leveling.AwardResult
	awardErr    error
	lastAward   leveling.AwardRequest
	state       *domain.UserXPState
	stateErr    error
	summary     map[string]int
	summaryErr  error
	lastUserID  string
	lastSumDate string
}

func (s *stubLevelingService) Award(_ context.Context, req leveling.AwardRequest) (*leveling.AwardResult, error) {
	s.lastAward = req
	if s.awardErr != nil {
		return nil, s.awardErr
	}
	return s.awardResult, nil
}

func (s *stubLevelingService) GetState(_ context.Context, userID string) (*domain.UserXPState, error) {
	s.lastUserID = userID
	if s.stateErr != nil {
		return nil, s.stateErr
	}
	return s.state, nil
}

func (s *stubLevelingService) DailySummary(_ context.Context, userID, date string) (map[string]int, error) {
	s.lastUserID = userID
	s.lastSumDate = date
	if s.summaryErr != nil {
		return nil, s.summaryErr
	}
	return s.summary, nil
}

func newTestHandler(svc leveling.Service) *XPHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewXPHandler(svc, nil, logger)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestGetState(t *testing.T) {
	t.Parallel()

	t.Run("returns state with derived next-level distance", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{
			state: &domain.UserXPState{
				UserID:    "user-1",
				CurrentXP: 1250,
				Level:     2,
				Bones:     10,
				UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			},
		}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp?user_id=user-1", nil)
		rr := httptest.NewRecorder()
		handler.GetState(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "user-1", body["user_id"])
		assert.Equal(t, float64(1250), body["current_xp"])
		assert.Equal(t, float64(2), body["level"])
		assert.Equal(t, float64(10), body["bones"])
		assert.Equal(t, float64(750), body["xp_to_next_level"])
		assert.Equal(t, "user-1", svc.lastUserID)
	})

	t.Run("accepts legacy userId query parameter", func(t *testing.T) {
		t.Parallel()
		state, err := domain.NewUserXPState("user-2")
		require.NoError(t, err)
		svc := &stubLevelingService{state: state}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp?userId=user-2", nil)
		rr := httptest.NewRecorder()
		handler.GetState(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-2", svc.lastUserID)
	})

	t.Run("rejects missing user ID", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(&stubLevelingService{})

		req := httptest.NewRequest(http.MethodGet, "/xp", nil)
		rr := httptest.NewRecorder()
		handler.GetState(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("maps storage failure to 500 with sanitized message", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{stateErr: fmt.Errorf("pg: connection refused")}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp?user_id=user-1", nil)
		rr := httptest.NewRecorder()
		handler.GetState(rr, req)

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Failed to load XP state", body["error"])
		assert.NotContains(t, rr.Body.String(), "connection refused")
	})
}

func TestAward(t *testing.T) {
	t.Parallel()

	grantedResult := &leveling.AwardResult{
		XPAwarded: 250,
		CurrentXP: 250,
		Level:     1,
		Bones:     0,
		LeveledUp: false,
	}

	postAward := func(handler *XPHandler, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/xp/award", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.Award(rr, req)
		return rr
	}

	t.Run("grants award and reports new state", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardResult: grantedResult}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"user_id":"user-1","activity_type":"chat","xp_amount":250}`)

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(250), body["xpAwarded"])
		assert.Equal(t, float64(250), body["currentXP"])
		assert.Equal(t, float64(1), body["level"])
		assert.Equal(t, false, body["leveledUp"])
		assert.Equal(t, "user-1", svc.lastAward.UserID)
		assert.Equal(t, "chat", svc.lastAward.ActivityType)
		assert.Equal(t, 250, svc.lastAward.XPAmount)
	})

	t.Run("accepts legacy camelCase body fields", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardResult: grantedResult}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"userId":"user-1","activityType":"flashcard","xpAmount":100}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-1", svc.lastAward.UserID)
		assert.Equal(t, "flashcard", svc.lastAward.ActivityType)
		assert.Equal(t, 100, svc.lastAward.XPAmount)
	})

	t.Run("canonical fields win over legacy ones", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardResult: grantedResult}
		handler := newTestHandler(svc)

		rr := postAward(handler,
			`{"user_id":"user-1","userId":"ignored","activity_type":"chat","activityType":"ignored","xp_amount":250,"xpAmount":5}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-1", svc.lastAward.UserID)
		assert.Equal(t, "chat", svc.lastAward.ActivityType)
		assert.Equal(t, 250, svc.lastAward.XPAmount)
	})

	t.Run("reports level-up", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardResult: &leveling.AwardResult{
			XPAwarded: 100,
			CurrentXP: 1050,
			Level:     2,
			Bones:     10,
			LeveledUp: true,
		}}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"user_id":"user-1","activity_type":"video","xp_amount":100}`)

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, true, body["leveledUp"])
		assert.Equal(t, float64(10), body["bones"])
	})

	t.Run("daily cap rejection includes accounting fields", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardErr: &leveling.DailyCapExceededError{
			ActivityType: "chat",
			DailyXP:      250,
			Cap:          250,
		}}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"user_id":"user-1","activity_type":"chat","xp_amount":50}`)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Daily XP limit reached for this activity", body["error"])
		assert.Equal(t, float64(250), body["dailyXP"])
		assert.Equal(t, float64(250), body["maxDailyXP"])
	})

	t.Run("no remaining allowance maps to 400", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardErr: leveling.ErrNoRemainingAllowance}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"user_id":"user-1","activity_type":"chat","xp_amount":50}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(&stubLevelingService{})

		rr := postAward(handler, `{"user_id": `)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects missing or invalid fields", func(t *testing.T) {
		t.Parallel()
		testCases := []struct {
			name    string
			payload string
		}{
			{"missing user", `{"activity_type":"chat","xp_amount":50}`},
			{"missing activity", `{"user_id":"user-1","xp_amount":50}`},
			{"missing amount", `{"user_id":"user-1","activity_type":"chat"}`},
			{"negative amount", `{"user_id":"user-1","activity_type":"chat","xp_amount":-5}`},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				svc := &stubLevelingService{awardResult: grantedResult}
				handler := newTestHandler(svc)

				rr := postAward(handler, tc.payload)

				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.Empty(t, svc.lastAward.UserID, "service should not be called")
			})
		}
	})

	t.Run("maps storage failure to 500 with sanitized message", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{awardErr: errors.New("pg: deadlock detected")}
		handler := newTestHandler(svc)

		rr := postAward(handler, `{"user_id":"user-1","activity_type":"chat","xp_amount":50}`)

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Failed to award XP", body["error"])
		assert.NotContains(t, rr.Body.String(), "deadlock")
	})
}

func TestGetDailySummary(t *testing.T) {
	t.Parallel()

	t.Run("returns per-activity totals", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{summary: map[string]int{"chat": 200, "video": 100}}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp/daily?user_id=user-1&date=2025-06-01", nil)
		rr := httptest.NewRecorder()
		handler.GetDailySummary(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "2025-06-01", body["date"])
		summary, ok := body["summary"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(200), summary["chat"])
		assert.Equal(t, float64(100), summary["video"])
		assert.Equal(t, "2025-06-01", svc.lastSumDate)
	})

	t.Run("defaults date to today", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{summary: map[string]int{}}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp/daily?user_id=user-1", nil)
		rr := httptest.NewRecorder()
		handler.GetDailySummary(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, time.Now().Format(domain.TransactionDateLayout), svc.lastSumDate)
	})

	t.Run("rejects missing user ID", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(&stubLevelingService{})

		req := httptest.NewRequest(http.MethodGet, "/xp/daily?date=2025-06-01", nil)
		rr := httptest.NewRecorder()
		handler.GetDailySummary(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("maps invalid date to 400", func(t *testing.T) {
		t.Parallel()
		svc := &stubLevelingService{summaryErr: leveling.ErrInvalidRequest}
		handler := newTestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xp/daily?user_id=user-1&date=junk", nil)
		rr := httptest.NewRecorder()
		handler.GetDailySummary(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Invalid request", body["error"])
	})
}

func TestNewXPHandler_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Panics(t, func() { NewXPHandler(nil, nil, logger) })
	assert.Panics(t, func() { NewXPHandler(&stubLevelingService{}, nil, nil) })
}
