// Package api provides HTTP handlers for the API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/studyforge/xp-api/internal/api/shared"
	"github.com/studyforge/xp-api/internal/domain"
	"github.com/studyforge/xp-api/internal/platform/logger"
	"github.com/studyforge/xp-api/internal/platform/metrics"
	"github.com/studyforge/xp-api/internal/service/leveling"
)

// XPStateResponse represents the response data for a user's XP state.
type XPStateResponse struct {
	UserID        string    `json:"user_id"`
	CurrentXP     int       `json:"current_xp"`
	Level         int       `json:"level"`
	Bones         int       `json:"bones"`
	XPToNextLevel int       `json:"xp_to_next_level"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AwardResponse represents the response data for an accepted award.
// The award path keeps the camelCase keys the original web client reads,
// unlike the state endpoint which uses snake_case.
type AwardResponse struct {
	Success   bool `json:"success"`
	XPAwarded int  `json:"xpAwarded"`
	CurrentXP int  `json:"currentXP"`
	Level     int  `json:"level"`
	Bones     int  `json:"bones"`
	LeveledUp bool `json:"leveledUp"`
}

// DailySummaryResponse represents the per-activity XP totals for one day.
type DailySummaryResponse struct {
	Date    string         `json:"date"`
	Summary map[string]int `json:"summary"`
}

// AwardRequest represents the request body for awarding XP.
// The legacy camelCase field names used by the original web client are
// accepted alongside the snake_case ones.
type AwardRequest struct {
	UserID             string `json:"user_id"       validate:"required"`
	ActivityType       string `json:"activity_type" validate:"required"`
	XPAmount           int    `json:"xp_amount"     validate:"required,gt=0"`
	LegacyUserID       string `json:"userId"`
	LegacyActivityType string `json:"activityType"`
	LegacyXPAmount     int    `json:"xpAmount"`
}

// normalize coalesces the legacy field spellings into the canonical ones.
func (r *AwardRequest) normalize() {
	if r.UserID == "" {
		r.UserID = r.LegacyUserID
	}
	if r.ActivityType == "" {
		r.ActivityType = r.LegacyActivityType
	}
	if r.XPAmount == 0 {
		r.XPAmount = r.LegacyXPAmount
	}
}

// XPHandler handles XP-related HTTP requests.
type XPHandler struct {
	levelingService leveling.Service
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// NewXPHandler creates a new XPHandler. Metrics may be nil, in which case
// award instrumentation is skipped.
func NewXPHandler(
	levelingService leveling.Service,
	m *metrics.Metrics,
	logger *slog.Logger,
) *XPHandler {
	if levelingService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("levelingService cannot be nil for XPHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for XPHandler")
	}

	return &XPHandler{
		levelingService: levelingService,
		metrics:         m,
		logger:          logger.With(slog.String("component", "xp_handler")),
	}
}

// userIDFromQuery extracts the user ID from the query string, accepting
// both the canonical and the legacy parameter spellings.
func userIDFromQuery(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

// GetState handles GET /xp requests.
// It returns the user's aggregate XP state, lazily initializing the zero
// state for users never seen before.
func (h *XPHandler) GetState(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID := userIDFromQuery(r)
	if userID == "" {
		log.Warn("user ID missing from XP state request")
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	state, err := h.levelingService.GetState(r.Context(), userID)
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to load XP state"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	log.Debug("xp state retrieved",
		slog.String("user_id", userID),
		slog.Int("current_xp", state.CurrentXP),
		slog.Int("level", state.Level))
	shared.RespondWithJSON(w, r, http.StatusOK, stateToResponse(state))
}

// Award handles POST /xp/award requests.
// It credits XP for an activity, clamped to the activity's remaining
// daily allowance, and reports whether a level-up occurred.
func (h *XPHandler) Award(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req AwardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid award request format",
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.normalize()

	if err := shared.ValidateRequest(&req); err != nil {
		log.Warn("award request failed validation",
			slog.String("error", err.Error()),
			slog.String("user_id", req.UserID),
			slog.String("activity_type", req.ActivityType),
			slog.Int("xp_amount", req.XPAmount))
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"user_id, activity_type and xp_amount are required")
		return
	}

	result, err := h.levelingService.Award(r.Context(), leveling.AwardRequest{
		UserID:       req.UserID,
		ActivityType: req.ActivityType,
		XPAmount:     req.XPAmount,
	})

	if err != nil {
		h.countRejection(err)

		// Daily-cap rejections carry accounting details for the client.
		var capErr *leveling.DailyCapExceededError
		if errors.As(err, &capErr) {
			shared.RespondWithCapErrorAndLog(w, r, http.StatusBadRequest,
				GetSafeErrorMessage(err), err, &capErr.DailyXP, &capErr.Cap)
			return
		}

		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to award XP"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	if h.metrics != nil {
		h.metrics.AwardsGranted.WithLabelValues(req.ActivityType).Inc()
		h.metrics.XPCredited.WithLabelValues(req.ActivityType).Add(float64(result.XPAwarded))
	}

	log.Debug("xp award processed",
		slog.String("user_id", req.UserID),
		slog.String("activity_type", req.ActivityType),
		slog.Int("xp_awarded", result.XPAwarded),
		slog.Bool("leveled_up", result.LeveledUp))

	shared.RespondWithJSON(w, r, http.StatusOK, AwardResponse{
		Success:   true,
		XPAwarded: result.XPAwarded,
		CurrentXP: result.CurrentXP,
		Level:     result.Level,
		Bones:     result.Bones,
		LeveledUp: result.LeveledUp,
	})
}

// GetDailySummary handles GET /xp/daily requests.
// The date parameter is optional and defaults to today.
func (h *XPHandler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID := userIDFromQuery(r)
	if userID == "" {
		log.Warn("user ID missing from daily summary request")
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(domain.TransactionDateLayout)
	}

	summary, err := h.levelingService.DailySummary(r.Context(), userID, date)
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to load daily summary"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DailySummaryResponse{
		Date:    date,
		Summary: summary,
	})
}

// countRejection records a rejected award with a bounded reason label.
func (h *XPHandler) countRejection(err error) {
	if h.metrics == nil {
		return
	}

	reason := "storage_error"
	switch {
	case errors.Is(err, leveling.ErrDailyCapExceeded):
		reason = "daily_cap_exceeded"
	case errors.Is(err, leveling.ErrNoRemainingAllowance):
		reason = "no_remaining_allowance"
	case errors.Is(err, leveling.ErrInvalidRequest):
		reason = "invalid_request"
	}
	h.metrics.AwardsRejected.WithLabelValues(reason).Inc()
}

// stateToResponse converts a domain.UserXPState to an XPStateResponse.
func stateToResponse(state *domain.UserXPState) XPStateResponse {
	return XPStateResponse{
		UserID:        state.UserID,
		CurrentXP:     state.CurrentXP,
		Level:         state.Level,
		Bones:         state.Bones,
		XPToNextLevel: domain.XPToNextLevel(state.CurrentXP),
		UpdatedAt:     state.UpdatedAt,
	}
}
