package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gamemate-server/internal/db"
	"gamemate-server/internal/metrics"
	"gamemate-server/internal/middleware"
	"gamemate-server/internal/user"
	"gamemate-server/internal/ws"

	"go.uber.org/zap"
)

// GetUsersHandler lists all profiles for the admin panel.
func GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	var profiles []user.Profile
	if err := db.DB.Order("created_at ASC").Find(&profiles).Error; err != nil {
		zap.S().Errorw("listing profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	responses := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		role, _ := user.Roles.GetRole(profiles[i].RoleID)
		responses = append(responses, toProfileResponse(&profiles[i], role))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": responses,
		"count": len(responses),
	})
}

// SuspendUserHandler blocks an account, optionally for a limited time.
func SuspendUserHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	var req struct {
		SubjectID string `json:"subject_id"`
		Reason    string `json:"reason"`
		Hours     int    `json:"hours,omitempty"` // 0 means permanent
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	if req.SubjectID == profile.SubjectID {
		writeError(w, http.StatusBadRequest, "Cannot suspend yourself")
		return
	}

	var target user.Profile
	if err := db.DB.Where("subject_id = ?", req.SubjectID).First(&target).Error; err != nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}

	var duration *time.Duration
	if req.Hours > 0 {
		d := time.Duration(req.Hours) * time.Hour
		duration = &d
	}

	if err := user.Suspend(req.SubjectID, profile.SubjectID, req.Reason, duration); err != nil {
		zap.S().Errorw("suspending user", "subject", req.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to suspend user")
		return
	}

	writeMessage(w, http.StatusOK, "User suspended")
}

// UnsuspendUserHandler lifts every active suspension of an account.
func UnsuspendUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	if err := user.Unsuspend(req.SubjectID); err != nil {
		zap.S().Errorw("unsuspending user", "subject", req.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to unsuspend user")
		return
	}

	writeMessage(w, http.StatusOK, "Suspension lifted")
}

// GetMetricsHandler returns the live counters plus the recent snapshots and
// hourly buckets.
func GetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	snapshots, err := metrics.Recent()
	if err != nil {
		zap.S().Errorw("loading metrics snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	hourly, err := metrics.RecentHourly(24)
	if err != nil {
		zap.S().Errorw("loading hourly metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current":   metrics.Current(ws.GlobalHub.OnlineCount()),
		"snapshots": snapshots,
		"hourly":    hourly,
	})
}
