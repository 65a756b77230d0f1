package handlers

import (
	"encoding/json"
	"net/http"

	"gamemate-server/internal/middleware"
	"gamemate-server/internal/push"

	"go.uber.org/zap"
)

// SubscribePushHandler stores the caller's push subscription, replacing
// any previous one.
func SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	var req struct {
		Endpoint string `json:"endpoint"`
		P256dh   string `json:"p256dh"`
		Auth     string `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "Invalid subscription payload")
		return
	}

	sub, err := push.Subscribe(profile.SubjectID, req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		zap.S().Errorw("storing push subscription", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store subscription")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"subscription_id": sub.SubscriptionID,
		"enabled":         sub.Enabled,
	})
}

// CheckPushHandler reports whether the caller has an enabled push
// subscription. A missing row is a plain false, not a failure.
func CheckPushHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	enabled, err := push.Check(profile.SubjectID)
	if err != nil {
		zap.S().Errorw("checking push subscription", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to check subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": enabled})
}

// UnsubscribePushHandler removes the caller's push subscription.
func UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	if err := push.Unsubscribe(profile.SubjectID); err != nil {
		zap.S().Errorw("removing push subscription", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove subscription")
		return
	}

	writeMessage(w, http.StatusOK, "Unsubscribed")
}
