package handlers

import (
	"net/http"
	"time"

	"gamemate-server/internal/middleware"
	"gamemate-server/internal/notification"

	"go.uber.org/zap"
)

type NotificationResponse struct {
	ID         uint       `json:"id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	GamePostID *uint      `json:"game_post_id,omitempty"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// GetNotificationsHandler returns the caller's notifications, newest
// first.
func GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	limit := queryInt(r, "limit", "50")
	offset := queryInt(r, "offset", "0")

	notifications, err := notification.ListForUser(profile.SubjectID, unreadOnly, limit, offset)
	if err != nil {
		zap.S().Errorw("listing notifications", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, NotificationResponse{
			ID:         n.ID,
			Type:       string(n.Type),
			Message:    n.Message,
			GamePostID: n.GamePostID,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
			ReadAt:     n.ReadAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": responses,
		"count":         len(responses),
	})
}

// MarkNotificationReadHandler marks one of the caller's notifications as
// read.
func MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())

	if err := notification.MarkRead(profile.SubjectID, id); err != nil {
		if err == notification.ErrNotFound {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		zap.S().Errorw("marking notification read", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}

	writeMessage(w, http.StatusOK, "Notification marked as read")
}

// MarkAllNotificationsReadHandler marks every unread notification of the
// caller as read.
func MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	if err := notification.MarkAllRead(profile.SubjectID); err != nil {
		zap.S().Errorw("marking all notifications read", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark notifications as read")
		return
	}

	writeMessage(w, http.StatusOK, "All notifications marked as read")
}

// GetUnreadCountHandler returns the caller's unread notification count.
func GetUnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	count, err := notification.UnreadCount(profile.SubjectID)
	if err != nil {
		zap.S().Errorw("counting unread notifications", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get unread count")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}
