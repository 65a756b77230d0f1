package handlers

import (
	"net/http"

	"gamemate-server/internal/gamepost"
	"gamemate-server/internal/middleware"

	"go.uber.org/zap"
)

// retiredPromotionMessage is the fixed body of the disabled manual
// promotion endpoint. Promotion is automatic; the route answers 410 for
// every caller without inspecting any state.
const retiredPromotionMessage = "Manual promotion has been retired. Waiting entries are promoted automatically when a slot frees."

// CancelWaitingHandler cancels the caller's own active waiting entry on a
// post. Entries already promoted or canceled are excluded by the state
// filter and report not-found.
func CancelWaitingHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())

	if err := gamepost.CancelWaiting(id, profile.SubjectID); err != nil {
		switch err {
		case gamepost.ErrPostNotFound:
			writeError(w, http.StatusNotFound, "Post not found")
		case gamepost.ErrNotWaiting:
			writeError(w, http.StatusNotFound, "No cancelable waiting entry found")
		default:
			zap.S().Errorw("canceling waiting entry", "post", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to cancel waiting entry")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Waiting entry canceled")
}

// ManualPromotionHandler is the retired manual promotion/rejection
// endpoint.
func ManualPromotionHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusGone, retiredPromotionMessage)
}
