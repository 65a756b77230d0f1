package handlers

import (
	"net/http"
	"time"

	"gamemate-server/internal/gamepost"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunStatusUpdateJob executes one status-update pass and fans out the
// notifications it produced. Shared by the HTTP trigger and the optional
// in-process cron schedule.
func RunStatusUpdateJob() (gamepost.StatusUpdateResult, error) {
	runID := uuid.NewString()

	result, events, err := gamepost.RunStatusUpdate(time.Now())
	if err != nil {
		zap.S().Errorw("status update run failed", "run", runID, "error", err)
		return result, err
	}

	for _, entry := range events.ReservePromotions {
		notifyPromotion(entry, entry.GamePostID, true)
	}

	zap.S().Infow("status update run finished",
		"run", runID,
		"completed_posts", result.CompletedPosts,
		"canceled_waiting", result.CanceledWaiting,
		"promoted_reserve", result.PromotedReserve,
	)
	return result, nil
}

// StatusUpdateHandler is the scheduled-job trigger called by an external
// scheduler.
func StatusUpdateHandler(w http.ResponseWriter, r *http.Request) {
	result, err := RunStatusUpdateJob()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
