package gamepost

import (
	"time"

	"gamemate-server/internal/config"
	"gamemate-server/internal/db"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusUpdateResult summarizes one run of the status updater.
type StatusUpdateResult struct {
	CompletedPosts  int `json:"completed_posts"`
	CanceledWaiting int `json:"canceled_waiting"`
	PromotedReserve int `json:"promoted_reserve"`
}

// Promoted waiting entries from a run, surfaced so the caller can notify.
type StatusUpdateEvents struct {
	ReservePromotions []*WaitingParticipant
}

// RunStatusUpdate advances post lifecycles on the clock:
//
//   - posts whose start time has passed are marked COMPLETED and their
//     leftover non-terminal waiting entries canceled;
//   - TIME_WAITING entries older than the configured promotion delay are
//     promoted into reserve slots on still-active posts.
//
// Each post is processed under its own serialization lock, same as the
// request paths, so a concurrent leave cannot double-claim a slot.
func RunStatusUpdate(now time.Time) (StatusUpdateResult, StatusUpdateEvents, error) {
	var (
		result StatusUpdateResult
		events StatusUpdateEvents
	)

	var due []GamePost
	err := db.DB.Where("starts_at IS NOT NULL AND starts_at <= ? AND status IN ?",
		now, []PostStatus{StatusOpen, StatusFull}).
		Find(&due).Error
	if err != nil {
		return result, events, err
	}

	for i := range due {
		post := &due[i]
		if err := completePost(post, &result); err != nil {
			zap.S().Errorw("completing past-due post", "post", post.ID, "error", err)
			continue
		}
	}

	cutoff := now.Add(-config.Conf.TimeWaitPromoteAfter)
	var stale []WaitingParticipant
	err = db.DB.Where("status = ? AND created_at <= ?", WaitingTimeQueued, cutoff).
		Order("created_at ASC, id ASC").
		Find(&stale).Error
	if err != nil {
		return result, events, err
	}

	for i := range stale {
		entry := &stale[i]
		promoted, err := promoteReserve(entry, now)
		if err != nil {
			zap.S().Errorw("promoting time-waiting entry", "entry", entry.ID, "error", err)
			continue
		}
		if promoted {
			result.PromotedReserve++
			events.ReservePromotions = append(events.ReservePromotions, entry)
		}
	}

	return result, events, nil
}

// completePost marks a past-due post COMPLETED and cancels its queue.
func completePost(post *GamePost, result *StatusUpdateResult) error {
	l := lockPost(post.ID)
	l.Lock()
	defer l.Unlock()

	return db.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := activePost(tx, post.ID)
		if err != nil {
			if err == ErrPostNotFound {
				return nil // deleted since the scan, nothing to do
			}
			return err
		}
		if fresh.Status == StatusCompleted {
			return nil
		}

		if err := tx.Model(fresh).Update("status", StatusCompleted).Error; err != nil {
			return err
		}
		result.CompletedPosts++

		canceled := tx.Model(&WaitingParticipant{}).
			Where("game_post_id = ? AND status IN ?",
				fresh.ID, []WaitingStatus{WaitingQueued, WaitingTimeQueued}).
			Update("status", WaitingCanceled)
		if canceled.Error != nil {
			return canceled.Error
		}
		result.CanceledWaiting += int(canceled.RowsAffected)
		return nil
	})
}

// promoteReserve turns a stale TIME_WAITING entry into a reserve
// participant. Reserve slots sit outside MaxPlayers, so no capacity check
// applies; the entry may have reached a terminal state since the scan, in
// which case this is a no-op.
func promoteReserve(entry *WaitingParticipant, now time.Time) (bool, error) {
	l := lockPost(entry.GamePostID)
	l.Lock()
	defer l.Unlock()

	promoted := false
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := activePost(tx, entry.GamePostID); err != nil {
			if err == ErrPostNotFound {
				return nil
			}
			return err
		}

		// Conditional update doubles as the terminal-state guard
		res := tx.Model(&WaitingParticipant{}).
			Where("id = ? AND status = ?", entry.ID, WaitingTimeQueued).
			Update("status", WaitingPromoted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		participant := Participant{
			GamePostID: entry.GamePostID,
			SubjectID:  entry.SubjectID,
			IsReserve:  true,
			JoinedAt:   now,
		}
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}

		entry.Status = WaitingPromoted
		promoted = true
		return nil
	})
	return promoted, err
}
