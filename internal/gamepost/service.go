package gamepost

import (
	"errors"
	"sync"
	"time"

	"gamemate-server/internal/config"
	"gamemate-server/internal/db"

	"gorm.io/gorm"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrPostClosed      = errors.New("post is no longer open for joining")
	ErrAlreadyJoined   = errors.New("already holds a slot on this post")
	ErrAlreadyWaiting  = errors.New("already has an active waiting entry")
	ErrNotWaiting      = errors.New("no cancelable waiting entry")
	ErrNotParticipant  = errors.New("not a participant of this post")
	ErrLeaderMustOwn   = errors.New("the leader cannot leave their own post")
	ErrNotPostOwner    = errors.New("only the author may modify this post")
)

// JoinResult describes what Join did: either a confirmed slot or a queued
// waiting entry, never both.
type JoinResult struct {
	Participant *Participant
	Waiting     *WaitingParticipant
}

// Per-post serialization point. Every participant/waiting mutation for a
// post runs under its lock, so a freed slot is claimed by exactly one
// waiting entry and the duplicate-entry invariant holds under concurrency.
var postLocks = struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}{m: make(map[uint]*sync.Mutex)}

func lockPost(id uint) *sync.Mutex {
	postLocks.mu.Lock()
	defer postLocks.mu.Unlock()

	l, ok := postLocks.m[id]
	if !ok {
		l = &sync.Mutex{}
		postLocks.m[id] = l
	}
	return l
}

// activePost loads a post, treating soft-deleted rows as absent.
func activePost(tx *gorm.DB, id uint) (*GamePost, error) {
	var post GamePost
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if post.Deleted() {
		return nil, ErrPostNotFound
	}
	return &post, nil
}

// activeCount counts confirmed non-reserve participants.
func activeCount(tx *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := tx.Model(&Participant{}).
		Where("game_post_id = ? AND is_reserve = ?", postID, false).
		Count(&count).Error
	return count, err
}

// recomputeStatus rederives OPEN/FULL from the active participant count.
// COMPLETED and DELETED are sticky and never recomputed away.
func recomputeStatus(tx *gorm.DB, post *GamePost) error {
	if post.Status == StatusCompleted || post.Status == StatusDeleted {
		return nil
	}

	count, err := activeCount(tx, post.ID)
	if err != nil {
		return err
	}

	status := StatusOpen
	if count >= int64(post.MaxPlayers) {
		status = StatusFull
	}
	if status == post.Status {
		return nil
	}

	post.Status = status
	return tx.Model(post).Update("status", status).Error
}

// Create stores a new post and seats the author as its leader.
func Create(post *GamePost) error {
	if post.MaxPlayers <= 0 {
		post.MaxPlayers = 5
	}
	post.Status = StatusOpen

	return db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		leader := Participant{
			GamePostID: post.ID,
			SubjectID:  post.AuthorID,
			IsLeader:   true,
			JoinedAt:   time.Now(),
		}
		if err := tx.Create(&leader).Error; err != nil {
			return err
		}

		return recomputeStatus(tx, post)
	})
}

// Join confirms a slot when capacity allows, otherwise enqueues a waiting
// entry. Queued entries for posts starting within the configured window are
// marked TIME_WAITING; the distinction only affects display and the
// time-boxed reserve promotion in the status updater.
func Join(postID uint, subjectID string, now time.Time) (*JoinResult, error) {
	l := lockPost(postID)
	l.Lock()
	defer l.Unlock()

	result := &JoinResult{}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		post, err := activePost(tx, postID)
		if err != nil {
			return err
		}
		if post.Status == StatusCompleted {
			return ErrPostClosed
		}

		var joined int64
		if err := tx.Model(&Participant{}).
			Where("game_post_id = ? AND subject_id = ?", postID, subjectID).
			Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return ErrAlreadyJoined
		}

		var queued int64
		if err := tx.Model(&WaitingParticipant{}).
			Where("game_post_id = ? AND subject_id = ? AND status IN ?",
				postID, subjectID, []WaitingStatus{WaitingQueued, WaitingTimeQueued}).
			Count(&queued).Error; err != nil {
			return err
		}
		if queued > 0 {
			return ErrAlreadyWaiting
		}

		count, err := activeCount(tx, postID)
		if err != nil {
			return err
		}

		if count < int64(post.MaxPlayers) {
			participant := Participant{
				GamePostID: postID,
				SubjectID:  subjectID,
				JoinedAt:   now,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			result.Participant = &participant
			return recomputeStatus(tx, post)
		}

		status := WaitingQueued
		if post.StartsAt != nil && post.StartsAt.Sub(now) <= config.Conf.TimeWaitWindow {
			status = WaitingTimeQueued
		}
		waiting := WaitingParticipant{
			GamePostID: postID,
			SubjectID:  subjectID,
			Status:     status,
		}
		if err := tx.Create(&waiting).Error; err != nil {
			return err
		}
		result.Waiting = &waiting
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelWaiting cancels the caller's own non-terminal waiting entry.
// Terminal entries are excluded by the state filter, so canceling an
// already promoted or canceled entry reports not-found instead of silently
// succeeding.
func CancelWaiting(postID uint, subjectID string) error {
	l := lockPost(postID)
	l.Lock()
	defer l.Unlock()

	return db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := activePost(tx, postID); err != nil {
			return err
		}

		var waiting WaitingParticipant
		err := tx.Where("game_post_id = ? AND subject_id = ? AND status IN ?",
			postID, subjectID, []WaitingStatus{WaitingQueued, WaitingTimeQueued}).
			Order("created_at ASC, id ASC").
			First(&waiting).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotWaiting
			}
			return err
		}

		return tx.Model(&waiting).Update("status", WaitingCanceled).Error
	})
}

// promoteNext converts the earliest non-terminal waiting entry into a
// confirmed participant. Returns nil when the queue is empty. Must run
// inside the post's lock and the caller's transaction.
func promoteNext(tx *gorm.DB, post *GamePost, now time.Time) (*WaitingParticipant, error) {
	var waiting WaitingParticipant
	err := tx.Where("game_post_id = ? AND status IN ?",
		post.ID, []WaitingStatus{WaitingQueued, WaitingTimeQueued}).
		Order("created_at ASC, id ASC").
		First(&waiting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := tx.Model(&waiting).Update("status", WaitingPromoted).Error; err != nil {
		return nil, err
	}
	waiting.Status = WaitingPromoted

	participant := Participant{
		GamePostID: post.ID,
		SubjectID:  waiting.SubjectID,
		JoinedAt:   now,
	}
	if err := tx.Create(&participant).Error; err != nil {
		return nil, err
	}

	return &waiting, nil
}

// Leave removes the caller's confirmed slot and immediately fills it from
// the waiting queue. The promoted entry, if any, is returned so the caller
// can notify its owner.
func Leave(postID uint, subjectID string, now time.Time) (*WaitingParticipant, error) {
	l := lockPost(postID)
	l.Lock()
	defer l.Unlock()

	var promoted *WaitingParticipant
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		post, err := activePost(tx, postID)
		if err != nil {
			return err
		}

		var participant Participant
		err = tx.Where("game_post_id = ? AND subject_id = ?", postID, subjectID).
			First(&participant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotParticipant
			}
			return err
		}
		if participant.IsLeader {
			return ErrLeaderMustOwn
		}

		wasReserve := participant.IsReserve
		if err := tx.Unscoped().Delete(&participant).Error; err != nil {
			return err
		}

		// Reserve departures free no countable slot
		if !wasReserve && post.Status != StatusCompleted {
			promoted, err = promoteNext(tx, post, now)
			if err != nil {
				return err
			}
		}

		return recomputeStatus(tx, post)
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// IncrementView bumps the view counter with an atomic column update.
// Guarded only by existence and non-deleted status; concurrent increments
// may interleave but none is lost.
func IncrementView(postID uint) error {
	result := db.DB.Model(&GamePost{}).
		Where("id = ? AND status <> ?", postID, StatusDeleted).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Update edits mutable post fields. A capacity increase frees slots, so
// the waiting queue is drained into them before status is recomputed.
// Promoted entries are returned for notification.
func Update(postID uint, subjectID string, canManage bool, apply func(*GamePost)) ([]*WaitingParticipant, error) {
	l := lockPost(postID)
	l.Lock()
	defer l.Unlock()

	var promoted []*WaitingParticipant
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		post, err := activePost(tx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != subjectID && !canManage {
			return ErrNotPostOwner
		}

		apply(post)
		if post.MaxPlayers <= 0 {
			post.MaxPlayers = 1
		}
		if err := tx.Save(post).Error; err != nil {
			return err
		}

		now := time.Now()
		for post.Status != StatusCompleted {
			count, err := activeCount(tx, post.ID)
			if err != nil {
				return err
			}
			if count >= int64(post.MaxPlayers) {
				break
			}
			entry, err := promoteNext(tx, post, now)
			if err != nil {
				return err
			}
			if entry == nil {
				break
			}
			promoted = append(promoted, entry)
		}

		return recomputeStatus(tx, post)
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// SoftDelete marks a post DELETED. Rows stay put; every read path treats
// DELETED as absent.
func SoftDelete(postID uint, subjectID string, canManage bool) error {
	l := lockPost(postID)
	l.Lock()
	defer l.Unlock()

	return db.DB.Transaction(func(tx *gorm.DB) error {
		post, err := activePost(tx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != subjectID && !canManage {
			return ErrNotPostOwner
		}

		return tx.Model(post).Update("status", StatusDeleted).Error
	})
}
