package gamepost

import (
	"testing"
	"time"

	"gamemate-server/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backdateWaiting(t *testing.T, entry *WaitingParticipant, to time.Time) {
	t.Helper()
	require.NoError(t, db.DB.Model(entry).UpdateColumn("created_at", to).Error)
}

func TestRunStatusUpdateCompletesPastDuePosts(t *testing.T) {
	setupTestDB(t)
	now := time.Now()

	past := now.Add(-time.Hour)
	due := createPost(t, "alice", 1, &past)

	res, err := Join(due.ID, "bob", now)
	require.NoError(t, err)
	require.NotNil(t, res.Waiting)

	future := now.Add(time.Hour)
	upcoming := createPost(t, "alice", 5, &future)

	result, _, err := RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedPosts)
	assert.Equal(t, 1, result.CanceledWaiting)

	var fresh GamePost
	require.NoError(t, db.DB.First(&fresh, due.ID).Error)
	assert.Equal(t, StatusCompleted, fresh.Status)

	// Leftover queue entries are canceled with the post
	var entry WaitingParticipant
	require.NoError(t, db.DB.Where("game_post_id = ? AND subject_id = ?", due.ID, "bob").First(&entry).Error)
	assert.Equal(t, WaitingCanceled, entry.Status)

	// The upcoming post is untouched
	var freshUpcoming GamePost
	require.NoError(t, db.DB.First(&freshUpcoming, upcoming.ID).Error)
	assert.Equal(t, StatusOpen, freshUpcoming.Status)
}

func TestRunStatusUpdatePromotesStaleTimeWaiting(t *testing.T) {
	setupTestDB(t)
	now := time.Now()

	soon := now.Add(2 * time.Hour)
	post := createPost(t, "alice", 1, &soon)

	res, err := Join(post.ID, "bob", now)
	require.NoError(t, err)
	require.NotNil(t, res.Waiting)
	require.Equal(t, WaitingTimeQueued, res.Waiting.Status)

	// Entry has sat in the queue past the promotion delay
	backdateWaiting(t, res.Waiting, now.Add(-time.Hour))

	result, events, err := RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PromotedReserve)
	require.Len(t, events.ReservePromotions, 1)
	assert.Equal(t, "bob", events.ReservePromotions[0].SubjectID)

	// Reserve slot sits outside capacity, so the post stays FULL with its
	// one countable player
	var participant Participant
	require.NoError(t, db.DB.Where("game_post_id = ? AND subject_id = ?", post.ID, "bob").First(&participant).Error)
	assert.True(t, participant.IsReserve)

	count, err := activeCount(db.DB, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var entry WaitingParticipant
	require.NoError(t, db.DB.First(&entry, res.Waiting.ID).Error)
	assert.Equal(t, WaitingPromoted, entry.Status)
}

func TestRunStatusUpdateLeavesFreshTimeWaiting(t *testing.T) {
	setupTestDB(t)
	now := time.Now()

	soon := now.Add(2 * time.Hour)
	post := createPost(t, "alice", 1, &soon)

	res, err := Join(post.ID, "bob", now)
	require.NoError(t, err)
	require.Equal(t, WaitingTimeQueued, res.Waiting.Status)

	result, events, err := RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PromotedReserve)
	assert.Empty(t, events.ReservePromotions)

	var entry WaitingParticipant
	require.NoError(t, db.DB.First(&entry, res.Waiting.ID).Error)
	assert.Equal(t, WaitingTimeQueued, entry.Status)
}

func TestRunStatusUpdateSkipsCanceledStaleEntries(t *testing.T) {
	setupTestDB(t)
	now := time.Now()

	soon := now.Add(2 * time.Hour)
	post := createPost(t, "alice", 1, &soon)

	res, err := Join(post.ID, "bob", now)
	require.NoError(t, err)
	backdateWaiting(t, res.Waiting, now.Add(-time.Hour))

	require.NoError(t, CancelWaiting(post.ID, "bob"))

	result, _, err := RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PromotedReserve)

	var count int64
	require.NoError(t, db.DB.Model(&Participant{}).
		Where("game_post_id = ? AND subject_id = ?", post.ID, "bob").
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunStatusUpdateIdempotent(t *testing.T) {
	setupTestDB(t)
	now := time.Now()

	past := now.Add(-time.Hour)
	createPost(t, "alice", 5, &past)

	result, _, err := RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedPosts)

	// Completed posts fall out of the due scan
	result, _, err = RunStatusUpdate(now)
	require.NoError(t, err)
	assert.Zero(t, result.CompletedPosts)
	assert.Zero(t, result.CanceledWaiting)
}
