package notification

import (
	"testing"

	"gamemate-server/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	require.NoError(t, db.InitMemory())
	require.NoError(t, db.DB.AutoMigrate(&Notification{}))
}

func TestDispatchAndList(t *testing.T) {
	setupTestDB(t)

	postID := uint(7)
	_, err := Dispatch("alice", TypePromoted, "you are in", &postID)
	require.NoError(t, err)
	_, err = Dispatch("alice", TypeNotice, "server maintenance", nil)
	require.NoError(t, err)
	_, err = Dispatch("bob", TypePromoted, "you are in", &postID)
	require.NoError(t, err)

	list, err := ListForUser("alice", false, 50, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	count, err := UnreadCount("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarkReadOwnershipScoped(t *testing.T) {
	setupTestDB(t)

	n, err := Dispatch("alice", TypeNotice, "hello", nil)
	require.NoError(t, err)

	// Another user cannot read alice's receipt
	assert.ErrorIs(t, MarkRead("bob", n.ID), ErrNotFound)

	require.NoError(t, MarkRead("alice", n.ID))

	var fresh Notification
	require.NoError(t, db.DB.First(&fresh, n.ID).Error)
	assert.True(t, fresh.IsRead)
	assert.NotNil(t, fresh.ReadAt)

	count, err := UnreadCount("alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	setupTestDB(t)

	for i := 0; i < 3; i++ {
		_, err := Dispatch("alice", TypeNotice, "hello", nil)
		require.NoError(t, err)
	}
	_, err := Dispatch("bob", TypeNotice, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, MarkAllRead("alice"))

	count, err := UnreadCount("alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	// bob's receipts stay unread
	count, err = UnreadCount("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListUnreadOnly(t *testing.T) {
	setupTestDB(t)

	first, err := Dispatch("alice", TypeNotice, "old", nil)
	require.NoError(t, err)
	_, err = Dispatch("alice", TypeNotice, "new", nil)
	require.NoError(t, err)

	require.NoError(t, MarkRead("alice", first.ID))

	list, err := ListForUser("alice", true, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Message)
}
