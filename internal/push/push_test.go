package push

import (
	"testing"

	"gamemate-server/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	require.NoError(t, db.InitMemory())
	require.NoError(t, db.DB.AutoMigrate(&Subscription{}))
}

func TestSubscribeAndCheck(t *testing.T) {
	setupTestDB(t)

	subscribed, err := Check("alice")
	require.NoError(t, err)
	assert.False(t, subscribed)

	sub, err := Subscribe("alice", "https://push.example/ep1", "p256dh-key", "auth-key")
	require.NoError(t, err)
	assert.NotEmpty(t, sub.SubscriptionID)

	subscribed, err = Check("alice")
	require.NoError(t, err)
	assert.True(t, subscribed)
}

func TestSubscribeReplacesExisting(t *testing.T) {
	setupTestDB(t)

	first, err := Subscribe("alice", "https://push.example/ep1", "k1", "a1")
	require.NoError(t, err)

	second, err := Subscribe("alice", "https://push.example/ep2", "k2", "a2")
	require.NoError(t, err)
	assert.NotEqual(t, first.SubscriptionID, second.SubscriptionID)

	// Exactly one row per user survives
	var count int64
	require.NoError(t, db.DB.Model(&Subscription{}).Where("subject_id = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var sub Subscription
	require.NoError(t, db.DB.Where("subject_id = ?", "alice").First(&sub).Error)
	assert.Equal(t, "https://push.example/ep2", sub.Endpoint)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	setupTestDB(t)

	_, err := Subscribe("alice", "https://push.example/ep1", "k", "a")
	require.NoError(t, err)

	require.NoError(t, Unsubscribe("alice"))

	subscribed, err := Check("alice")
	require.NoError(t, err)
	assert.False(t, subscribed)

	// Removing a missing subscription is not an error
	require.NoError(t, Unsubscribe("alice"))
	require.NoError(t, Unsubscribe("nobody"))
}
