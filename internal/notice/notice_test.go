package notice

import (
	"testing"

	"gamemate-server/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	require.NoError(t, db.InitMemory())
	require.NoError(t, db.DB.AutoMigrate(&Notice{}))
}

func TestCRUD(t *testing.T) {
	setupTestDB(t)

	n, err := Create("maintenance window", "down saturday 2am", "admin-sub", false)
	require.NoError(t, err)

	got, err := Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "maintenance window", got.Title)

	title := "maintenance moved"
	pinned := true
	updated, err := Update(n.ID, &title, nil, &pinned)
	require.NoError(t, err)
	assert.Equal(t, "maintenance moved", updated.Title)
	assert.True(t, updated.Pinned)
	assert.Equal(t, "down saturday 2am", updated.Body)

	require.NoError(t, Delete(n.ID))
	assert.ErrorIs(t, Delete(n.ID), ErrNoticeNotFound)

	_, err = Get(n.ID)
	assert.ErrorIs(t, err, ErrNoticeNotFound)
}

func TestListPinnedFirst(t *testing.T) {
	setupTestDB(t)

	_, err := Create("older", "", "admin-sub", false)
	require.NoError(t, err)
	_, err = Create("newer", "", "admin-sub", false)
	require.NoError(t, err)
	_, err = Create("rules", "read before posting", "admin-sub", true)
	require.NoError(t, err)

	notices, err := List(20, 0)
	require.NoError(t, err)
	require.Len(t, notices, 3)
	assert.Equal(t, "rules", notices[0].Title)
	assert.True(t, notices[0].Pinned)
}

func TestUpdateMissing(t *testing.T) {
	setupTestDB(t)

	title := "ghost"
	_, err := Update(9999, &title, nil, nil)
	assert.ErrorIs(t, err, ErrNoticeNotFound)
}
