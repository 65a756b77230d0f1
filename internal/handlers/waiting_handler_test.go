package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"gamemate-server/internal/db"
	"gamemate-server/internal/gamepost"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualPromotionAlwaysGone(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "alice", "user")
	registerUser(t, "root", "super_admin")

	post := &gamepost.GamePost{Title: "session", AuthorID: "alice", MaxPlayers: 1}
	require.NoError(t, gamepost.Create(post))
	res, err := gamepost.Join(post.ID, "bob-sub", time.Now())
	require.NoError(t, err)
	require.NotNil(t, res.Waiting)

	// Real post and waiting entry, regular user
	rec := doRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/game-posts/%d/waiting/%d", post.ID, res.Waiting.ID),
		tokenFor(t, "alice"), nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, retiredPromotionMessage, decodeBody(t, rec)["error"])

	// Super admin gets the same answer
	rec = doRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/game-posts/%d/waiting/%d", post.ID, res.Waiting.ID),
		tokenFor(t, "root"), nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	// Nonexistent ids change nothing; no state is inspected
	rec = doRequest(t, router, http.MethodPatch, "/game-posts/9999/waiting/9999",
		tokenFor(t, "alice"), nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, retiredPromotionMessage, decodeBody(t, rec)["error"])

	// The entry is untouched
	var entry gamepost.WaitingParticipant
	require.NoError(t, db.DB.First(&entry, res.Waiting.ID).Error)
	assert.Equal(t, gamepost.WaitingQueued, entry.Status)
}

func TestManualPromotionGoneWithoutSession(t *testing.T) {
	router := setupAPI(t)

	// No token at all
	rec := doRequest(t, router, http.MethodPatch, "/game-posts/1/waiting/1", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, retiredPromotionMessage, decodeBody(t, rec)["error"])

	// Garbage token
	rec = doRequest(t, router, http.MethodPatch, "/game-posts/1/waiting/1", "not-a-token", nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	// Valid token for a subject with no registered profile
	rec = doRequest(t, router, http.MethodPatch, "/game-posts/1/waiting/1", tokenFor(t, "ghost"), nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, retiredPromotionMessage, decodeBody(t, rec)["error"])
}

func TestCancelWaitingEndpoint(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "alice", "user")
	registerUser(t, "bob", "user")

	post := &gamepost.GamePost{Title: "session", AuthorID: "alice", MaxPlayers: 1}
	require.NoError(t, gamepost.Create(post))

	rec := doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/game-posts/%d/join", post.ID), tokenFor(t, "bob"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["waiting"])

	rec = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/game-posts/%d/wait/cancel", post.ID), tokenFor(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second cancel finds nothing cancelable
	rec = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/game-posts/%d/wait/cancel", post.ID), tokenFor(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No cancelable waiting entry found", decodeBody(t, rec)["error"])
}

func TestCancelWaitingNeverQueued(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "alice", "user")
	registerUser(t, "bob", "user")

	post := &gamepost.GamePost{Title: "session", AuthorID: "alice", MaxPlayers: 5}
	require.NoError(t, gamepost.Create(post))

	rec := doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/game-posts/%d/wait/cancel", post.ID), tokenFor(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown post also reports not found
	rec = doRequest(t, router, http.MethodPost, "/game-posts/9999/wait/cancel",
		tokenFor(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
