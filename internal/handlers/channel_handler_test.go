package handlers

import (
	"net/http"
	"testing"

	"gamemate-server/internal/channel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelOrderPermissionGate(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "alice", "user")
	registerUser(t, "mod", "admin")

	a, err := channel.Create("a", "", nil)
	require.NoError(t, err)
	b, err := channel.Create("b", "", nil)
	require.NoError(t, err)

	body := map[string]interface{}{
		"channels": []map[string]interface{}{
			{"id": b.ID, "order": 0},
			{"id": a.ID, "order": 1},
		},
	}

	rec := doRequest(t, router, http.MethodPut, "/channels/order", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/channels/order", tokenFor(t, "alice"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/channels/order", tokenFor(t, "mod"), body)
	require.Equal(t, http.StatusOK, rec.Code)

	channels, err := channel.List()
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "b", channels[0].Name)
	assert.Equal(t, "a", channels[1].Name)
}

func TestChannelOrderValidation(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "mod", "admin")
	token := tokenFor(t, "mod")

	a, err := channel.Create("a", "", nil)
	require.NoError(t, err)

	// Empty batch
	rec := doRequest(t, router, http.MethodPut, "/channels/order", token, map[string]interface{}{
		"channels": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Zero id
	rec = doRequest(t, router, http.MethodPut, "/channels/order", token, map[string]interface{}{
		"channels": []map[string]interface{}{{"id": 0, "order": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown channel aborts the whole batch
	rec = doRequest(t, router, http.MethodPut, "/channels/order", token, map[string]interface{}{
		"channels": []map[string]interface{}{
			{"id": a.ID, "order": 5},
			{"id": 9999, "order": 0},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	channels, err := channel.List()
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, 0, channels[0].Position)
}

func TestCreateChannelGate(t *testing.T) {
	router := setupAPI(t)
	registerUser(t, "alice", "user")
	registerUser(t, "mod", "admin")

	rec := doRequest(t, router, http.MethodPost, "/channels", tokenFor(t, "alice"), map[string]string{
		"name": "boardgames",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/channels", tokenFor(t, "mod"), map[string]string{
		"name": "boardgames",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "boardgames", decodeBody(t, rec)["name"])

	// Listing is public
	rec = doRequest(t, router, http.MethodGet, "/channels", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
