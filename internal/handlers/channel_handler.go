package handlers

import (
	"encoding/json"
	"net/http"

	"gamemate-server/internal/channel"
	"gamemate-server/internal/ws"

	"go.uber.org/zap"
)

type ChannelResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

func toChannelResponse(ch *channel.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID,
		Name:        ch.Name,
		Description: ch.Description,
		Position:    ch.Position,
	}
}

func GetChannelsHandler(w http.ResponseWriter, r *http.Request) {
	channels, err := channel.List()
	if err != nil {
		zap.S().Errorw("listing channels", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch channels")
		return
	}

	responses := make([]ChannelResponse, 0, len(channels))
	for i := range channels {
		responses = append(responses, toChannelResponse(&channels[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": responses})
}

func CreateChannelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Position    *int   `json:"position,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Channel name is required")
		return
	}

	ch, err := channel.Create(req.Name, req.Description, req.Position)
	if err != nil {
		zap.S().Errorw("creating channel", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create channel")
		return
	}

	ws.GlobalHub.Broadcast("channel_created", toChannelResponse(ch))

	writeJSON(w, http.StatusCreated, toChannelResponse(ch))
}

func UpdateChannelHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid channel id")
		return
	}

	var req struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ch, err := channel.Update(id, req.Name, req.Description)
	if err != nil {
		if err == channel.ErrChannelNotFound {
			writeError(w, http.StatusNotFound, "Channel not found")
			return
		}
		zap.S().Errorw("updating channel", "channel", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update channel")
		return
	}

	writeJSON(w, http.StatusOK, toChannelResponse(ch))
}

func DeleteChannelHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid channel id")
		return
	}

	if err := channel.Delete(id); err != nil {
		if err == channel.ErrChannelNotFound {
			writeError(w, http.StatusNotFound, "Channel not found")
			return
		}
		zap.S().Errorw("deleting channel", "channel", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete channel")
		return
	}

	writeMessage(w, http.StatusOK, "Channel deleted")
}

// OrderChannelsHandler applies a batch of position updates in one
// transaction; either every listed channel moves or none does.
func OrderChannelsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channels []channel.OrderEntry `json:"channels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Channels) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, entry := range req.Channels {
		if entry.ID == 0 || entry.Order < 0 {
			writeError(w, http.StatusBadRequest, "Invalid channel order entry")
			return
		}
	}

	if err := channel.Reorder(req.Channels); err != nil {
		if err == channel.ErrChannelNotFound {
			writeError(w, http.StatusBadRequest, "Unknown channel in order list")
			return
		}
		zap.S().Errorw("reordering channels", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reorder channels")
		return
	}

	ws.GlobalHub.Broadcast("channels_reordered", req.Channels)

	writeMessage(w, http.StatusOK, "Channel order updated")
}
