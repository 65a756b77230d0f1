package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gamemate-server/internal/middleware"
	"gamemate-server/internal/notice"
	"gamemate-server/internal/ws"

	"go.uber.org/zap"
)

type NoticeResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNoticeResponse(n *notice.Notice) NoticeResponse {
	return NoticeResponse{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		AuthorID:  n.AuthorID,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func GetNoticesHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "20")
	offset := queryInt(r, "offset", "0")

	notices, err := notice.List(limit, offset)
	if err != nil {
		zap.S().Errorw("listing notices", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch notices")
		return
	}

	responses := make([]NoticeResponse, 0, len(notices))
	for i := range notices {
		responses = append(responses, toNoticeResponse(&notices[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notices": responses})
}

func GetNoticeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid notice id")
		return
	}

	n, err := notice.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Notice not found")
		return
	}

	writeJSON(w, http.StatusOK, toNoticeResponse(n))
}

func CreateNoticeHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	var req struct {
		Title  string `json:"title"`
		Body   string `json:"body"`
		Pinned bool   `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	n, err := notice.Create(req.Title, req.Body, profile.SubjectID, req.Pinned)
	if err != nil {
		zap.S().Errorw("creating notice", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create notice")
		return
	}

	ws.GlobalHub.Broadcast("notice_created", map[string]interface{}{
		"id":    n.ID,
		"title": n.Title,
	})

	writeJSON(w, http.StatusCreated, toNoticeResponse(n))
}

func UpdateNoticeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid notice id")
		return
	}

	var req struct {
		Title  *string `json:"title,omitempty"`
		Body   *string `json:"body,omitempty"`
		Pinned *bool   `json:"pinned,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := notice.Update(id, req.Title, req.Body, req.Pinned)
	if err != nil {
		if err == notice.ErrNoticeNotFound {
			writeError(w, http.StatusNotFound, "Notice not found")
			return
		}
		zap.S().Errorw("updating notice", "notice", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update notice")
		return
	}

	writeJSON(w, http.StatusOK, toNoticeResponse(n))
}

func DeleteNoticeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid notice id")
		return
	}

	if err := notice.Delete(id); err != nil {
		if err == notice.ErrNoticeNotFound {
			writeError(w, http.StatusNotFound, "Notice not found")
			return
		}
		zap.S().Errorw("deleting notice", "notice", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete notice")
		return
	}

	writeMessage(w, http.StatusOK, "Notice deleted")
}
