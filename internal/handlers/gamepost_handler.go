package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gamemate-server/internal/db"
	"gamemate-server/internal/gamepost"
	"gamemate-server/internal/middleware"
	"gamemate-server/internal/notification"
	"gamemate-server/internal/user"
	"gamemate-server/internal/ws"

	"go.uber.org/zap"
)

type ParticipantResponse struct {
	SubjectID string    `json:"subject_id"`
	Nickname  string    `json:"nickname,omitempty"`
	IsLeader  bool      `json:"is_leader"`
	IsReserve bool      `json:"is_reserve"`
	JoinedAt  time.Time `json:"joined_at"`
}

type WaitingResponse struct {
	ID        uint      `json:"id"`
	SubjectID string    `json:"subject_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type GamePostResponse struct {
	ID           uint                  `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	AuthorID     string                `json:"author_id"`
	ChannelID    uint                  `json:"channel_id,omitempty"`
	MaxPlayers   int                   `json:"max_players"`
	Status       string                `json:"status"`
	StartsAt     *time.Time            `json:"starts_at,omitempty"`
	ViewCount    int64                 `json:"view_count"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
	Waiting      []WaitingResponse     `json:"waiting"`
}

func nicknameOf(subjectID string) string {
	var profile user.Profile
	if err := db.DB.Select("nickname").Where("subject_id = ?", subjectID).First(&profile).Error; err != nil {
		return ""
	}
	return profile.Nickname
}

func toPostResponse(post *gamepost.GamePost) GamePostResponse {
	participants := make([]ParticipantResponse, 0, len(post.Participants))
	for _, p := range post.Participants {
		participants = append(participants, ParticipantResponse{
			SubjectID: p.SubjectID,
			Nickname:  nicknameOf(p.SubjectID),
			IsLeader:  p.IsLeader,
			IsReserve: p.IsReserve,
			JoinedAt:  p.JoinedAt,
		})
	}

	waiting := make([]WaitingResponse, 0)
	for _, entry := range post.Waiting {
		if entry.Status.Terminal() {
			continue
		}
		waiting = append(waiting, WaitingResponse{
			ID:        entry.ID,
			SubjectID: entry.SubjectID,
			Status:    string(entry.Status),
			CreatedAt: entry.CreatedAt,
		})
	}

	return GamePostResponse{
		ID:           post.ID,
		Title:        post.Title,
		Description:  post.Description,
		AuthorID:     post.AuthorID,
		ChannelID:    post.ChannelID,
		MaxPlayers:   post.MaxPlayers,
		Status:       string(post.Status),
		StartsAt:     post.StartsAt,
		ViewCount:    post.ViewCount,
		CreatedAt:    post.CreatedAt,
		Participants: participants,
		Waiting:      waiting,
	}
}

// GetGamePostsHandler lists posts, newest first. Soft-deleted posts never
// leave the store but are filtered from every listing.
func GetGamePostsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "20")
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", "0")
	if offset < 0 {
		offset = 0
	}

	query := db.DB.Where("status <> ?", gamepost.StatusDeleted)
	if channelID := queryInt(r, "channel_id", "0"); channelID > 0 {
		query = query.Where("channel_id = ?", channelID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var posts []gamepost.GamePost
	if err := query.Preload("Participants").Preload("Waiting").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		zap.S().Errorw("listing game posts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	responses := make([]GamePostResponse, 0, len(posts))
	for i := range posts {
		responses = append(responses, toPostResponse(&posts[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": responses,
		"count": len(responses),
	})
}

func GetGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var post gamepost.GamePost
	if err := db.DB.Preload("Participants").Preload("Waiting").First(&post, id).Error; err != nil || post.Deleted() {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(&post))
}

func CreateGamePostHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		ChannelID   uint       `json:"channel_id"`
		MaxPlayers  int        `json:"max_players"`
		StartsAt    *time.Time `json:"starts_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.MaxPlayers < 1 || req.MaxPlayers > 100 {
		writeError(w, http.StatusBadRequest, "max_players must be between 1 and 100")
		return
	}

	post := gamepost.GamePost{
		Title:       req.Title,
		Description: req.Description,
		AuthorID:    profile.SubjectID,
		ChannelID:   req.ChannelID,
		MaxPlayers:  req.MaxPlayers,
		StartsAt:    req.StartsAt,
	}

	if err := gamepost.Create(&post); err != nil {
		zap.S().Errorw("creating game post", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	ws.GlobalHub.Broadcast("post_created", map[string]interface{}{
		"id":    post.ID,
		"title": post.Title,
	})

	writeJSON(w, http.StatusCreated, toPostResponse(&post))
}

func UpdateGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	var req struct {
		Title       *string    `json:"title,omitempty"`
		Description *string    `json:"description,omitempty"`
		MaxPlayers  *int       `json:"max_players,omitempty"`
		StartsAt    *time.Time `json:"starts_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	canManage := user.HasPermission(role, user.PermissionManagePosts)
	promoted, err := gamepost.Update(id, profile.SubjectID, canManage, func(post *gamepost.GamePost) {
		if req.Title != nil && *req.Title != "" {
			post.Title = *req.Title
		}
		if req.Description != nil {
			post.Description = *req.Description
		}
		if req.MaxPlayers != nil && *req.MaxPlayers > 0 {
			post.MaxPlayers = *req.MaxPlayers
		}
		if req.StartsAt != nil {
			post.StartsAt = req.StartsAt
		}
	})
	if err != nil {
		switch err {
		case gamepost.ErrPostNotFound:
			writeError(w, http.StatusNotFound, "Post not found")
		case gamepost.ErrNotPostOwner:
			writeError(w, http.StatusForbidden, "Only the author may modify this post")
		default:
			zap.S().Errorw("updating game post", "post", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update post")
		}
		return
	}

	for _, entry := range promoted {
		notifyPromotion(entry, id, false)
	}

	writeMessage(w, http.StatusOK, "Post updated")
}

func DeleteGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())
	canManage := user.HasPermission(role, user.PermissionManagePosts)

	if err := gamepost.SoftDelete(id, profile.SubjectID, canManage); err != nil {
		switch err {
		case gamepost.ErrPostNotFound:
			writeError(w, http.StatusNotFound, "Post not found")
		case gamepost.ErrNotPostOwner:
			writeError(w, http.StatusForbidden, "Only the author may delete this post")
		default:
			zap.S().Errorw("deleting game post", "post", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete post")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Post deleted")
}

// JoinGamePostHandler confirms a slot or queues the caller, depending on
// remaining capacity.
func JoinGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())

	result, err := gamepost.Join(id, profile.SubjectID, time.Now())
	if err != nil {
		switch err {
		case gamepost.ErrPostNotFound:
			writeError(w, http.StatusNotFound, "Post not found")
		case gamepost.ErrPostClosed:
			writeError(w, http.StatusConflict, "Post is no longer open")
		case gamepost.ErrAlreadyJoined, gamepost.ErrAlreadyWaiting:
			writeError(w, http.StatusConflict, err.Error())
		default:
			zap.S().Errorw("joining game post", "post", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to join post")
		}
		return
	}

	if result.Participant != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"joined":  true,
			"waiting": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"joined":         false,
		"waiting":        true,
		"waiting_id":     result.Waiting.ID,
		"waiting_status": result.Waiting.Status,
	})
}

// LeaveGamePostHandler frees the caller's slot and promotes the head of
// the waiting queue into it.
func LeaveGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())

	promoted, err := gamepost.Leave(id, profile.SubjectID, time.Now())
	if err != nil {
		switch err {
		case gamepost.ErrPostNotFound:
			writeError(w, http.StatusNotFound, "Post not found")
		case gamepost.ErrNotParticipant:
			writeError(w, http.StatusNotFound, "Not a participant of this post")
		case gamepost.ErrLeaderMustOwn:
			writeError(w, http.StatusConflict, "The leader cannot leave their own post")
		default:
			zap.S().Errorw("leaving game post", "post", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to leave post")
		}
		return
	}

	if promoted != nil {
		notifyPromotion(promoted, id, false)
	}

	writeMessage(w, http.StatusOK, "Left the post")
}

// ViewGamePostHandler bumps the view counter. Public, no session needed.
func ViewGamePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	if err := gamepost.IncrementView(id); err != nil {
		if err == gamepost.ErrPostNotFound {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		zap.S().Errorw("incrementing view count", "post", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record view")
		return
	}

	writeMessage(w, http.StatusOK, "View recorded")
}

// notifyPromotion records a notification receipt for a promoted waiting
// entry and pushes it live when the user is connected.
func notifyPromotion(entry *gamepost.WaitingParticipant, postID uint, reserve bool) {
	typ := notification.TypePromoted
	message := fmt.Sprintf("A slot opened up: you are now a confirmed participant of post %d", postID)
	if reserve {
		typ = notification.TypeReservePromoted
		message = fmt.Sprintf("You were added as a reserve player on post %d", postID)
	}

	n, err := notification.Dispatch(entry.SubjectID, typ, message, &postID)
	if err != nil {
		zap.S().Errorw("dispatching promotion notification", "subject", entry.SubjectID, "error", err)
		return
	}

	ws.GlobalHub.SendToUser(entry.SubjectID, "notification", map[string]interface{}{
		"id":           n.ID,
		"type":         n.Type,
		"message":      n.Message,
		"game_post_id": postID,
	})
}
