package handlers

import (
	"encoding/json"
	"net/http"

	"gamemate-server/internal/auth"
	"gamemate-server/internal/config"
	"gamemate-server/internal/db"
	"gamemate-server/internal/middleware"
	"gamemate-server/internal/user"
	"gamemate-server/internal/util"
	"gamemate-server/internal/ws"

	"go.uber.org/zap"
)

type ProfileResponse struct {
	SubjectID  string     `json:"subject_id"`
	Nickname   string     `json:"nickname"`
	Email      string     `json:"email,omitempty"`
	AvatarHash string     `json:"avatar_hash,omitempty"`
	RoleID     string     `json:"role_id"`
	Role       *user.Role `json:"role,omitempty"`
	IsOnline   bool       `json:"is_online"`
}

func toProfileResponse(profile *user.Profile, role *user.Role) ProfileResponse {
	return ProfileResponse{
		SubjectID:  profile.SubjectID,
		Nickname:   profile.Nickname,
		Email:      profile.Email,
		AvatarHash: profile.AvatarHash,
		RoleID:     profile.RoleID,
		Role:       role,
		IsOnline:   ws.GlobalHub.IsUserOnline(profile.SubjectID),
	}
}

// RegisterHandler creates the local profile for a first-time identity.
// The token is already validated; registering twice returns the existing
// profile.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req struct {
		Nickname string `json:"nickname"`
	}
	// Body is optional, the identity's display name is the fallback
	json.NewDecoder(r.Body).Decode(&req)

	nickname := req.Nickname
	if nickname == "" {
		nickname = identity.Name
	}
	if nickname == "" {
		nickname = identity.ID
	}

	profile, err := user.RegisterProfile(identity.ID, nickname, identity.Email, "")
	if err != nil {
		zap.S().Errorw("registering profile", "subject", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to register profile")
		return
	}

	role, _ := user.Roles.GetRole(profile.RoleID)
	writeJSON(w, http.StatusOK, toProfileResponse(profile, role))
}

// MeHandler returns the caller's own profile with its resolved role.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	writeJSON(w, http.StatusOK, toProfileResponse(profile, role))
}

// UpdateNicknameHandler lets users rename themselves; manage_users also
// covers renaming others.
func UpdateNicknameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id,omitempty"`
		Nickname  string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "Nickname cannot be empty")
		return
	}

	profile := middleware.ProfileFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	target := req.SubjectID
	if target == "" {
		target = profile.SubjectID
	}
	if target != profile.SubjectID && !user.HasPermission(role, user.PermissionManageUsers) {
		writeError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	result := db.DB.Model(&user.Profile{}).
		Where("subject_id = ?", target).
		Update("nickname", req.Nickname)
	if result.Error != nil {
		zap.S().Errorw("updating nickname", "subject", target, "error", result.Error)
		writeError(w, http.StatusInternalServerError, "Failed to update nickname")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}

	writeMessage(w, http.StatusOK, "Nickname updated")
}

// UploadAvatarHandler stores the caller's avatar, re-encoded to webp.
func UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, config.Conf.MaxFileSize)
	if err := r.ParseMultipartForm(config.Conf.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "Upload too large or malformed")
		return
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	hash, err := util.SaveAvatar(profile.SubjectID, file)
	if err != nil {
		zap.S().Errorw("saving avatar", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusBadRequest, "Could not process image")
		return
	}

	if err := db.DB.Model(&user.Profile{}).
		Where("subject_id = ?", profile.SubjectID).
		Update("avatar_hash", hash).Error; err != nil {
		zap.S().Errorw("updating avatar hash", "subject", profile.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar_hash": hash})
}
