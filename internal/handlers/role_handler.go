package handlers

import (
	"encoding/json"
	"net/http"

	"gamemate-server/internal/user"

	"go.uber.org/zap"
)

// CreateRoleHandler creates a new role at one of the fixed tiers
func CreateRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req user.Role
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Role ID and name are required")
		return
	}
	if !req.Name.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown role tier")
		return
	}

	if _, exists := user.Roles.GetRole(req.ID); exists {
		writeError(w, http.StatusConflict, "Role already exists")
		return
	}

	if req.Permissions == nil {
		req.Permissions = []user.Permission{}
	}

	if err := user.Roles.CreateRole(&req); err != nil {
		zap.S().Errorw("creating role", "role", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create role")
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string            `json:"id"`
		Name        user.RoleName     `json:"name,omitempty"`
		Permissions []user.Permission `json:"permissions,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Role ID is required")
		return
	}

	existing, exists := user.Roles.GetRole(req.ID)
	if !exists {
		writeError(w, http.StatusNotFound, "Role not found")
		return
	}

	updated := &user.Role{
		ID:          req.ID,
		Name:        existing.Name,
		Permissions: existing.Permissions,
	}
	if req.Name != "" {
		if !req.Name.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown role tier")
			return
		}
		updated.Name = req.Name
	}
	if req.Permissions != nil {
		updated.Permissions = req.Permissions
	}

	if err := user.Roles.UpdateRole(updated); err != nil {
		zap.S().Errorw("updating role", "role", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func DeleteRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "Role ID is required")
		return
	}

	if err := user.Roles.DeleteRole(req.ID); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	writeMessage(w, http.StatusOK, "Role deleted")
}

// GetRolesHandler returns all roles sorted by rank
func GetRolesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, user.Roles.GetAllRoles())
}

// AssignRoleHandler points a profile at a different role
func AssignRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id"`
		RoleID    string `json:"role_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SubjectID == "" || req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "subject_id and role_id are required")
		return
	}

	if err := user.AssignRole(req.SubjectID, req.RoleID); err != nil {
		if err == user.ErrProfileNotFound {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeMessage(w, http.StatusOK, "Role assigned")
}

// CheckPermissionHandler answers capability questions for display logic.
// It guards what the UI shows, not what the server allows, so every
// failure degrades to false instead of surfacing an error.
func CheckPermissionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoleID         string `json:"roleId"`
		PermissionName string `json:"permissionName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"hasPermission": false})
		return
	}

	role, _ := user.Roles.GetRole(req.RoleID)
	allowed := user.HasPermission(role, user.Permission(req.PermissionName))

	writeJSON(w, http.StatusOK, map[string]bool{"hasPermission": allowed})
}
