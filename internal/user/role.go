package user

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gamemate-server/internal/db"

	"go.uber.org/zap"
)

type Permission string

const (
	// Board permissions
	PermissionManageChannels Permission = "manage_channels"
	PermissionManagePosts    Permission = "manage_posts"
	PermissionManageNotices  Permission = "manage_notices"

	// User management permissions
	PermissionManageUsers Permission = "manage_users"
	PermissionManageRoles Permission = "manage_roles"

	// Admin surface
	PermissionAccessAdminPanel Permission = "access_admin_panel"
)

// RoleName is the closed role tier set. The order NONE < USER < ADMIN <
// SUPER_ADMIN is fixed; rank lookups never compare the strings themselves.
type RoleName string

const (
	RoleNone       RoleName = "NONE"
	RoleUser       RoleName = "USER"
	RoleAdmin      RoleName = "ADMIN"
	RoleSuperAdmin RoleName = "SUPER_ADMIN"
)

var roleRanks = map[RoleName]int{
	RoleNone:       0,
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Rank returns the position of a role name in the fixed ordering. Unknown
// names rank below NONE so they never satisfy a minimum-role check.
func (n RoleName) Rank() int {
	if rank, ok := roleRanks[n]; ok {
		return rank
	}
	return -1
}

func (n RoleName) Valid() bool {
	_, ok := roleRanks[n]
	return ok
}

type Role struct {
	ID          string       `json:"id"`
	Name        RoleName     `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// RoleManager handles role operations
type RoleManager struct {
	roles map[string]*Role
	mu    sync.RWMutex
}

var Roles = &RoleManager{
	roles: make(map[string]*Role),
}

// InitializeDefaultRoles sets up the default role tiers and persists any
// that are missing. Permission sets on USER/ADMIN can be edited later by a
// super admin; the tier names themselves are fixed.
func (rm *RoleManager) InitializeDefaultRoles() error {
	defaults := []*Role{
		{ID: "none", Name: RoleNone, Permissions: []Permission{}},
		{ID: "user", Name: RoleUser, Permissions: []Permission{}},
		{ID: "admin", Name: RoleAdmin, Permissions: []Permission{
			PermissionManageChannels, PermissionManagePosts, PermissionManageNotices,
			PermissionManageUsers, PermissionAccessAdminPanel,
		}},
		// Super admin passes every permission check unconditionally, the
		// stored set only matters for display.
		{ID: "super_admin", Name: RoleSuperAdmin, Permissions: []Permission{}},
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, role := range defaults {
		var count int64
		if err := db.DB.Model(&RoleModel{}).Where("id = ?", role.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := saveRoleModel(role); err != nil {
				return err
			}
		}
		rm.roles[role.ID] = role
	}

	return nil
}

// Reset drops every cached role. Callers are expected to reseed via
// InitializeDefaultRoles or LoadRolesFromDB afterwards.
func (rm *RoleManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.roles = make(map[string]*Role)
}

// GetRole retrieves a role by ID
func (rm *RoleManager) GetRole(id string) (*Role, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	role, exists := rm.roles[id]
	return role, exists
}

// GetAllRoles returns all roles sorted by rank, highest first
func (rm *RoleManager) GetAllRoles() []*Role {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	roles := make([]*Role, 0, len(rm.roles))
	for _, role := range rm.roles {
		roles = append(roles, role)
	}

	sort.Slice(roles, func(i, j int) bool {
		return roles[i].Name.Rank() > roles[j].Name.Rank()
	})

	return roles
}

func (rm *RoleManager) LoadRolesFromDB() {
	var roleModels []RoleModel
	if err := db.DB.Find(&roleModels).Error; err != nil {
		zap.S().Errorw("loading roles from database", "error", err)
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, roleModel := range roleModels {
		var permissions []Permission
		if err := json.Unmarshal([]byte(roleModel.Permissions), &permissions); err != nil {
			zap.S().Errorw("unmarshaling role permissions", "role", roleModel.ID, "error", err)
			continue
		}

		rm.roles[roleModel.ID] = &Role{
			ID:          roleModel.ID,
			Name:        RoleName(roleModel.Name),
			Permissions: permissions,
		}
	}

	zap.S().Infow("loaded roles from database", "count", len(roleModels))
}

func saveRoleModel(role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return err
	}

	roleModel := RoleModel{
		ID:          role.ID,
		Name:        string(role.Name),
		Rank:        role.Name.Rank(),
		Permissions: string(permissionsJSON),
	}

	return db.DB.Save(&roleModel).Error
}

func (rm *RoleManager) CreateRole(role *Role) error {
	if !role.Name.Valid() {
		return fmt.Errorf("unknown role tier %q", role.Name)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.roles[role.ID]; exists {
		return fmt.Errorf("role already exists")
	}

	if err := saveRoleModel(role); err != nil {
		return err
	}
	rm.roles[role.ID] = role
	return nil
}

func (rm *RoleManager) UpdateRole(role *Role) error {
	if !role.Name.Valid() {
		return fmt.Errorf("unknown role tier %q", role.Name)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.roles[role.ID]; !exists {
		return fmt.Errorf("role not found")
	}

	if err := saveRoleModel(role); err != nil {
		return err
	}
	rm.roles[role.ID] = role
	return nil
}

func (rm *RoleManager) DeleteRole(id string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// The default tiers are load-bearing and cannot be removed
	switch id {
	case "none", "user", "admin", "super_admin":
		return fmt.Errorf("cannot delete default role")
	}

	if _, exists := rm.roles[id]; !exists {
		return fmt.Errorf("role not found")
	}

	delete(rm.roles, id)
	return db.DB.Delete(&RoleModel{}, "id = ?", id).Error
}
