package user

import (
	"time"

	"gorm.io/gorm"
)

// RoleModel represents the database model for roles
type RoleModel struct {
	gorm.Model
	ID          string `gorm:"primaryKey"`
	Name        string
	Rank        int
	Permissions string // JSON string of permissions
}

// Profile is the local account anchored to an external auth subject. One
// row per identity; the role reference is joined on every authorization
// check.
type Profile struct {
	gorm.Model
	SubjectID  string `gorm:"uniqueIndex;not null"` // external auth subject id
	Nickname   string
	Email      string
	AvatarHash string
	RoleID     string `gorm:"not null;default:'user'"`
}

// Suspension blocks an account from authenticated access while active.
type Suspension struct {
	ID          uint      `gorm:"primaryKey"`
	SubjectID   string    `gorm:"not null;index"`
	SuspendedBy string    `gorm:"not null"`
	Reason      string    `gorm:"default:''"`
	SuspendedAt time.Time `gorm:"not null"`
	ExpiresAt   *time.Time // nil for permanent suspensions
}
