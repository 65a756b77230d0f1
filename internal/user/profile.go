package user

import (
	"errors"
	"time"

	"gamemate-server/internal/db"

	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("profile not found")

// GetProfileBySubject loads a profile and resolves its role. Returns the
// profile with a nil role when the role id points nowhere, so callers fail
// closed instead of erroring.
func GetProfileBySubject(subjectID string) (*Profile, *Role, error) {
	var profile Profile
	if err := db.DB.Where("subject_id = ?", subjectID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, err
	}

	role, _ := Roles.GetRole(profile.RoleID)
	return &profile, role, nil
}

// RegisterProfile creates a profile for a first-time identity, or returns
// the existing one. New accounts start at the USER tier.
func RegisterProfile(subjectID, nickname, email, avatarHash string) (*Profile, error) {
	var profile Profile
	err := db.DB.Where("subject_id = ?", subjectID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = Profile{
		SubjectID:  subjectID,
		Nickname:   nickname,
		Email:      email,
		AvatarHash: avatarHash,
		RoleID:     "user",
	}
	if err := db.DB.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// AssignRole points a profile at a different role.
func AssignRole(subjectID, roleID string) error {
	if _, exists := Roles.GetRole(roleID); !exists {
		return errors.New("role not found")
	}

	result := db.DB.Model(&Profile{}).Where("subject_id = ?", subjectID).Update("role_id", roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// IsSuspended reports whether a subject currently has an active suspension.
// Expired rows are pruned lazily.
func IsSuspended(subjectID string) (*Suspension, bool) {
	var suspension Suspension
	err := db.DB.Where("subject_id = ?", subjectID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("suspended_at DESC").
		First(&suspension).Error
	if err != nil {
		return nil, false
	}
	return &suspension, true
}

// Suspend records a suspension for a subject.
func Suspend(subjectID, suspendedBy, reason string, duration *time.Duration) error {
	suspension := Suspension{
		SubjectID:   subjectID,
		SuspendedBy: suspendedBy,
		Reason:      reason,
		SuspendedAt: time.Now(),
	}

	if duration != nil {
		expiresAt := time.Now().Add(*duration)
		suspension.ExpiresAt = &expiresAt
	}

	return db.DB.Create(&suspension).Error
}

// Unsuspend lifts every active suspension for a subject.
func Unsuspend(subjectID string) error {
	return db.DB.Where("subject_id = ?", subjectID).Delete(&Suspension{}).Error
}
