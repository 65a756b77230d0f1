package notification

import (
	"errors"
	"time"

	"gamemate-server/internal/db"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypePromoted        Type = "waiting_promoted"
	TypeReservePromoted Type = "reserve_promoted"
	TypePostCompleted   Type = "post_completed"
	TypeNotice          Type = "notice"
)

// Notification is a per-user receipt. Rows are only ever created and
// flipped to read, never physically deleted.
type Notification struct {
	gorm.Model
	RecipientID string `gorm:"not null;index"`
	Type        Type   `gorm:"size:32;index"`
	Message     string
	GamePostID  *uint `gorm:"index"`
	IsRead      bool  `gorm:"default:false;index"`
	ReadAt      *time.Time
}

// Dispatch records a notification for a user.
func Dispatch(recipientID string, typ Type, message string, gamePostID *uint) (*Notification, error) {
	n := Notification{
		RecipientID: recipientID,
		Type:        typ,
		Message:     message,
		GamePostID:  gamePostID,
	}
	if err := db.DB.Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForUser returns a page of a user's notifications, newest first.
func ListForUser(recipientID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := db.DB.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []Notification
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead flips one of the caller's notifications to read.
func MarkRead(recipientID string, id uint) error {
	var n Notification
	if err := db.DB.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	return db.DB.Save(&n).Error
}

// MarkAllRead flips every unread notification for a user.
func MarkAllRead(recipientID string) error {
	now := time.Now()
	return db.DB.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		}).Error
}

// UnreadCount returns how many unread notifications a user has.
func UnreadCount(recipientID string) (int64, error) {
	var count int64
	err := db.DB.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
