package notice

import (
	"errors"

	"gamemate-server/internal/db"

	"gorm.io/gorm"
)

var ErrNoticeNotFound = errors.New("notice not found")

// Notice is an administrative announcement shown on the board.
type Notice struct {
	gorm.Model
	Title    string `gorm:"size:255;not null"`
	Body     string
	AuthorID string `gorm:"not null"`
	Pinned   bool   `gorm:"default:false;index"`
}

// List returns notices, pinned first, newest within each group.
func List(limit, offset int) ([]Notice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var notices []Notice
	err := db.DB.Order("pinned DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notices).Error
	return notices, err
}

func Get(id uint) (*Notice, error) {
	var n Notice
	if err := db.DB.First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoticeNotFound
		}
		return nil, err
	}
	return &n, nil
}

func Create(title, body, authorID string, pinned bool) (*Notice, error) {
	n := Notice{Title: title, Body: body, AuthorID: authorID, Pinned: pinned}
	if err := db.DB.Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func Update(id uint, title, body *string, pinned *bool) (*Notice, error) {
	n, err := Get(id)
	if err != nil {
		return nil, err
	}

	if title != nil && *title != "" {
		n.Title = *title
	}
	if body != nil {
		n.Body = *body
	}
	if pinned != nil {
		n.Pinned = *pinned
	}

	if err := db.DB.Save(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func Delete(id uint) error {
	result := db.DB.Delete(&Notice{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoticeNotFound
	}
	return nil
}
