package channel

import (
	"errors"

	"gamemate-server/internal/db"

	"gorm.io/gorm"
)

var ErrChannelNotFound = errors.New("channel not found")

// Channel is a board section game posts are filed under. Position drives
// the display order and is managed as a dense sequence per board.
type Channel struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
	Position    int `gorm:"not null;default:0"`
}

// List returns all channels in display order.
func List() ([]Channel, error) {
	var channels []Channel
	err := db.DB.Order("position ASC, id ASC").Find(&channels).Error
	return channels, err
}

// Create appends a channel at the end of the ordering unless a position is
// given.
func Create(name, description string, position *int) (*Channel, error) {
	ch := Channel{Name: name, Description: description}

	if position != nil {
		ch.Position = *position
	} else {
		var maxPosition int
		db.DB.Model(&Channel{}).Select("COALESCE(MAX(position), -1) + 1").Scan(&maxPosition)
		ch.Position = maxPosition
	}

	if err := db.DB.Create(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// Update edits name/description.
func Update(id uint, name, description *string) (*Channel, error) {
	var ch Channel
	if err := db.DB.First(&ch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	if name != nil && *name != "" {
		ch.Name = *name
	}
	if description != nil {
		ch.Description = *description
	}

	if err := db.DB.Save(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// Delete removes a channel. Posts keep their channel id; readers treat a
// dangling id as uncategorized.
func Delete(id uint) error {
	result := db.DB.Delete(&Channel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// OrderEntry is one (channel, position) pair of a reorder request.
type OrderEntry struct {
	ID    uint `json:"id"`
	Order int  `json:"order"`
}

// Reorder applies a batch of position updates in one transaction. Either
// every listed channel moves or none does; unknown ids abort the batch.
func Reorder(entries []OrderEntry) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			result := tx.Model(&Channel{}).
				Where("id = ?", entry.ID).
				Update("position", entry.Order)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrChannelNotFound
			}
		}
		return nil
	})
}
