// Package push keeps the registry of web-push subscriptions. Delivery over
// the push transport happens in an external worker; this server only
// answers "is this user subscribed" and stores/removes endpoints.
package push

import (
	"errors"

	"gamemate-server/internal/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subscription struct {
	gorm.Model
	SubscriptionID string `gorm:"uniqueIndex;not null"`
	SubjectID      string `gorm:"uniqueIndex;not null"`
	Endpoint       string `gorm:"not null"`
	P256dh         string
	Auth           string
	Enabled        bool `gorm:"default:true"`
}

// Subscribe stores or replaces the subscription for a user.
func Subscribe(subjectID, endpoint, p256dh, authKey string) (*Subscription, error) {
	sub := Subscription{
		SubscriptionID: uuid.NewString(),
		SubjectID:      subjectID,
		Endpoint:       endpoint,
		P256dh:         p256dh,
		Auth:           authKey,
		Enabled:        true,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("subject_id = ?", subjectID).Delete(&Subscription{}).Error; err != nil {
			return err
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Check reports whether a user has an enabled subscription. "No row" is a
// normal answer here, not a failure.
func Check(subjectID string) (bool, error) {
	var sub Subscription
	err := db.DB.Where("subject_id = ?", subjectID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.Enabled, nil
}

// Unsubscribe removes a user's subscription. Removing a missing
// subscription is not an error.
func Unsubscribe(subjectID string) error {
	return db.DB.Unscoped().Where("subject_id = ?", subjectID).Delete(&Subscription{}).Error
}
