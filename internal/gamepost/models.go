package gamepost

import (
	"time"

	"gorm.io/gorm"
)

type PostStatus string

const (
	StatusOpen      PostStatus = "OPEN"
	StatusFull      PostStatus = "FULL"
	StatusCompleted PostStatus = "COMPLETED"
	StatusDeleted   PostStatus = "DELETED" // soft delete, rows are never removed
)

type WaitingStatus string

const (
	WaitingQueued     WaitingStatus = "WAITING"
	WaitingTimeQueued WaitingStatus = "TIME_WAITING"
	WaitingPromoted   WaitingStatus = "PROMOTED"
	WaitingCanceled   WaitingStatus = "CANCELED"
)

// Terminal reports whether a waiting status admits no further transition.
func (s WaitingStatus) Terminal() bool {
	return s == WaitingPromoted || s == WaitingCanceled
}

// GamePost is a hosted game session with a player capacity. The post owns
// its participant and waiting collections; deleting a post cascades.
type GamePost struct {
	gorm.Model
	Title       string `gorm:"size:255;not null"`
	Description string
	AuthorID    string `gorm:"not null;index"` // profile subject id
	ChannelID   uint   `gorm:"index"`
	MaxPlayers  int    `gorm:"not null;default:5"`
	Status      PostStatus `gorm:"type:varchar(16);default:'OPEN';index"`
	StartsAt    *time.Time
	ViewCount   int64 `gorm:"default:0"`

	Participants []Participant        `gorm:"constraint:OnDelete:CASCADE;"`
	Waiting      []WaitingParticipant `gorm:"constraint:OnDelete:CASCADE;"`
}

// Deleted reports whether the post has been soft-deleted.
func (p *GamePost) Deleted() bool {
	return p.Status == StatusDeleted
}

// Participant is a confirmed occupant of a post. Reserve participants are
// backup players and do not count against MaxPlayers.
type Participant struct {
	gorm.Model
	GamePostID uint   `gorm:"not null;index"`
	SubjectID  string `gorm:"not null;index"`
	IsLeader   bool   `gorm:"default:false"`
	IsReserve  bool   `gorm:"default:false"`
	JoinedAt   time.Time
}

// WaitingParticipant is a queued request for a slot that was not available
// at join time. At most one non-terminal entry exists per (user, post);
// promotion order is creation order.
type WaitingParticipant struct {
	gorm.Model
	GamePostID uint          `gorm:"not null;index"`
	SubjectID  string        `gorm:"not null;index"`
	Status     WaitingStatus `gorm:"type:varchar(16);default:'WAITING';index"`
}
