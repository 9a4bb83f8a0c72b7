package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XP log reasons.
const (
	XPReasonTaskComplete = "task_complete"
	XPReasonMealLog      = "meal_log"
	XPReasonCorrection   = "correction"
)

// XPLog is one immutable entry of a user's XP ledger.
type XPLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:32;not null" json:"reason"`
	SourceID  string    `gorm:"size:36" json:"source_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (l *XPLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
