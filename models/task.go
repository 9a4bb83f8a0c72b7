package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a to-do item worth XPWeight experience points once completed.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"size:36;index;not null" json:"user_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	XPWeight    int64      `gorm:"not null" json:"xp_weight"`
	Completed   bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	// AwardedXP is the amount granted at completion; later weight edits never touch it.
	AwardedXP int64      `gorm:"not null;default:0" json:"awarded_xp"`
	Due       *time.Time `json:"due"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
