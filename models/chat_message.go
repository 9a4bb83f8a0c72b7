package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one stored turn of the assistant conversation.
type ChatMessage struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"size:36;index;not null" json:"user_id"`
	Role        string         `gorm:"size:16;not null" json:"role"`
	Content     string         `gorm:"type:text" json:"content"`
	Suggestions datatypes.JSON `json:"suggestions,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
