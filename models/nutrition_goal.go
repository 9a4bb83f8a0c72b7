package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default daily targets for a freshly created goal.
const (
	DefaultTargetKcal    = 2000
	DefaultTargetProtein = 150
	DefaultTargetCarbs   = 250
	DefaultTargetFat     = 65
	DefaultTargetFiber   = 25
)

// NutritionGoal holds a user's daily targets. At most one row per user.
type NutritionGoal struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;uniqueIndex;not null" json:"user_id"`
	TargetKcal    float64   `gorm:"not null" json:"target_kcal"`
	TargetProtein float64   `gorm:"not null" json:"target_protein"`
	TargetCarbs   float64   `gorm:"not null" json:"target_carbs"`
	TargetFat     float64   `gorm:"not null" json:"target_fat"`
	TargetFiber   float64   `gorm:"not null" json:"target_fiber"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (g *NutritionGoal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// DefaultNutritionGoal returns the goal used when a user has none yet.
func DefaultNutritionGoal(userID string) NutritionGoal {
	return NutritionGoal{
		UserID:        userID,
		TargetKcal:    DefaultTargetKcal,
		TargetProtein: DefaultTargetProtein,
		TargetCarbs:   DefaultTargetCarbs,
		TargetFat:     DefaultTargetFat,
		TargetFiber:   DefaultTargetFiber,
	}
}
