package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meal types.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// ValidMealType reports whether s is one of the known meal types.
func ValidMealType(s string) bool {
	switch s {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// Meal is a logged consumption of Quantity servings of a food.
type Meal struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index:idx_meals_user_logged;not null" json:"user_id"`
	FoodID    string    `gorm:"size:36;index;not null" json:"food_id"`
	Food      *Food     `gorm:"foreignKey:FoodID" json:"food,omitempty"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
	MealType  string    `gorm:"size:16;not null" json:"meal_type"`
	LoggedAt  time.Time `gorm:"index:idx_meals_user_logged;not null" json:"logged_at"`
	Notes     string    `gorm:"size:1024" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
