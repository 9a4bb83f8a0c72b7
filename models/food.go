package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Nutrients holds the seven tracked nutrient dimensions.
type Nutrients struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
	Fiber   float64 `json:"fiber"`
	Sugar   float64 `json:"sugar"`
	Sodium  float64 `json:"sodium"`
}

// Add returns the element-wise sum.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Kcal:    n.Kcal + o.Kcal,
		Protein: n.Protein + o.Protein,
		Carbs:   n.Carbs + o.Carbs,
		Fat:     n.Fat + o.Fat,
		Fiber:   n.Fiber + o.Fiber,
		Sugar:   n.Sugar + o.Sugar,
		Sodium:  n.Sodium + o.Sodium,
	}
}

// Scale multiplies every dimension by q.
func (n Nutrients) Scale(q float64) Nutrients {
	return Nutrients{
		Kcal:    n.Kcal * q,
		Protein: n.Protein * q,
		Carbs:   n.Carbs * q,
		Fat:     n.Fat * q,
		Fiber:   n.Fiber * q,
		Sugar:   n.Sugar * q,
		Sodium:  n.Sodium * q,
	}
}

// Food is a nutrient profile per serving. Foods without an owner are public catalogue entries.
type Food struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     *string   `gorm:"size:36;index" json:"owner_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Slug        string    `gorm:"size:255;index" json:"slug"`
	Barcode     *string   `gorm:"size:64;uniqueIndex" json:"barcode"`
	Kcal        float64   `gorm:"not null;default:0" json:"kcal"`
	Protein     float64   `gorm:"not null;default:0" json:"protein"`
	Carbs       float64   `gorm:"not null;default:0" json:"carbs"`
	Fat         float64   `gorm:"not null;default:0" json:"fat"`
	Fiber       float64   `gorm:"not null;default:0" json:"fiber"`
	Sugar       float64   `gorm:"not null;default:0" json:"sugar"`
	Sodium      float64   `gorm:"not null;default:0" json:"sodium"`
	ServingSize string    `gorm:"size:64" json:"serving_size"`
	IsPublic    bool      `gorm:"not null;default:false;index" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f *Food) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Nutrients returns the per-serving profile.
func (f Food) Nutrients() Nutrients {
	return Nutrients{
		Kcal:    f.Kcal,
		Protein: f.Protein,
		Carbs:   f.Carbs,
		Fat:     f.Fat,
		Fiber:   f.Fiber,
		Sugar:   f.Sugar,
		Sodium:  f.Sodium,
	}
}

// VisibleTo reports whether userID may read the food.
func (f Food) VisibleTo(userID string) bool {
	return f.IsPublic || f.OwnerID == nil || *f.OwnerID == userID
}
