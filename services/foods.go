package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/questfuel/api/models"
)

const (
	defaultServingSize = "100g"
	foodSearchLimit    = 20
)

// FoodService manages the food catalogue: public entries plus each user's own foods.
type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService {
	return &FoodService{db: db}
}

// FoodInput describes a food per serving.
type FoodInput struct {
	Name        string
	Barcode     string
	ServingSize string
	IsPublic    bool
	models.Nutrients
}

func (s *FoodService) Create(ctx context.Context, userID string, in FoodInput) (*models.Food, error) {
	var food *models.Food
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		food, err = createFoodTx(tx, userID, in)
		return err
	})
	return food, err
}

// List returns foods visible to the user, public first then by name.
func (s *FoodService) List(ctx context.Context, userID string, page, pageSize int) ([]models.Food, int64, error) {
	page, pageSize = clampPage(page, pageSize, 100)
	q := visibleFoods(s.db.WithContext(ctx).Model(&models.Food{}), userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var foods []models.Food
	if err := q.Order("is_public DESC").Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&foods).Error; err != nil {
		return nil, 0, err
	}
	return foods, total, nil
}

// Search matches names case-insensitively among visible foods.
func (s *FoodService) Search(ctx context.Context, userID, query string) ([]models.Food, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var foods []models.Food
	err := visibleFoods(s.db.WithContext(ctx), userID).
		Where("LOWER(name) LIKE ? ESCAPE '!'", pattern).
		Order("name ASC").
		Limit(foodSearchLimit).
		Find(&foods).Error
	if err != nil {
		return nil, err
	}
	return foods, nil
}

func (s *FoodService) ByBarcode(ctx context.Context, userID, barcode string) (*models.Food, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode is required", ErrInvalidInput)
	}
	var food models.Food
	if err := s.db.WithContext(ctx).First(&food, "barcode = ?", barcode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: barcode %s", ErrNotFound, barcode)
		}
		return nil, err
	}
	if !food.VisibleTo(userID) {
		return nil, fmt.Errorf("%w: food %s", ErrForbidden, food.ID)
	}
	return &food, nil
}

func (s *FoodService) Get(ctx context.Context, userID, foodID string) (*models.Food, error) {
	return loadVisibleFood(s.db.WithContext(ctx), userID, foodID)
}

func createFoodTx(tx *gorm.DB, userID string, in FoodInput) (*models.Food, error) {
	name := cleanText(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: food name is required", ErrInvalidInput)
	}
	n := in.Nutrients
	if anyNegative(n.Kcal, n.Protein, n.Carbs, n.Fat, n.Fiber, n.Sugar, n.Sodium) {
		return nil, fmt.Errorf("%w: nutrients must be non-negative", ErrInvalidInput)
	}
	serving := cleanText(in.ServingSize)
	if serving == "" {
		serving = defaultServingSize
	}

	owner := userID
	food := &models.Food{
		OwnerID:     &owner,
		Name:        name,
		Slug:        slug.Make(name),
		Kcal:        n.Kcal,
		Protein:     n.Protein,
		Carbs:       n.Carbs,
		Fat:         n.Fat,
		Fiber:       n.Fiber,
		Sugar:       n.Sugar,
		Sodium:      n.Sodium,
		ServingSize: serving,
		IsPublic:    in.IsPublic,
	}
	if code := strings.TrimSpace(in.Barcode); code != "" {
		var count int64
		if err := tx.Model(&models.Food{}).Where("barcode = ?", code).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: barcode %s already registered", ErrInvalidInput, code)
		}
		food.Barcode = &code
	}
	if err := tx.Create(food).Error; err != nil {
		return nil, err
	}
	return food, nil
}

// findOrCreateOwnedFood reuses the user's own food with the same slug and serving size.
func findOrCreateOwnedFood(tx *gorm.DB, userID string, in FoodInput) (*models.Food, error) {
	serving := cleanText(in.ServingSize)
	if serving == "" {
		serving = defaultServingSize
	}
	var existing models.Food
	err := tx.Where("owner_id = ? AND slug = ? AND serving_size = ?", userID, slug.Make(cleanText(in.Name)), serving).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	in.ServingSize = serving
	return createFoodTx(tx, userID, in)
}

// loadVisibleFood returns ErrNotFound for a missing food and ErrForbidden for another user's private food.
func loadVisibleFood(db *gorm.DB, userID, foodID string) (*models.Food, error) {
	var food models.Food
	if err := db.First(&food, "id = ?", foodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: food %s", ErrNotFound, foodID)
		}
		return nil, err
	}
	if !food.VisibleTo(userID) {
		return nil, fmt.Errorf("%w: food %s", ErrForbidden, foodID)
	}
	return &food, nil
}

func visibleFoods(db *gorm.DB, userID string) *gorm.DB {
	return db.Where("(is_public = ? OR owner_id IS NULL OR owner_id = ?)", true, userID)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
