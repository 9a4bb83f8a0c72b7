package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/questfuel/api/models"
)

// AcceptResult lists what accepting a suggestion wrote to the journal.
type AcceptResult struct {
	Foods []models.Food `json:"foods"`
	Meals []*LoggedMeal `json:"meals"`
}

// AcceptSuggestion turns a suggestion into owned foods and logged meals in one transaction.
// A food suggestion becomes one food plus a one-serving meal. A meal suggestion becomes one
// food per ingredient, sized to the ingredient amount, each logged as one serving.
// mealType overrides the suggestion's own meal type when set.
func (s *NutritionService) AcceptSuggestion(ctx context.Context, userID string, sg Suggestion, mealType string) (*AcceptResult, error) {
	out := &AcceptResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch sg.Type {
		case SuggestionFood:
			f, ok := sg.Food()
			if !ok {
				return fmt.Errorf("%w: food suggestion without payload", ErrInvalidInput)
			}
			return s.acceptFood(tx, userID, f, pickMealType(mealType, f.MealType), out)
		case SuggestionMeal:
			m, ok := sg.Meal()
			if !ok {
				return fmt.Errorf("%w: meal suggestion without payload", ErrInvalidInput)
			}
			return s.acceptMeal(tx, userID, m, pickMealType(mealType, m.MealType), out)
		default:
			return fmt.Errorf("%w: unknown suggestion type %q", ErrInvalidInput, sg.Type)
		}
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return out, nil
}

func (s *NutritionService) acceptFood(tx *gorm.DB, userID string, f *FoodSuggestion, mealType string, out *AcceptResult) error {
	serving := f.ServingSize
	if serving == "" {
		serving = "1 serving"
	}
	food, err := findOrCreateOwnedFood(tx, userID, FoodInput{
		Name:        f.Name,
		ServingSize: serving,
		Nutrients: models.Nutrients{
			Kcal:    f.Calories,
			Protein: f.Protein,
			Carbs:   f.Carbs,
			Fat:     f.Fat,
			Fiber:   f.Fiber,
			Sugar:   f.Sugar,
			Sodium:  f.Sodium,
		},
	})
	if err != nil {
		return err
	}
	note := f.Description
	if note == "" {
		note = f.Name
	}
	logged, err := s.logMealTx(tx, userID, MealInput{
		FoodID:   food.ID,
		Quantity: 1,
		MealType: mealType,
		Notes:    "Added via assistant suggestion: " + note,
	})
	if err != nil {
		return err
	}
	out.Foods = append(out.Foods, *food)
	out.Meals = append(out.Meals, logged)
	return nil
}

func (s *NutritionService) acceptMeal(tx *gorm.DB, userID string, m *MealSuggestion, mealType string, out *AcceptResult) error {
	for _, ing := range m.Ingredients {
		food, err := findOrCreateOwnedFood(tx, userID, FoodInput{
			Name:        ing.Name,
			ServingSize: ingredientServing(ing),
			Nutrients: models.Nutrients{
				Kcal:    ing.Calories,
				Protein: ing.Protein,
				Carbs:   ing.Carbs,
				Fat:     ing.Fat,
			},
		})
		if err != nil {
			return err
		}
		logged, err := s.logMealTx(tx, userID, MealInput{
			FoodID:   food.ID,
			Quantity: 1,
			MealType: mealType,
			Notes:    "Part of " + m.Name,
		})
		if err != nil {
			return err
		}
		out.Foods = append(out.Foods, *food)
		out.Meals = append(out.Meals, logged)
	}
	return nil
}

func ingredientServing(ing Ingredient) string {
	if ing.Quantity <= 0 {
		return defaultServingSize
	}
	unit := strings.TrimSpace(ing.Unit)
	if unit == "" {
		unit = "g"
	}
	return strconv.FormatFloat(ing.Quantity, 'f', -1, 64) + unit
}

func pickMealType(override, suggested string) string {
	if override != "" {
		return override
	}
	if suggested != "" {
		return suggested
	}
	return models.MealTypeSnack
}
