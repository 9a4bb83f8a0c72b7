package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/questfuel/api/models"
)

// NutritionOptions tunes NutritionService.
type NutritionOptions struct {
	MealLogXP         int64
	MonthlyWindowDays int
	CacheTTL          time.Duration
}

// NutritionService logs meals, keeps goals and serves the derived nutrition views.
type NutritionService struct {
	db     *gorm.DB
	ledger *XPLedger
	cache  Cache
	opts   NutritionOptions
	now    func() time.Time
}

func NewNutritionService(db *gorm.DB, ledger *XPLedger, cache Cache, opts NutritionOptions) *NutritionService {
	if opts.MonthlyWindowDays <= 0 {
		opts.MonthlyWindowDays = 30
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &NutritionService{
		db:     db,
		ledger: ledger,
		cache:  orNoop(cache),
		opts:   opts,
		now:    time.Now,
	}
}

// MealInput logs Quantity servings of a food.
type MealInput struct {
	FoodID   string
	Quantity float64
	MealType string
	Notes    string
	LoggedAt *time.Time
}

// LoggedMeal is a created meal and the XP it earned.
type LoggedMeal struct {
	Meal  *models.Meal  `json:"meal"`
	Award *models.XPLog `json:"award,omitempty"`
}

// DaySummary is one day's meals, totals and goal progress.
type DaySummary struct {
	Date     string               `json:"date"`
	Meals    []models.Meal        `json:"meals"`
	Totals   models.Nutrients     `json:"totals"`
	Goal     models.NutritionGoal `json:"goal"`
	Progress GoalProgress         `json:"progress"`
}

// MonthlyData is the trailing window grouped per day.
type MonthlyData struct {
	From            string               `json:"from"`
	To              string               `json:"to"`
	Days            []DayTotals          `json:"days"`
	DaysWithData    int                  `json:"days_with_data"`
	Averages        models.Nutrients     `json:"averages"`
	Goal            models.NutritionGoal `json:"goal"`
	AverageProgress GoalProgress         `json:"average_progress"`
}

// GoalUpdate is a partial update of the daily targets.
type GoalUpdate struct {
	TargetKcal    *float64
	TargetProtein *float64
	TargetCarbs   *float64
	TargetFat     *float64
	TargetFiber   *float64
}

// LogMeal records a meal and awards the meal XP in the same transaction.
func (s *NutritionService) LogMeal(ctx context.Context, userID string, in MealInput) (*LoggedMeal, error) {
	var out *LoggedMeal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.logMealTx(tx, userID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return out, nil
}

func (s *NutritionService) logMealTx(tx *gorm.DB, userID string, in MealInput) (*LoggedMeal, error) {
	if in.Quantity < 0 || math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) {
		return nil, fmt.Errorf("%w: quantity must be a non-negative number", ErrInvalidInput)
	}
	mealType := in.MealType
	if mealType == "" {
		mealType = models.MealTypeSnack
	}
	if !models.ValidMealType(mealType) {
		return nil, fmt.Errorf("%w: unknown meal type %q", ErrInvalidInput, mealType)
	}
	food, err := loadVisibleFood(tx, userID, in.FoodID)
	if err != nil {
		return nil, err
	}

	loggedAt := s.now().UTC()
	if in.LoggedAt != nil {
		loggedAt = in.LoggedAt.UTC()
	}
	meal := &models.Meal{
		UserID:   userID,
		FoodID:   food.ID,
		Quantity: in.Quantity,
		MealType: mealType,
		LoggedAt: loggedAt,
		Notes:    cleanText(in.Notes),
	}
	if err := tx.Create(meal).Error; err != nil {
		return nil, err
	}
	meal.Food = food

	out := &LoggedMeal{Meal: meal}
	if s.opts.MealLogXP != 0 {
		award, err := awardTx(tx, userID, s.opts.MealLogXP, models.XPReasonMealLog, meal.ID)
		if err != nil {
			return nil, err
		}
		out.Award = award
	}
	return out, nil
}

// DeleteMeal removes a meal. Its XP stays in the ledger.
func (s *NutritionService) DeleteMeal(ctx context.Context, userID, mealID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal models.Meal
		if err := tx.First(&meal, "id = ?", mealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: meal %s", ErrNotFound, mealID)
			}
			return err
		}
		if meal.UserID != userID {
			return fmt.Errorf("%w: meal %s", ErrForbidden, mealID)
		}
		return tx.Delete(&models.Meal{}, "id = ?", meal.ID).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// MealsBetween returns the user's meals in [from, to) with foods loaded, newest first.
func (s *NutritionService) MealsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.Meal, error) {
	var meals []models.Meal
	err := s.db.WithContext(ctx).
		Preload("Food").
		Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).
		Order("logged_at DESC").
		Find(&meals).Error
	if err != nil {
		return nil, err
	}
	return meals, nil
}

// DaySummary builds the summary for a "2006-01-02" UTC day; an empty day means today.
func (s *NutritionService) DaySummary(ctx context.Context, userID, day string) (*DaySummary, error) {
	if day == "" {
		day = DayKey(s.now())
	}
	from, to, err := DayBounds(day)
	if err != nil {
		return nil, err
	}
	meals, err := s.MealsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	totals, err := DailyTotals(meals)
	if err != nil {
		return nil, err
	}
	goal, err := s.Goal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DaySummary{
		Date:     day,
		Meals:    meals,
		Totals:   totals,
		Goal:     *goal,
		Progress: Progress(totals, *goal),
	}, nil
}

// Monthly returns the trailing window of days ending today, grouped per UTC day.
func (s *NutritionService) Monthly(ctx context.Context, userID string) (*MonthlyData, error) {
	today := DayKey(s.now())
	key := monthlyCachePrefix + userID + ":" + today
	var cached MonthlyData
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	_, end, err := DayBounds(today)
	if err != nil {
		return nil, err
	}
	start := end.AddDate(0, 0, -s.opts.MonthlyWindowDays)

	meals, err := s.MealsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	days, err := RangeTotals(meals)
	if err != nil {
		return nil, err
	}
	goal, err := s.Goal(ctx, userID)
	if err != nil {
		return nil, err
	}

	avg := AverageOverDaysWithData(days)
	out := &MonthlyData{
		From:            DayKey(start),
		To:              today,
		Days:            days,
		DaysWithData:    len(days),
		Averages:        avg,
		Goal:            *goal,
		AverageProgress: Progress(avg, *goal),
	}
	s.cache.SetJSON(ctx, key, out, s.opts.CacheTTL)
	return out, nil
}

// Goal returns the user's goal, creating it with defaults on first access.
func (s *NutritionService) Goal(ctx context.Context, userID string) (*models.NutritionGoal, error) {
	db := s.db.WithContext(ctx)
	var goal models.NutritionGoal
	err := db.First(&goal, "user_id = ?", userID).Error
	if err == nil {
		return &goal, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	goal = models.DefaultNutritionGoal(userID)
	// a concurrent first access may have inserted it already
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&goal).Error; err != nil {
		return nil, err
	}
	var stored models.NutritionGoal
	if err := db.First(&stored, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateGoal applies the provided targets, creating the goal first when missing.
func (s *NutritionService) UpdateGoal(ctx context.Context, userID string, in GoalUpdate) (*models.NutritionGoal, error) {
	updates := map[string]interface{}{}
	set := func(col string, v *float64) error {
		if v == nil {
			return nil
		}
		if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidInput, col)
		}
		updates[col] = *v
		return nil
	}
	for _, f := range []struct {
		col string
		v   *float64
	}{
		{"target_kcal", in.TargetKcal},
		{"target_protein", in.TargetProtein},
		{"target_carbs", in.TargetCarbs},
		{"target_fat", in.TargetFat},
		{"target_fiber", in.TargetFiber},
	} {
		if err := set(f.col, f.v); err != nil {
			return nil, err
		}
	}

	goal, err := s.Goal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(goal).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).First(goal, "id = ?", goal.ID).Error; err != nil {
			return nil, err
		}
		s.invalidate(ctx, userID)
	}
	return goal, nil
}

func (s *NutritionService) invalidate(ctx context.Context, userID string) {
	s.cache.InvalidatePrefix(ctx, monthlyCachePrefix+userID)
	s.ledger.invalidate(ctx, userID)
}
