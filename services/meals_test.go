package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/questfuel/api/models"
)

type nutritionFixture struct {
	db   *gorm.DB
	svc  *NutritionService
	user *models.User
}

func newNutritionFixture(t *testing.T, now time.Time) nutritionFixture {
	db := newTestDB(t)
	svc := NewNutritionService(db, NewXPLedger(db, nil), nil, NutritionOptions{MealLogXP: 5})
	svc.now = func() time.Time { return now }
	return nutritionFixture{db: db, svc: svc, user: createUser(t, db, "eater@example.com")}
}

func TestLogMealAwardsXP(t *testing.T) {
	fx := newNutritionFixture(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	food := createFood(t, fx.db, nil, "Oats", models.Nutrients{Kcal: 380, Protein: 13})

	logged, err := fx.svc.LogMeal(context.Background(), fx.user.ID, MealInput{FoodID: food.ID, Quantity: 0.5, Notes: "<i>porridge</i>"})
	require.NoError(t, err)
	assert.Equal(t, models.MealTypeSnack, logged.Meal.MealType)
	assert.Equal(t, "porridge", logged.Meal.Notes)
	require.NotNil(t, logged.Award)
	assert.Equal(t, int64(5), logged.Award.Amount)
	assert.Equal(t, models.XPReasonMealLog, logged.Award.Reason)
	assert.Equal(t, logged.Meal.ID, logged.Award.SourceID)
	assert.Equal(t, int64(5), userXP(t, fx.db, fx.user.ID))
}

func TestLogMealValidation(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	ctx := context.Background()
	other := createUser(t, fx.db, "other@example.com")
	public := createFood(t, fx.db, nil, "Apple", models.Nutrients{Kcal: 52})
	private := createFood(t, fx.db, &other.ID, "Secret stew", models.Nutrients{Kcal: 300})

	_, err := fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: public.ID, Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: public.ID, Quantity: 1, MealType: "brunch"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: private.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	// zero servings is a valid entry
	_, err = fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: public.ID, Quantity: 0})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), userXP(t, fx.db, fx.user.ID))
}

func TestDaySummaryTotalsAndDefaultGoal(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)
	fx := newNutritionFixture(t, now)
	ctx := context.Background()
	rice := createFood(t, fx.db, nil, "Rice", models.Nutrients{Kcal: 130, Protein: 2.7, Carbs: 28})
	egg := createFood(t, fx.db, nil, "Egg", models.Nutrients{Kcal: 78, Protein: 6, Fat: 5})

	yesterday := now.AddDate(0, 0, -1)
	for _, in := range []MealInput{
		{FoodID: rice.ID, Quantity: 2, MealType: models.MealTypeLunch},
		{FoodID: egg.ID, Quantity: 3, MealType: models.MealTypeBreakfast},
		{FoodID: egg.ID, Quantity: 10, LoggedAt: &yesterday},
	} {
		_, err := fx.svc.LogMeal(ctx, fx.user.ID, in)
		require.NoError(t, err)
	}

	sum, err := fx.svc.DaySummary(ctx, fx.user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", sum.Date)
	assert.Len(t, sum.Meals, 2)
	assert.InDelta(t, 260+234, sum.Totals.Kcal, 1e-9)
	assert.InDelta(t, 5.4+18, sum.Totals.Protein, 1e-9)
	assert.InDelta(t, 15, sum.Totals.Fat, 1e-9)

	assert.Equal(t, float64(models.DefaultTargetKcal), sum.Goal.TargetKcal)
	assert.InDelta(t, 24.7, sum.Progress.Kcal.Percent, 1e-9)

	var goals int64
	require.NoError(t, fx.db.Model(&models.NutritionGoal{}).Where("user_id = ?", fx.user.ID).Count(&goals).Error)
	assert.Equal(t, int64(1), goals)

	_, err = fx.svc.DaySummary(ctx, fx.user.ID, "15/03/2026")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDaySummaryMissingFood(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	fx := newNutritionFixture(t, now)
	dangling := &models.Meal{UserID: fx.user.ID, FoodID: "gone", Quantity: 1, MealType: models.MealTypeSnack, LoggedAt: now}
	require.NoError(t, fx.db.Create(dangling).Error)

	_, err := fx.svc.DaySummary(context.Background(), fx.user.ID, "2026-03-15")
	assert.ErrorIs(t, err, ErrMissingFoodReference)
}

func TestMonthlyAveragesOverDaysWithData(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fx := newNutritionFixture(t, now)
	ctx := context.Background()
	food := createFood(t, fx.db, nil, "Bar", models.Nutrients{Kcal: 100, Protein: 10})

	at := func(d time.Time) *time.Time { return &d }
	for _, in := range []MealInput{
		{FoodID: food.ID, Quantity: 1, LoggedAt: at(now)},
		{FoodID: food.ID, Quantity: 2, LoggedAt: at(now.AddDate(0, 0, -1))},
		{FoodID: food.ID, Quantity: 2, LoggedAt: at(now.AddDate(0, 0, -1).Add(-3 * time.Hour))},
		{FoodID: food.ID, Quantity: 9, LoggedAt: at(now.AddDate(0, 0, -40))},
	} {
		_, err := fx.svc.LogMeal(ctx, fx.user.ID, in)
		require.NoError(t, err)
	}

	m, err := fx.svc.Monthly(ctx, fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", m.To)
	assert.Equal(t, "2026-02-14", m.From)
	assert.Equal(t, 2, m.DaysWithData)
	require.Len(t, m.Days, 2)
	assert.Equal(t, "2026-03-15", m.Days[0].Date)
	assert.Equal(t, "2026-03-14", m.Days[1].Date)
	assert.Equal(t, 2, m.Days[1].MealCount)
	assert.InDelta(t, 250, m.Averages.Kcal, 1e-9)
	assert.InDelta(t, 25, m.Averages.Protein, 1e-9)
}

func TestGoalUpdate(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	ctx := context.Background()

	goal, err := fx.svc.UpdateGoal(ctx, fx.user.ID, GoalUpdate{TargetKcal: ptr(2400.0), TargetFiber: ptr(0.0)})
	require.NoError(t, err)
	assert.Equal(t, 2400.0, goal.TargetKcal)
	assert.Equal(t, 0.0, goal.TargetFiber)
	assert.Equal(t, float64(models.DefaultTargetProtein), goal.TargetProtein)

	_, err = fx.svc.UpdateGoal(ctx, fx.user.ID, GoalUpdate{TargetFat: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	again, err := fx.svc.Goal(ctx, fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, again.ID)
	assert.Equal(t, 2400.0, again.TargetKcal)
}

func TestDeleteMealOwnership(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	ctx := context.Background()
	other := createUser(t, fx.db, "other@example.com")
	food := createFood(t, fx.db, nil, "Tea", models.Nutrients{Kcal: 2})
	logged, err := fx.svc.LogMeal(ctx, fx.user.ID, MealInput{FoodID: food.ID, Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.DeleteMeal(ctx, other.ID, logged.Meal.ID), ErrForbidden)
	assert.ErrorIs(t, fx.svc.DeleteMeal(ctx, fx.user.ID, "missing"), ErrNotFound)
	require.NoError(t, fx.svc.DeleteMeal(ctx, fx.user.ID, logged.Meal.ID))
	assert.Equal(t, int64(5), userXP(t, fx.db, fx.user.ID))
}

func TestAcceptFoodSuggestionDedupesFood(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	ctx := context.Background()
	sg := Suggestion{Type: SuggestionFood, Data: &FoodSuggestion{
		Name: "Greek Yogurt", Calories: 100, Protein: 17, Carbs: 6, ServingSize: "170g", MealType: models.MealTypeBreakfast,
	}}

	first, err := fx.svc.AcceptSuggestion(ctx, fx.user.ID, sg, "")
	require.NoError(t, err)
	require.Len(t, first.Foods, 1)
	require.Len(t, first.Meals, 1)
	assert.Equal(t, "greek-yogurt", first.Foods[0].Slug)
	assert.Equal(t, models.MealTypeBreakfast, first.Meals[0].Meal.MealType)
	assert.Equal(t, 1.0, first.Meals[0].Meal.Quantity)

	second, err := fx.svc.AcceptSuggestion(ctx, fx.user.ID, sg, models.MealTypeSnack)
	require.NoError(t, err)
	assert.Equal(t, first.Foods[0].ID, second.Foods[0].ID)
	assert.Equal(t, models.MealTypeSnack, second.Meals[0].Meal.MealType)

	var foods int64
	require.NoError(t, fx.db.Model(&models.Food{}).Count(&foods).Error)
	assert.Equal(t, int64(1), foods)
	assert.Equal(t, int64(10), userXP(t, fx.db, fx.user.ID))
}

func TestAcceptMealSuggestionLogsIngredients(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	ctx := context.Background()
	sg := Suggestion{Type: SuggestionMeal, Data: &MealSuggestion{
		FoodSuggestion: FoodSuggestion{Name: "Chicken bowl", MealType: models.MealTypeDinner},
		Ingredients: []Ingredient{
			{Name: "Chicken breast", Quantity: 150, Unit: "g", Calories: 248, Protein: 46},
			{Name: "Rice", Quantity: 200, Calories: 260, Carbs: 56},
		},
	}}

	res, err := fx.svc.AcceptSuggestion(ctx, fx.user.ID, sg, "")
	require.NoError(t, err)
	require.Len(t, res.Foods, 2)
	require.Len(t, res.Meals, 2)
	assert.Equal(t, "150g", res.Foods[0].ServingSize)
	assert.Equal(t, "200g", res.Foods[1].ServingSize)
	for _, m := range res.Meals {
		assert.Equal(t, models.MealTypeDinner, m.Meal.MealType)
		assert.Equal(t, 1.0, m.Meal.Quantity)
	}

	sum, err := fx.svc.DaySummary(ctx, fx.user.ID, "")
	require.NoError(t, err)
	assert.InDelta(t, 508, sum.Totals.Kcal, 1e-9)
	assert.Equal(t, int64(10), userXP(t, fx.db, fx.user.ID))
}

func TestAcceptSuggestionRejectsEmptyPayload(t *testing.T) {
	fx := newNutritionFixture(t, time.Now())
	_, err := fx.svc.AcceptSuggestion(context.Background(), fx.user.ID, Suggestion{Type: SuggestionFood}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = fx.svc.AcceptSuggestion(context.Background(), fx.user.ID, Suggestion{Type: "drink"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int64(0), userXP(t, fx.db, fx.user.ID))
}
