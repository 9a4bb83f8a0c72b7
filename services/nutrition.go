package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/questfuel/api/models"
)

// DayLayout is the calendar-day key format. Days are always taken in UTC.
const DayLayout = "2006-01-02"

// DayKey returns the UTC calendar day a timestamp belongs to.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// DayBounds returns [start, end) in UTC for a "2006-01-02" day.
func DayBounds(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return start, start.Add(24 * time.Hour), nil
}

// DayTotals is the nutrient sum for one calendar day.
type DayTotals struct {
	Date      string           `json:"date"`
	Totals    models.Nutrients `json:"totals"`
	MealCount int              `json:"meal_count"`
}

// NutrientProgress compares one dimension against its target.
type NutrientProgress struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Percent float64 `json:"percent"`
}

// GoalProgress is progress for the five goal dimensions.
type GoalProgress struct {
	Kcal    NutrientProgress `json:"kcal"`
	Protein NutrientProgress `json:"protein"`
	Carbs   NutrientProgress `json:"carbs"`
	Fat     NutrientProgress `json:"fat"`
	Fiber   NutrientProgress `json:"fiber"`
}

// MealNutrients is the food's per-serving profile times the meal quantity.
func MealNutrients(m models.Meal) (models.Nutrients, error) {
	if m.Food == nil {
		return models.Nutrients{}, fmt.Errorf("%w: meal %s food %s", ErrMissingFoodReference, m.ID, m.FoodID)
	}
	return m.Food.Nutrients().Scale(m.Quantity), nil
}

// DailyTotals sums the meals. No meals gives all zeros.
func DailyTotals(meals []models.Meal) (models.Nutrients, error) {
	var total models.Nutrients
	for _, m := range meals {
		n, err := MealNutrients(m)
		if err != nil {
			return models.Nutrients{}, err
		}
		total = total.Add(n)
	}
	return total, nil
}

// RangeTotals groups meals by UTC day, newest day first.
func RangeTotals(meals []models.Meal) ([]DayTotals, error) {
	byDay := map[string]*DayTotals{}
	for _, m := range meals {
		n, err := MealNutrients(m)
		if err != nil {
			return nil, err
		}
		key := DayKey(m.LoggedAt)
		d, ok := byDay[key]
		if !ok {
			d = &DayTotals{Date: key}
			byDay[key] = d
		}
		d.Totals = d.Totals.Add(n)
		d.MealCount++
	}

	out := make([]DayTotals, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// AverageOverDaysWithData averages only over days with at least one meal.
func AverageOverDaysWithData(days []DayTotals) models.Nutrients {
	var sum models.Nutrients
	n := 0
	for _, d := range days {
		if d.MealCount == 0 {
			continue
		}
		sum = sum.Add(d.Totals)
		n++
	}
	if n == 0 {
		return models.Nutrients{}
	}
	return sum.Scale(1 / float64(n))
}

// ProgressPercent is min(current/target, 1)*100, or 0 when there is no target.
func ProgressPercent(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(current/target, 1) * 100
}

// Progress compares totals against the goal.
func Progress(totals models.Nutrients, goal models.NutritionGoal) GoalProgress {
	p := func(cur, target float64) NutrientProgress {
		return NutrientProgress{Current: round2(cur), Target: target, Percent: round2(ProgressPercent(cur, target))}
	}
	return GoalProgress{
		Kcal:    p(totals.Kcal, goal.TargetKcal),
		Protein: p(totals.Protein, goal.TargetProtein),
		Carbs:   p(totals.Carbs, goal.TargetCarbs),
		Fat:     p(totals.Fat, goal.TargetFat),
		Fiber:   p(totals.Fiber, goal.TargetFiber),
	}
}
