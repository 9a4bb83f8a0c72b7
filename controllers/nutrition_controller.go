package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// NutritionController covers meal logging, daily and monthly views, and goals.
type NutritionController struct {
	nutrition *services.NutritionService
}

func NewNutritionController(nutrition *services.NutritionService) *NutritionController {
	return &NutritionController{nutrition: nutrition}
}

// LogMeal records a meal. quantity defaults to one serving.
func (c *NutritionController) LogMeal(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		FoodID   string     `json:"food_id" binding:"required"`
		Quantity *float64   `json:"quantity"`
		MealType string     `json:"meal_type"`
		Notes    string     `json:"notes"`
		LoggedAt *time.Time `json:"logged_at"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	qty := 1.0
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	logged, err := c.nutrition.LogMeal(ctx.Request.Context(), uid, services.MealInput{
		FoodID:   req.FoodID,
		Quantity: qty,
		MealType: req.MealType,
		Notes:    req.Notes,
		LoggedAt: req.LoggedAt,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, logged)
}

// ListMeals returns the meals of ?date= (UTC day, default today).
func (c *NutritionController) ListMeals(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	day := ctx.Query("date")
	if day == "" {
		day = services.DayKey(time.Now())
	}
	from, to, err := services.DayBounds(day)
	if err != nil {
		respondError(ctx, err)
		return
	}
	meals, err := c.nutrition.MealsBetween(ctx.Request.Context(), uid, from, to)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, meals)
}

func (c *NutritionController) DeleteMeal(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	if err := c.nutrition.DeleteMeal(ctx.Request.Context(), uid, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

func (c *NutritionController) Summary(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sum, err := c.nutrition.DaySummary(ctx.Request.Context(), uid, ctx.Query("date"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sum)
}

func (c *NutritionController) Monthly(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	data, err := c.nutrition.Monthly(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, data)
}

func (c *NutritionController) GetGoals(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	goal, err := c.nutrition.Goal(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, goal)
}

// UpdateGoals applies the provided targets and leaves the rest unchanged.
func (c *NutritionController) UpdateGoals(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		TargetKcal    *float64 `json:"target_kcal"`
		TargetProtein *float64 `json:"target_protein"`
		TargetCarbs   *float64 `json:"target_carbs"`
		TargetFat     *float64 `json:"target_fat"`
		TargetFiber   *float64 `json:"target_fiber"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	goal, err := c.nutrition.UpdateGoal(ctx.Request.Context(), uid, services.GoalUpdate{
		TargetKcal:    req.TargetKcal,
		TargetProtein: req.TargetProtein,
		TargetCarbs:   req.TargetCarbs,
		TargetFat:     req.TargetFat,
		TargetFiber:   req.TargetFiber,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, goal)
}
