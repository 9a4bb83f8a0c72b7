package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/questfuel/api/models"
	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// FoodController serves the food catalogue.
type FoodController struct {
	foods *services.FoodService
}

func NewFoodController(foods *services.FoodService) *FoodController {
	return &FoodController{foods: foods}
}

type foodRequest struct {
	Name        string  `json:"name" binding:"required"`
	Barcode     string  `json:"barcode"`
	ServingSize string  `json:"serving_size"`
	IsPublic    bool    `json:"is_public"`
	Kcal        float64 `json:"kcal"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Fiber       float64 `json:"fiber"`
	Sugar       float64 `json:"sugar"`
	Sodium      float64 `json:"sodium"`
}

func (c *FoodController) List(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, size := parsePagination(ctx)
	foods, total, err := c.foods.List(ctx.Request.Context(), uid, page, size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Paged(ctx, foods, total, page, size)
}

func (c *FoodController) Search(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	foods, err := c.foods.Search(ctx.Request.Context(), uid, ctx.Query("q"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, foods)
}

func (c *FoodController) Barcode(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	food, err := c.foods.ByBarcode(ctx.Request.Context(), uid, ctx.Param("code"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, food)
}

func (c *FoodController) Get(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	food, err := c.foods.Get(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, food)
}

func (c *FoodController) Create(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req foodRequest
	if !bindJSON(ctx, &req) {
		return
	}
	food, err := c.foods.Create(ctx.Request.Context(), uid, services.FoodInput{
		Name:        req.Name,
		Barcode:     req.Barcode,
		ServingSize: req.ServingSize,
		IsPublic:    req.IsPublic,
		Nutrients: models.Nutrients{
			Kcal:    req.Kcal,
			Protein: req.Protein,
			Carbs:   req.Carbs,
			Fat:     req.Fat,
			Fiber:   req.Fiber,
			Sugar:   req.Sugar,
			Sodium:  req.Sodium,
		},
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, food)
}
