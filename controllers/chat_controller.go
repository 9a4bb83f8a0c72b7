package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// ChatController relays the nutrition assistant and applies accepted suggestions.
type ChatController struct {
	chat      *services.ChatService
	nutrition *services.NutritionService
}

func NewChatController(chat *services.ChatService, nutrition *services.NutritionService) *ChatController {
	return &ChatController{chat: chat, nutrition: nutrition}
}

func (c *ChatController) Send(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	reply, err := c.chat.Send(ctx.Request.Context(), uid, req.Message)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, reply)
}

func (c *ChatController) History(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	msgs, err := c.chat.History(ctx.Request.Context(), uid, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, msgs)
}

// Accept logs a suggestion the user took from a reply. A malformed suggestion is a 400.
func (c *ChatController) Accept(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Suggestion *services.Suggestion `json:"suggestion" binding:"required"`
		MealType   string               `json:"meal_type"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.nutrition.AcceptSuggestion(ctx.Request.Context(), uid, *req.Suggestion, req.MealType)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, res)
}
