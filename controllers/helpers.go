package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/questfuel/api/llm"
	"github.com/questfuel/api/middleware"
	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// currentUserID returns the authenticated user id, answering 401 when it is missing.
func currentUserID(ctx *gin.Context) (string, bool) {
	uid := ctx.GetString(middleware.ContextUserIDKey)
	if uid == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return "", false
	}
	return uid, true
}

// bindJSON decodes the body into req, answering 400 on failure.
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return false
	}
	return true
}

func parsePagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// respondError maps service errors onto the response envelope.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40310, err.Error())
	case errors.Is(err, services.ErrAlreadyCompleted):
		utils.Error(ctx, http.StatusConflict, 40910, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, services.ErrMissingFoodReference):
		utils.Logger.Error("inconsistent meal data", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50020, "meal references a missing food")
	case errors.Is(err, llm.ErrNotConfigured):
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "assistant is not configured")
	case isAssistantFailure(err):
		utils.Logger.Warn("assistant call failed", zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50210, "assistant unavailable, try again later")
	default:
		utils.Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func isAssistantFailure(err error) bool {
	var se *llm.StatusError
	return errors.As(err, &se) || errors.Is(err, services.ErrAssistantUnavailable)
}
