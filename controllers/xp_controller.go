package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// XPController reads the XP ledger.
type XPController struct {
	ledger *services.XPLedger
}

func NewXPController(ledger *services.XPLedger) *XPController {
	return &XPController{ledger: ledger}
}

func (c *XPController) Summary(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sum, err := c.ledger.Summary(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sum)
}

func (c *XPController) Logs(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, size := parsePagination(ctx)
	logs, total, err := c.ledger.History(ctx.Request.Context(), uid, page, size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Paged(ctx, logs, total, page, size)
}
