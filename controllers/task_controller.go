package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// TaskController exposes the task lifecycle.
type TaskController struct {
	tasks     *services.TaskService
	defaultXP int64
}

func NewTaskController(tasks *services.TaskService, defaultXP int64) *TaskController {
	return &TaskController{tasks: tasks, defaultXP: defaultXP}
}

func (c *TaskController) List(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	tasks, err := c.tasks.List(ctx.Request.Context(), uid, ctx.Query("status"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, tasks)
}

// Create adds a pending task. xp_weight falls back to the configured default when omitted.
func (c *TaskController) Create(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Title    string     `json:"title" binding:"required"`
		XPWeight *int64     `json:"xp_weight"`
		Due      *time.Time `json:"due"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	weight := c.defaultXP
	if req.XPWeight != nil {
		weight = *req.XPWeight
	}
	task, err := c.tasks.Create(ctx.Request.Context(), uid, services.TaskInput{Title: req.Title, XPWeight: weight, Due: req.Due})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, task)
}

func (c *TaskController) Get(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	task, err := c.tasks.Get(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, task)
}

func (c *TaskController) Update(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Title    *string    `json:"title"`
		XPWeight *int64     `json:"xp_weight"`
		Due      *time.Time `json:"due"`
		ClearDue bool       `json:"clear_due"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	task, err := c.tasks.Update(ctx.Request.Context(), uid, ctx.Param("id"), services.TaskUpdate{
		Title:    req.Title,
		XPWeight: req.XPWeight,
		Due:      req.Due,
		ClearDue: req.ClearDue,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, task)
}

// Complete awards the task's XP once; a repeat answers 409.
func (c *TaskController) Complete(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	res, err := c.tasks.Complete(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (c *TaskController) Delete(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	if err := c.tasks.Delete(ctx.Request.Context(), uid, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
