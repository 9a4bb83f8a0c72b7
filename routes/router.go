package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/questfuel/api/config"
	"github.com/questfuel/api/controllers"
	"github.com/questfuel/api/middleware"
	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Ledger    *services.XPLedger
	Tasks     *services.TaskService
	Foods     *services.FoodService
	Nutrition *services.NutritionService
	Chat      *services.ChatService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// request log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, deps.Ledger)
	taskController := controllers.NewTaskController(deps.Tasks, int64(cfg.DefaultTaskXP))
	foodController := controllers.NewFoodController(deps.Foods)
	nutritionController := controllers.NewNutritionController(deps.Nutrition)
	xpController := controllers.NewXPController(deps.Ledger)
	chatController := controllers.NewChatController(deps.Chat, deps.Nutrition)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	protected.GET("/tasks", taskController.List)
	protected.POST("/tasks", taskController.Create)
	protected.GET("/tasks/:id", taskController.Get)
	protected.PUT("/tasks/:id", taskController.Update)
	protected.DELETE("/tasks/:id", taskController.Delete)
	protected.POST("/tasks/:id/complete", taskController.Complete)

	protected.GET("/foods", foodController.List)
	protected.GET("/foods/search", foodController.Search)
	protected.GET("/foods/barcode/:code", foodController.Barcode)
	protected.GET("/foods/:id", foodController.Get)
	protected.POST("/foods", foodController.Create)

	protected.POST("/meals", nutritionController.LogMeal)
	protected.GET("/meals", nutritionController.ListMeals)
	protected.DELETE("/meals/:id", nutritionController.DeleteMeal)

	protected.GET("/nutrition/summary", nutritionController.Summary)
	protected.GET("/nutrition/monthly", nutritionController.Monthly)
	protected.GET("/nutrition/goals", nutritionController.GetGoals)
	protected.PUT("/nutrition/goals", nutritionController.UpdateGoals)

	protected.GET("/xp", xpController.Summary)
	protected.GET("/xp/logs", xpController.Logs)

	protected.POST("/chat", chatController.Send)
	protected.GET("/chat/history", chatController.History)
	protected.POST("/chat/suggestions/accept", chatController.Accept)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
