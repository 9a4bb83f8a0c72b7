package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/questfuel/api/config"
	"github.com/questfuel/api/llm"
	"github.com/questfuel/api/models"
	"github.com/questfuel/api/routes"
	"github.com/questfuel/api/services"
	"github.com/questfuel/api/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	log := utils.Logger

	db := config.InitDatabase(models.All()...)

	var cache services.Cache
	if rc := utils.GetRedis(); rc != nil {
		cache = utils.NewRedisCache(rc, log.Named("cache"))
	}

	ledger := services.NewXPLedger(db, cache)
	nutrition := services.NewNutritionService(db, ledger, cache, services.NutritionOptions{
		MealLogXP:         int64(cfg.MealLogXP),
		MonthlyWindowDays: cfg.MonthlyWindowDays,
		CacheTTL:          time.Duration(cfg.NutritionCacheSec) * time.Second,
	})
	assistant := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		Retry: llm.RetryPolicy{
			MaxAttempts: cfg.LLMMaxAttempts,
			BaseDelay:   time.Duration(cfg.LLMBaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.LLMMaxDelayMs) * time.Millisecond,
			Jitter:      cfg.LLMJitter,
		},
	}, log.Named("llm"))
	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY not set, chat endpoints will answer 503")
	}

	deps := routes.Deps{
		Ledger:    ledger,
		Tasks:     services.NewTaskService(db, ledger),
		Foods:     services.NewFoodService(db),
		Nutrition: nutrition,
		Chat: services.NewChatService(db, assistant, services.NewExtractor(log.Named("suggestions")),
			nutrition, cfg.ChatHistorySize, log.Named("chat")),
	}

	scheduler, err := services.StartReconcileScheduler(ledger, time.Duration(cfg.XPReconcileMinutes)*time.Minute, cfg.XPReconcileRepair, log.Named("reconcile"))
	if err != nil {
		log.Fatal("start scheduler", zap.Error(err))
	}

	r := routes.SetupRouter(db, deps)

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db_driver", cfg.DBDriver))
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}
