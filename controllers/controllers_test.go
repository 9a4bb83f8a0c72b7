package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/questfuel/api/config"
	"github.com/questfuel/api/llm"
	"github.com/questfuel/api/middleware"
	"github.com/questfuel/api/models"
	"github.com/questfuel/api/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "controllers-secret"})
	m.Run()
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, []llm.Message) (string, error) {
	return s.reply, nil
}

type harness struct {
	db     *gorm.DB
	engine *gin.Engine
	userID string
}

func newHarness(t *testing.T, assistantReply string) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	user := models.User{Email: "h@example.com", Name: "h"}
	require.NoError(t, db.Create(&user).Error)

	ledger := services.NewXPLedger(db, nil)
	nutrition := services.NewNutritionService(db, ledger, nil, services.NutritionOptions{MealLogXP: 5})
	chat := services.NewChatService(db, stubCompleter{reply: assistantReply}, nil, nutrition, 5, nil)
	tasks := NewTaskController(services.NewTaskService(db, ledger), 10)
	foods := NewFoodController(services.NewFoodService(db))
	nc := NewNutritionController(nutrition)
	xp := NewXPController(ledger)
	cc := NewChatController(chat, nutrition)

	r := gin.New()
	api := r.Group("/", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(middleware.ContextUserIDKey, uid)
		}
	})
	api.GET("/tasks", tasks.List)
	api.POST("/tasks", tasks.Create)
	api.PUT("/tasks/:id", tasks.Update)
	api.POST("/tasks/:id/complete", tasks.Complete)
	api.POST("/foods", foods.Create)
	api.GET("/foods/search", foods.Search)
	api.POST("/meals", nc.LogMeal)
	api.GET("/nutrition/summary", nc.Summary)
	api.PUT("/nutrition/goals", nc.UpdateGoals)
	api.GET("/xp", xp.Summary)
	api.GET("/xp/logs", xp.Logs)
	api.POST("/chat", cc.Send)
	api.POST("/chat/suggestions/accept", cc.Accept)

	return &harness{db: db, engine: r, userID: user.ID}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", h.userID)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestTaskEndpoints(t *testing.T) {
	h := newHarness(t, "")

	code, env := h.do(t, http.MethodPost, "/tasks", gin.H{"title": "Walk"})
	require.Equal(t, http.StatusCreated, code)
	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, int64(10), task.XPWeight)

	code, env = h.do(t, http.MethodPost, "/tasks", gin.H{"title": "Bad", "xp_weight": -5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40010, env.Code)

	code, _ = h.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = h.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40910, env.Code)

	code, env = h.do(t, http.MethodPut, "/tasks/"+task.ID, gin.H{"xp_weight": 99})
	assert.Equal(t, http.StatusConflict, code)

	code, env = h.do(t, http.MethodPost, "/tasks/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40410, env.Code)

	code, env = h.do(t, http.MethodGet, "/xp", nil)
	require.Equal(t, http.StatusOK, code)
	var sum services.XPSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, int64(10), sum.TotalXP)
	assert.True(t, sum.InSync)

	code, env = h.do(t, http.MethodGet, "/tasks?status=done", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestForbiddenTask(t *testing.T) {
	h := newHarness(t, "")
	other := models.User{Email: "o@example.com"}
	require.NoError(t, h.db.Create(&other).Error)
	task := models.Task{UserID: other.ID, Title: "theirs", XPWeight: 5}
	require.NoError(t, h.db.Create(&task).Error)

	code, env := h.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 40310, env.Code)
}

func TestMealAndSummaryEndpoints(t *testing.T) {
	h := newHarness(t, "")

	code, env := h.do(t, http.MethodPost, "/foods", gin.H{"name": "Skyr", "kcal": 63, "protein": 11, "serving_size": "100g"})
	require.Equal(t, http.StatusCreated, code)
	var food models.Food
	require.NoError(t, json.Unmarshal(env.Data, &food))

	code, _ = h.do(t, http.MethodPost, "/meals", gin.H{"food_id": food.ID, "quantity": 2, "meal_type": "breakfast"})
	require.Equal(t, http.StatusCreated, code)
	code, env = h.do(t, http.MethodPost, "/meals", gin.H{"food_id": food.ID, "meal_type": "elevenses"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(t, http.MethodGet, "/nutrition/summary", nil)
	require.Equal(t, http.StatusOK, code)
	var sum services.DaySummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.InDelta(t, 126, sum.Totals.Kcal, 1e-9)
	assert.InDelta(t, 22, sum.Totals.Protein, 1e-9)

	code, env = h.do(t, http.MethodGet, "/nutrition/summary?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(t, http.MethodPut, "/nutrition/goals", gin.H{"target_protein": 180})
	require.Equal(t, http.StatusOK, code)
	var goal models.NutritionGoal
	require.NoError(t, json.Unmarshal(env.Data, &goal))
	assert.Equal(t, 180.0, goal.TargetProtein)
	assert.Equal(t, float64(models.DefaultTargetKcal), goal.TargetKcal)

	code, env = h.do(t, http.MethodGet, "/xp/logs?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Items []models.XPLog `json:"items"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.XPReasonMealLog, page.Items[0].Reason)
}

func TestChatAndAccept(t *testing.T) {
	reply := "Have an apple.\n<FOOD_SUGGESTION>{\"name\":\"Apple\",\"kcal\":95,\"protein\":0.5,\"carbs\":25,\"fat\":0.3,\"fiber\":4.4}</FOOD_SUGGESTION>"
	h := newHarness(t, reply)

	code, env := h.do(t, http.MethodPost, "/chat", gin.H{"message": "snack idea?"})
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Message     string            `json:"message"`
		Suggestions []json.RawMessage `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "Have an apple.", out.Message)
	require.Len(t, out.Suggestions, 1)

	code, env = h.do(t, http.MethodPost, "/chat/suggestions/accept", gin.H{
		"suggestion": out.Suggestions[0],
		"meal_type":  "snack",
	})
	require.Equal(t, http.StatusCreated, code)
	var res struct {
		Foods []models.Food `json:"foods"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Foods, 1)
	assert.Equal(t, 95.0, res.Foods[0].Kcal)

	code, env = h.do(t, http.MethodPost, "/chat/suggestions/accept", gin.H{
		"suggestion": gin.H{"type": "food", "data": gin.H{"name": "x", "calories": -1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/xp", nil)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
