package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/questfuel/api/config"
	"github.com/questfuel/api/models"
	"github.com/questfuel/api/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "router-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		RateLimitPerMinute: 1000,
	})

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	ledger := services.NewXPLedger(db, nil)
	nutrition := services.NewNutritionService(db, ledger, nil, services.NutritionOptions{MealLogXP: 5})
	return SetupRouter(db, Deps{
		Ledger:    ledger,
		Tasks:     services.NewTaskService(db, ledger),
		Foods:     services.NewFoodService(db),
		Nutrition: nutrition,
		Chat:      services.NewChatService(db, nil, nil, nutrition, 5, nil),
	})
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRegisterCompleteTaskAndLogout(t *testing.T) {
	r := newTestRouter(t)

	w, out := call(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "Quest@Example.com", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := out["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)

	w, _ = call(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "quest@example.com", "password": "hunter2hunter2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "quest@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = call(t, r, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "Meal prep", "xp_weight": 150})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	taskID := out["data"].(map[string]interface{})["id"].(string)

	w, out = call(t, r, http.MethodPost, "/api/v1/tasks/"+taskID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := out["data"].(map[string]interface{})
	assert.Equal(t, true, data["leveled_up"])

	w, out = call(t, r, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	level := out["data"].(map[string]interface{})["level"].(map[string]interface{})
	assert.Equal(t, float64(1), level["level"])
	assert.Equal(t, float64(150), level["total_xp"])

	w, _ = call(t, r, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/v1/xp", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownRouteAndMissingToken(t *testing.T) {
	r := newTestRouter(t)

	w, out := call(t, r, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(40400), out["code"])

	w, _ = call(t, r, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
