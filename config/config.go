package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	OAuthRedirectBase  string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Social login
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// Redis for caching, token blacklist and oauth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Game rules
	DefaultTaskXP      int
	MealLogXP          int
	XPReconcileMinutes int
	XPReconcileRepair  bool
	// Nutrition
	MonthlyWindowDays int
	NutritionCacheSec int
	// Assistant (OpenAI compatible chat completions)
	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMTimeoutSec   int
	LLMMaxAttempts  int
	LLMBaseDelayMs  int
	LLMMaxDelayMs   int
	LLMJitter       float64
	ChatHistorySize int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A local .env only seeds the process environment; real env vars win.
	_ = godotenv.Load()

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("ignoring invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getFloat := func(m map[string]any, key string) float64 {
		if f, ok := m[key].(float64); ok {
			return f
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"]; ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
	}
	if db, ok := raw["database"]; ok {
		out.DBDriver = getString(db, "Driver")
		out.DatabaseURI = getString(db, "DatabaseURI")
		out.DBHost = getString(db, "DBHost")
		out.DBPort = getString(db, "DBPort")
		out.DBUser = getString(db, "DBUser")
		out.DBPassword = getString(db, "DBPassword")
		out.DBName = getString(db, "DBName")
	}
	if r, ok := raw["redis"]; ok {
		out.RedisHost = getString(r, "RedisHost")
		out.RedisPort = getInt(r, "RedisPort")
		out.RedisDB = getInt(r, "RedisDB")
		out.RedisPassword = getString(r, "RedisPassword")
	}
	if l, ok := raw["log"]; ok {
		out.LogLevel = getString(l, "LogLevel")
		out.LogPath = getString(l, "LogPath")
		out.LogMaxSizeMB = getInt(l, "LogMaxSizeMB")
		out.LogMaxBackups = getInt(l, "LogMaxBackups")
		out.LogMaxAgeDays = getInt(l, "LogMaxAgeDays")
		out.LogCompress = getBool(l, "LogCompress")
	}
	if o, ok := raw["oauth"]; ok {
		out.OAuthRedirectBase = getString(o, "OAuthRedirectBase")
		out.GitHubClientID = getString(o, "GitHubClientID")
		out.GitHubClientSecret = getString(o, "GitHubClientSecret")
		out.GoogleClientID = getString(o, "GoogleClientID")
		out.GoogleClientSecret = getString(o, "GoogleClientSecret")
	}
	if g, ok := raw["game"]; ok {
		out.DefaultTaskXP = getInt(g, "DefaultTaskXP")
		out.MealLogXP = getInt(g, "MealLogXP")
		out.XPReconcileMinutes = getInt(g, "XPReconcileMinutes")
		out.XPReconcileRepair = getBool(g, "XPReconcileRepair")
	}
	if n, ok := raw["nutrition"]; ok {
		out.MonthlyWindowDays = getInt(n, "MonthlyWindowDays")
		out.NutritionCacheSec = getInt(n, "NutritionCacheSec")
	}
	if m, ok := raw["llm"]; ok {
		out.LLMBaseURL = getString(m, "BaseURL")
		out.LLMAPIKey = getString(m, "APIKey")
		out.LLMModel = getString(m, "Model")
		out.LLMTimeoutSec = getInt(m, "TimeoutSec")
		out.LLMMaxAttempts = getInt(m, "MaxAttempts")
		out.LLMBaseDelayMs = getInt(m, "BaseDelayMs")
		out.LLMMaxDelayMs = getInt(m, "MaxDelayMs")
		out.LLMJitter = getFloat(m, "Jitter")
		out.ChatHistorySize = getInt(m, "ChatHistorySize")
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "questfuel"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.DefaultTaskXP == 0 {
		c.DefaultTaskXP = 10
	}
	if c.MealLogXP == 0 {
		c.MealLogXP = 5
	}
	if c.XPReconcileMinutes == 0 {
		c.XPReconcileMinutes = 60
	}
	if c.MonthlyWindowDays == 0 {
		c.MonthlyWindowDays = 30
	}
	if c.NutritionCacheSec == 0 {
		c.NutritionCacheSec = 600
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "https://api.openai.com/v1"
	}
	if c.LLMModel == "" {
		c.LLMModel = "gpt-4o-mini"
	}
	if c.LLMTimeoutSec == 0 {
		c.LLMTimeoutSec = 60
	}
	if c.LLMMaxAttempts == 0 {
		c.LLMMaxAttempts = 3
	}
	if c.LLMBaseDelayMs == 0 {
		c.LLMBaseDelayMs = 500
	}
	if c.LLMMaxDelayMs == 0 {
		c.LLMMaxDelayMs = 8000
	}
	if c.LLMJitter == 0 {
		c.LLMJitter = 0.5
	}
	if c.ChatHistorySize == 0 {
		c.ChatHistorySize = 10
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("OAUTH_REDIRECT_BASE_URL", ""); v != "" {
		c.OAuthRedirectBase = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("GITHUB_CLIENT_ID", ""); v != "" {
		c.GitHubClientID = v
	}
	if v := getEnv("GITHUB_CLIENT_SECRET", ""); v != "" {
		c.GitHubClientSecret = v
	}
	if v := getEnv("GOOGLE_CLIENT_ID", ""); v != "" {
		c.GoogleClientID = v
	}
	if v := getEnv("GOOGLE_CLIENT_SECRET", ""); v != "" {
		c.GoogleClientSecret = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("DEFAULT_TASK_XP", ""); v != "" {
		c.DefaultTaskXP = mustParseInt(v)
	}
	if v := getEnv("MEAL_LOG_XP", ""); v != "" {
		c.MealLogXP = mustParseInt(v)
	}
	if v := getEnv("XP_RECONCILE_MINUTES", ""); v != "" {
		c.XPReconcileMinutes = mustParseInt(v)
	}
	if v := getEnv("XP_RECONCILE_REPAIR", ""); v != "" {
		c.XPReconcileRepair = v == "true"
	}
	if v := getEnv("NUTRITION_MONTHLY_DAYS", ""); v != "" {
		c.MonthlyWindowDays = mustParseInt(v)
	}
	if v := getEnv("NUTRITION_CACHE_SEC", ""); v != "" {
		c.NutritionCacheSec = mustParseInt(v)
	}
	if v := getEnv("LLM_BASE_URL", ""); v != "" {
		c.LLMBaseURL = strings.TrimRight(v, "/")
	}
	if v := getEnv("LLM_API_KEY", ""); v != "" {
		c.LLMAPIKey = v
	}
	if v := getEnv("LLM_MODEL", ""); v != "" {
		c.LLMModel = v
	}
	if v := getEnv("LLM_TIMEOUT_SEC", ""); v != "" {
		c.LLMTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("LLM_MAX_ATTEMPTS", ""); v != "" {
		c.LLMMaxAttempts = mustParseInt(v)
	}
	if v := getEnv("LLM_BASE_DELAY_MS", ""); v != "" {
		c.LLMBaseDelayMs = mustParseInt(v)
	}
	if v := getEnv("LLM_MAX_DELAY_MS", ""); v != "" {
		c.LLMMaxDelayMs = mustParseInt(v)
	}
	if v := getEnv("LLM_JITTER", ""); v != "" {
		c.LLMJitter = mustParseFloat(v)
	}
	if v := getEnv("CHAT_HISTORY_SIZE", ""); v != "" {
		c.ChatHistorySize = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseFloat(val string) float64 {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("invalid float value %s: %v", val, err)
	}
	return f
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
