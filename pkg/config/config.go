package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string

	// JWT配置：与托管认证服务共用同一个签名密钥
	JWTSecret string

	// OAuth配置
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURI   string
	BaseURL            string // 基础URL，用于构建回调URL

	// 前端分析ID，透传给客户端
	AnalyticsID string

	// CORS配置
	AllowedOrigins []string

	// 限流配置
	RedisURL           string
	RateLimitPerMinute int

	// 业务规则
	TeamSize         int
	BusinessTimezone string

	// 日志与调试
	LogLevel string
	Debug    bool
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() *Config {
	// 根据环境加载对应的 .env 文件，已存在的环境变量不会被覆盖
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	envFile := ".env.local"
	if env == "production" {
		envFile = ".env.production"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).WithField("file", envFile).Warn("⚠️ Failed to load env file")
	}

	config := &Config{
		Environment:        getEnvWithDefault("ENVIRONMENT", "development"),
		Port:               getEnvWithDefault("PORT", "3000"),
		UseLocalDB:         getEnvBool("USE_LOCAL_DB", false),
		LocalDBPath:        getEnvWithDefault("LOCAL_DB_PATH", "club-space.db"),
		JWTSecret:          firstNonEmpty(os.Getenv("SUPABASE_JWT_SECRET"), os.Getenv("JWT_SECRET"), defaultJWTSecret),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TeamSize:           getEnvInt("TEAM_SIZE", 4),
		BusinessTimezone:   getEnvWithDefault("BUSINESS_TIMEZONE", "Asia/Seoul"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		Debug:              getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.SupabaseURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	config.SupabaseKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	config.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	config.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	config.GoogleClientSecret = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET"))
	config.OAuthRedirectURI = strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_URI"))
	config.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	config.AnalyticsID = strings.TrimSpace(os.Getenv("ANALYTICS_ID"))

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}

	if config.IsProduction() {
		// 生产环境强制使用外部数据库
		if config.PostgresDSN != "" || (config.SupabaseURL != "" && config.SupabaseKey != "") {
			config.UseLocalDB = false
		} else {
			logrus.Warn("⚠️ Production environment without POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
		}
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return errors.New("SUPABASE_JWT_SECRET or JWT_SECRET must be set in production")
		}
		logrus.Warn("⚠️ Using default JWT secret (not recommended for production)")
	}

	if c.TeamSize < 2 {
		return errors.New("TEAM_SIZE must be at least 2")
	}

	if !c.UseLocalDB && c.PostgresDSN == "" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return errors.New("数据库配置不完整：请配置 POSTGRES_DSN、SUPABASE_URL+SUPABASE_SERVICE_KEY 或 USE_LOCAL_DB")
	}
	return nil
}

// OAuthEnabled Google 登录所需配置是否齐全
func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt 获取整数类型的环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
