package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Uploads   UploadConfig
	Lark      LarkConfig
	Dashboard DashboardConfig
	Leave     LeaveConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadConfig controls on-disk storage for course files and certification images.
type UploadConfig struct {
	Dir              string
	MaxDocumentBytes int64
	MaxImageBytes    int64
}

// LarkConfig holds credentials and table bindings for the Lark Base sync.
type LarkConfig struct {
	Enabled            bool
	APIURL             string
	AppID              string
	AppSecret          string
	BaseToken          string
	UsersTable         string
	CoursesTable       string
	SchedulesTable     string
	LeaveRequestsTable string
	RecordDelay        time.Duration
	SyncWorkers        int
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// LeaveConfig toggles optional leave-request validation.
type LeaveConfig struct {
	OverlapCheck bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxDocSize := v.GetInt64("UPLOAD_MAX_DOCUMENT_SIZE")
	if maxDocSize <= 0 {
		maxDocSize = 50 * 1024 * 1024
	}
	maxImageSize := v.GetInt64("UPLOAD_MAX_IMAGE_SIZE")
	if maxImageSize <= 0 {
		maxImageSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadConfig{
		Dir:              v.GetString("UPLOAD_DIR"),
		MaxDocumentBytes: maxDocSize,
		MaxImageBytes:    maxImageSize,
	}

	cfg.Lark = LarkConfig{
		Enabled:            v.GetBool("LARK_SYNC_ENABLED"),
		APIURL:             v.GetString("LARK_API_URL"),
		AppID:              v.GetString("LARK_APP_ID"),
		AppSecret:          v.GetString("LARK_APP_SECRET"),
		BaseToken:          v.GetString("LARK_BASE_TOKEN"),
		UsersTable:         v.GetString("LARK_TABLE_USERS"),
		CoursesTable:       v.GetString("LARK_TABLE_COURSES"),
		SchedulesTable:     v.GetString("LARK_TABLE_SCHEDULES"),
		LeaveRequestsTable: v.GetString("LARK_TABLE_LEAVE_REQUESTS"),
		RecordDelay:        parseDuration(v.GetString("LARK_RECORD_DELAY"), 100*time.Millisecond),
		SyncWorkers:        v.GetInt("LARK_SYNC_WORKERS"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Leave = LeaveConfig{
		OverlapCheck: v.GetBool("LEAVE_OVERLAP_CHECK"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "teacher_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "teacher-hub-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_MAX_DOCUMENT_SIZE", 50*1024*1024)
	v.SetDefault("UPLOAD_MAX_IMAGE_SIZE", 5*1024*1024)

	v.SetDefault("LARK_SYNC_ENABLED", false)
	v.SetDefault("LARK_API_URL", "https://open.larksuite.com/open-apis")
	v.SetDefault("LARK_APP_ID", "")
	v.SetDefault("LARK_APP_SECRET", "")
	v.SetDefault("LARK_BASE_TOKEN", "")
	v.SetDefault("LARK_TABLE_USERS", "")
	v.SetDefault("LARK_TABLE_COURSES", "")
	v.SetDefault("LARK_TABLE_SCHEDULES", "")
	v.SetDefault("LARK_TABLE_LEAVE_REQUESTS", "")
	v.SetDefault("LARK_RECORD_DELAY", "100ms")
	v.SetDefault("LARK_SYNC_WORKERS", 1)

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("LEAVE_OVERLAP_CHECK", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
