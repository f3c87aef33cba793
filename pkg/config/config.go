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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Queue         QueueConfig
	Payments      PaymentsConfig
	Notifications NotificationsConfig
	Assets        AssetsConfig
	Exports       ExportsConfig
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
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QueueConfig tunes queue admission defaults and the snapshot cache.
type QueueConfig struct {
	DefaultMaxSlots int
	SnapshotTTL     time.Duration
	CacheEnabled    bool
}

// PaymentsConfig points the engine at the payment processor.
type PaymentsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NotificationsConfig governs the fire-and-forget event dispatcher.
type NotificationsConfig struct {
	WebhookURL string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// AssetsConfig controls reference/checkpoint image storage.
type AssetsConfig struct {
	StorageDir       string
	PublicBaseURL    string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
}

// ExportsConfig toggles receipt and roster export endpoints.
type ExportsConfig struct {
	Enabled bool
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
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Queue = QueueConfig{
		DefaultMaxSlots: v.GetInt("QUEUE_DEFAULT_MAX_SLOTS"),
		SnapshotTTL:     parseDuration(v.GetString("QUEUE_SNAPSHOT_TTL"), 5*time.Minute),
		CacheEnabled:    v.GetBool("QUEUE_SNAPSHOT_CACHE"),
	}

	cfg.Payments = PaymentsConfig{
		BaseURL: v.GetString("PAYMENTS_BASE_URL"),
		APIKey:  v.GetString("PAYMENTS_API_KEY"),
		Timeout: parseDuration(v.GetString("PAYMENTS_TIMEOUT"), 15*time.Second),
	}

	cfg.Notifications = NotificationsConfig{
		WebhookURL: v.GetString("NOTIFY_WEBHOOK_URL"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
	}

	maxAssetSize := v.GetInt64("ASSETS_MAX_FILE_SIZE")
	if maxAssetSize <= 0 {
		maxAssetSize = 20 * 1024 * 1024
	}
	cfg.Assets = AssetsConfig{
		StorageDir:       v.GetString("ASSETS_STORAGE_DIR"),
		PublicBaseURL:    v.GetString("ASSETS_PUBLIC_BASE_URL"),
		SignedURLSecret:  v.GetString("ASSETS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("ASSETS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxAssetSize,
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "commission_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "commission-api")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QUEUE_DEFAULT_MAX_SLOTS", 3)
	v.SetDefault("QUEUE_SNAPSHOT_TTL", "5m")
	v.SetDefault("QUEUE_SNAPSHOT_CACHE", false)

	v.SetDefault("PAYMENTS_BASE_URL", "http://localhost:9090")
	v.SetDefault("PAYMENTS_API_KEY", "")
	v.SetDefault("PAYMENTS_TIMEOUT", "15s")

	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")

	v.SetDefault("ASSETS_STORAGE_DIR", "./assets")
	v.SetDefault("ASSETS_PUBLIC_BASE_URL", "http://localhost:8080/assets")
	v.SetDefault("ASSETS_SIGNED_URL_SECRET", "dev_assets_secret")
	v.SetDefault("ASSETS_SIGNED_URL_TTL", "30m")
	v.SetDefault("ASSETS_MAX_FILE_SIZE", 20*1024*1024)

	v.SetDefault("ENABLE_EXPORTS", true)
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
