package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Mail drivers.
const (
	MailDriverSMTP     = "smtp"
	MailDriverSendgrid = "sendgrid"
	MailDriverConsole  = "console"
)

type Config struct {
	Env        string
	Port       int
	APIPrefix  string
	EnableDocs bool
	Timezone   string

	Log        LogConfig
	CORS       CORSConfig
	Redis      RedisConfig
	Sessions   SessionConfig
	Upload     UploadConfig
	Engagement EngagementConfig
	Mail       MailConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig lists the browser origins allowed to call the API; empty allows all.
type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls where uploaded logs live between requests.
type SessionConfig struct {
	Backend   string
	TTL       time.Duration
	KeyPrefix string
}

// UploadConfig bounds incoming CSV uploads.
type UploadConfig struct {
	MaxBytes int64
}

// EngagementConfig holds the pipeline defaults applied when a request omits them.
type EngagementConfig struct {
	LookbackDays     int
	RiskInactiveDays int
	ExcludedOrigins  []string
}

// MailConfig configures the alert transport.
type MailConfig struct {
	Driver         string
	From           string
	SMTPUser       string
	SMTPPassword   string
	SMTPHost       string
	SMTPPort       int
	Timeout        time.Duration
	SendgridAPIKey string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.EnableDocs = v.GetBool("ENABLE_DOCS")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Sessions = SessionConfig{
		Backend:   strings.ToLower(v.GetString("SESSION_BACKEND")),
		TTL:       parseDuration(v.GetString("SESSION_TTL"), 2*time.Hour),
		KeyPrefix: v.GetString("SESSION_KEY_PREFIX"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{MaxBytes: maxUpload}

	cfg.Engagement = EngagementConfig{
		LookbackDays:     clampDays(v.GetInt("LOOKBACK_DAYS"), 3, 30),
		RiskInactiveDays: clampDays(v.GetInt("RISK_INACTIVE_DAYS"), 7, 60),
		ExcludedOrigins:  splitAndTrim(v.GetString("EXCLUDED_ORIGINS")),
	}

	cfg.Mail = MailConfig{
		Driver:         strings.ToLower(v.GetString("MAIL_DRIVER")),
		From:           v.GetString("MAIL_FROM"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPassword:   v.GetString("SMTP_PASS"),
		SMTPHost:       v.GetString("SMTP_SERVER"),
		SMTPPort:       v.GetInt("SMTP_PORT"),
		Timeout:        parseDuration(v.GetString("SMTP_TIMEOUT"), 10*time.Second),
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
	}

	return cfg, nil
}

// Location resolves the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("ENABLE_DOCS", true)
	v.SetDefault("TIMEZONE", "UTC")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_BACKEND", SessionBackendMemory)
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_KEY_PREFIX", "engagement:session:")
	v.SetDefault("UPLOAD_MAX_BYTES", 20*1024*1024)

	v.SetDefault("LOOKBACK_DAYS", 7)
	v.SetDefault("RISK_INACTIVE_DAYS", 14)
	v.SetDefault("EXCLUDED_ORIGINS", "cli")

	v.SetDefault("MAIL_DRIVER", MailDriverSMTP)
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_SERVER", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TIMEOUT", "10s")
	v.SetDefault("SENDGRID_API_KEY", "")
}

// clampDays keeps a default dashboard control inside the range the query
// validator accepts.
func clampDays(days, lo, hi int) int {
	if days < lo {
		return lo
	}
	if days > hi {
		return hi
	}
	return days
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
