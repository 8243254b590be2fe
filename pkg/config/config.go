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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Moodle       MoodleConfig
	Session      SessionConfig
	CORS         CORSConfig
	Log          LogConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	CatalogCache CatalogCacheConfig
	ProfileStore ProfileStoreConfig
	Metrics      MetricsConfig
}

// MoodleConfig points the service at the upstream LMS.
type MoodleConfig struct {
	BaseURL       string
	ServiceToken  string
	LoginService  string
	StudentRoleID int
	Timeout       time.Duration
	InsecureTLS   bool
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogCacheConfig toggles redis caching of category and public course listings.
type CatalogCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ProfileStoreConfig selects the postgres profile and audit store. When
// disabled, profiles are kept in memory and enrollments are not audited.
type ProfileStoreConfig struct {
	Enabled bool
}

// MetricsConfig gates the prometheus endpoint.
type MetricsConfig struct {
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	roleID := v.GetInt("MOODLE_STUDENT_ROLE_ID")
	if roleID <= 0 {
		roleID = 5
	}
	cfg.Moodle = MoodleConfig{
		BaseURL:       firstNonEmpty(v.GetString("MOODLE_BASE_URL"), v.GetString("PUBLIC_MOODLE_BASE_URL")),
		ServiceToken:  firstNonEmpty(v.GetString("MOODLE_SERVICE_TOKEN"), v.GetString("PUBLIC_MOODLE_SERVICE_TOKEN")),
		LoginService:  firstNonEmpty(v.GetString("MOODLE_LOGIN_SERVICE"), v.GetString("PUBLIC_MOODLE_LOGIN_SERVICE"), "moodle_mobile_app"),
		StudentRoleID: roleID,
		Timeout:       parseDuration(v.GetString("MOODLE_TIMEOUT"), 30*time.Second),
		InsecureTLS:   v.GetBool("MOODLE_INSECURE_TLS"),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		MaxAge:     parseDuration(v.GetString("SESSION_MAX_AGE"), 30*24*time.Hour),
		Secure:     v.GetBool("SESSION_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

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

	cfg.CatalogCache = CatalogCacheConfig{
		Enabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		TTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.ProfileStore = ProfileStoreConfig{Enabled: v.GetBool("ENABLE_PROFILE_STORE")}
	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("MOODLE_BASE_URL", "")
	v.SetDefault("PUBLIC_MOODLE_BASE_URL", "")
	v.SetDefault("MOODLE_SERVICE_TOKEN", "")
	v.SetDefault("PUBLIC_MOODLE_SERVICE_TOKEN", "")
	v.SetDefault("MOODLE_LOGIN_SERVICE", "")
	v.SetDefault("PUBLIC_MOODLE_LOGIN_SERVICE", "")
	v.SetDefault("MOODLE_STUDENT_ROLE_ID", 5)
	v.SetDefault("MOODLE_TIMEOUT", "30s")
	v.SetDefault("MOODLE_INSECURE_TLS", true)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_COOKIE_NAME", "mvc_session")
	v.SetDefault("SESSION_MAX_AGE", "720h")
	v.SetDefault("SESSION_SECURE", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_CATALOG_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_PROFILE_STORE", false)
	v.SetDefault("ENABLE_METRICS", true)
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

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
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
