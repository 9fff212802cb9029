package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers understood by the entity store accessor.
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

// Completion sources for the canonical completion fact.
const (
	CompletionSourceUser  = "user"
	CompletionSourceClass = "class"
)

type Config struct {
	Env         string
	Port        int
	APIPrefix   string
	StoreDriver string

	Mongo     MongoConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
}

// MongoConfig points at the primary learner-activity database.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// DatabaseConfig describes the optional Postgres reporting replica.
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

// JWTConfig controls validation of admin access tokens issued by the auth collaborator.
type JWTConfig struct {
	Enabled bool
	Secret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs computation policy and cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	CacheEnabled     bool
	CacheTTL         time.Duration
	Timezone         string
	Location         *time.Location
	CompletionSource string
	FocusCountry     string
	LeaderboardSize  int
	DropOffDetailed  bool
	ReadTimeout      time.Duration
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

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	if cfg.StoreDriver != StoreDriverMongo && cfg.StoreDriver != StoreDriverPostgres {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.Mongo = MongoConfig{
		URI:      v.GetString("MONGO_URI"),
		Database: v.GetString("MONGO_DATABASE"),
		Timeout:  parseDuration(v.GetString("MONGO_TIMEOUT"), 10*time.Second),
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

	cfg.JWT = JWTConfig{
		Enabled: v.GetBool("AUTH_ENABLED"),
		Secret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	tz := strings.TrimSpace(v.GetString("ANALYTICS_TIMEZONE"))
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load ANALYTICS_TIMEZONE %q: %w", tz, err)
	}

	source := strings.ToLower(strings.TrimSpace(v.GetString("ANALYTICS_COMPLETION_SOURCE")))
	if source != CompletionSourceUser && source != CompletionSourceClass {
		return nil, fmt.Errorf("unsupported ANALYTICS_COMPLETION_SOURCE %q", source)
	}

	leaderboardSize := v.GetInt("ANALYTICS_LEADERBOARD_SIZE")
	if leaderboardSize <= 0 {
		leaderboardSize = 20
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled:     v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL:         parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), time.Minute),
		Timezone:         tz,
		Location:         loc,
		CompletionSource: source,
		FocusCountry:     strings.TrimSpace(v.GetString("ANALYTICS_FOCUS_COUNTRY")),
		LeaderboardSize:  leaderboardSize,
		DropOffDetailed:  v.GetBool("ANALYTICS_DROPOFF_DETAILED"),
		ReadTimeout:      parseDuration(v.GetString("ANALYTICS_READ_TIMEOUT"), 15*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORE_DRIVER", StoreDriverMongo)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "youdiscovery")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "learning_replica")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "1m")
	v.SetDefault("ANALYTICS_TIMEZONE", "UTC")
	v.SetDefault("ANALYTICS_COMPLETION_SOURCE", CompletionSourceUser)
	v.SetDefault("ANALYTICS_FOCUS_COUNTRY", "Nigeria")
	v.SetDefault("ANALYTICS_LEADERBOARD_SIZE", 20)
	v.SetDefault("ANALYTICS_DROPOFF_DETAILED", false)
	v.SetDefault("ANALYTICS_READ_TIMEOUT", "15s")
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
