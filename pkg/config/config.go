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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Workday  WorkdayConfig
	Geofence GeofenceConfig
	Payroll  PayrollConfig
	Snapshot SnapshotConfig
	Travel   TravelConfig
	Cache    CacheConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkdayConfig holds the wall-clock cutoffs used by attendance
// classification. Values are "HH:MM" strings in local office time.
type WorkdayConfig struct {
	OnTimeCutoff   string
	LateCutoff     string
	CheckoutOpens  string
	CheckoutCloses string
}

// GeofenceConfig tunes the check-in distance check. Enforce turns the
// advisory verdict into a hard rejection.
type GeofenceConfig struct {
	RadiusMeters float64
	Enforce      bool
}

// PayrollConfig governs cycle summary export.
type PayrollConfig struct {
	ExportDir     string
	ExportEnabled bool
}

// SnapshotConfig controls the record-change backup subscriber.
type SnapshotConfig struct {
	Enabled    bool
	Dir        string
	Workers    int
	BufferSize int
}

// TravelConfig carries the field-validation minimums for travel requests.
type TravelConfig struct {
	MinDistanceKM         float64
	MinJustificationWords int
	MinPurposeWords       int
}

// CacheConfig tunes summary caching.
type CacheConfig struct {
	SummaryTTL time.Duration
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Workday = WorkdayConfig{
		OnTimeCutoff:   v.GetString("WORKDAY_ONTIME_CUTOFF"),
		LateCutoff:     v.GetString("WORKDAY_LATE_CUTOFF"),
		CheckoutOpens:  v.GetString("WORKDAY_CHECKOUT_OPENS"),
		CheckoutCloses: v.GetString("WORKDAY_CHECKOUT_CLOSES"),
	}

	cfg.Geofence = GeofenceConfig{
		RadiusMeters: v.GetFloat64("GEOFENCE_RADIUS_METERS"),
		Enforce:      v.GetBool("GEOFENCE_ENFORCE"),
	}

	cfg.Payroll = PayrollConfig{
		ExportDir:     v.GetString("PAYROLL_EXPORT_DIR"),
		ExportEnabled: v.GetBool("PAYROLL_EXPORT_ENABLED"),
	}

	cfg.Snapshot = SnapshotConfig{
		Enabled:    v.GetBool("SNAPSHOT_ENABLED"),
		Dir:        v.GetString("SNAPSHOT_DIR"),
		Workers:    v.GetInt("SNAPSHOT_WORKERS"),
		BufferSize: v.GetInt("SNAPSHOT_BUFFER_SIZE"),
	}

	cfg.Travel = TravelConfig{
		MinDistanceKM:         v.GetFloat64("TRAVEL_MIN_DISTANCE_KM"),
		MinJustificationWords: v.GetInt("TRAVEL_MIN_JUSTIFICATION_WORDS"),
		MinPurposeWords:       v.GetInt("TRAVEL_MIN_PURPOSE_WORDS"),
	}

	cfg.Cache = CacheConfig{
		SummaryTTL: parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "fieldforce_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKDAY_ONTIME_CUTOFF", "10:00")
	v.SetDefault("WORKDAY_LATE_CUTOFF", "14:30")
	v.SetDefault("WORKDAY_CHECKOUT_OPENS", "18:00")
	v.SetDefault("WORKDAY_CHECKOUT_CLOSES", "23:00")

	v.SetDefault("GEOFENCE_RADIUS_METERS", 200.0)
	v.SetDefault("GEOFENCE_ENFORCE", false)

	v.SetDefault("PAYROLL_EXPORT_DIR", "./exports")
	v.SetDefault("PAYROLL_EXPORT_ENABLED", false)

	v.SetDefault("SNAPSHOT_ENABLED", false)
	v.SetDefault("SNAPSHOT_DIR", "./snapshots")
	v.SetDefault("SNAPSHOT_WORKERS", 1)
	v.SetDefault("SNAPSHOT_BUFFER_SIZE", 64)

	v.SetDefault("TRAVEL_MIN_DISTANCE_KM", 10.0)
	v.SetDefault("TRAVEL_MIN_JUSTIFICATION_WORDS", 5)
	v.SetDefault("TRAVEL_MIN_PURPOSE_WORDS", 2)

	v.SetDefault("SUMMARY_CACHE_TTL", "5m")
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
