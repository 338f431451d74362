// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	RedisURL   string `mapstructure:"REDIS_URL"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	GeoAPIBaseURL         string `mapstructure:"GEO_API_BASE_URL"`
	GeoAPITimeoutSeconds  int    `mapstructure:"GEO_API_TIMEOUT_SECONDS"`
	ImageHostUploadURL    string `mapstructure:"IMAGE_HOST_UPLOAD_URL"`
	ImageHostUploadPreset string `mapstructure:"IMAGE_HOST_UPLOAD_PRESET"`
	ImageHostTimeoutSecs  int    `mapstructure:"IMAGE_HOST_TIMEOUT_SECONDS"`
	ImageMaxUploadSizeMB  int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	CatalogRecentLimit   int    `mapstructure:"CATALOG_RECENT_LIMIT"`
	ViewCounterWorkers   int    `mapstructure:"VIEW_COUNTER_WORKERS"`
	ViewCounterQueueSize int    `mapstructure:"VIEW_COUNTER_QUEUE_SIZE"`
	OrphanSweepSchedule  string `mapstructure:"ORPHAN_SWEEP_SCHEDULE"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("Loaded profile-specific configuration", "file", "config."+env+".yml")
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("FEATURE_FLAGS", "strict_location=on,live_catalog=on")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "whereismypet")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "whereismypet.db")
	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("AUTH_AUDIENCE", "")

	viper.SetDefault("GEO_API_BASE_URL", "https://turkiyeapi.dev/api/v1")
	viper.SetDefault("GEO_API_TIMEOUT_SECONDS", 10)
	viper.SetDefault("IMAGE_HOST_UPLOAD_URL", "")
	viper.SetDefault("IMAGE_HOST_UPLOAD_PRESET", "whereismypet")
	viper.SetDefault("IMAGE_HOST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)

	viper.SetDefault("CATALOG_RECENT_LIMIT", 10)
	viper.SetDefault("VIEW_COUNTER_WORKERS", 4)
	viper.SetDefault("VIEW_COUNTER_QUEUE_SIZE", 1024)
	viper.SetDefault("ORPHAN_SWEEP_SCHEDULE", "@hourly")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "otlp")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.GeoAPIBaseURL = strings.TrimRight(strings.TrimSpace(c.GeoAPIBaseURL), "/")
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsTest reports whether the service runs under the test profile.
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

// GeoAPITimeout is the per-request budget for the geographic service.
func (c *Config) GeoAPITimeout() time.Duration {
	return time.Duration(c.GeoAPITimeoutSeconds) * time.Second
}

// ImageHostTimeout is the per-request budget for the image host.
func (c *Config) ImageHostTimeout() time.Duration {
	return time.Duration(c.ImageHostTimeoutSecs) * time.Second
}

// ImageMaxUploadBytes is the largest accepted upload body.
func (c *Config) ImageMaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) << 20
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.CatalogRecentLimit <= 0 {
		return errors.New("CATALOG_RECENT_LIMIT must be positive")
	}
	if c.ViewCounterWorkers <= 0 {
		return errors.New("VIEW_COUNTER_WORKERS must be positive")
	}
	if c.ViewCounterQueueSize <= 0 {
		return errors.New("VIEW_COUNTER_QUEUE_SIZE must be positive")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if _, err := cron.ParseStandard(c.OrphanSweepSchedule); err != nil {
		return fmt.Errorf("ORPHAN_SWEEP_SCHEDULE is invalid: %w", err)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.ImageHostUploadURL == "" {
			return errors.New("IMAGE_HOST_UPLOAD_URL is required in production")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
