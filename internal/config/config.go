// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoCreate             bool   `mapstructure:"DB_AUTO_CREATE"`
	// DBSchemaMode is "auto" (migrate on connect) or "manual" (cmd/migrate only).
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL        string `mapstructure:"REDIS_URL"`
	CacheTTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`
	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags    string `mapstructure:"FEATURE_FLAGS"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	MediaDir             string `mapstructure:"MEDIA_DIR"`
	MediaBaseURL         string `mapstructure:"MEDIA_BASE_URL"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	ImageMaxDimension    int    `mapstructure:"IMAGE_MAX_DIMENSION"`
	ImageFolder          string `mapstructure:"IMAGE_FOLDER"`

	ShieldMode                  string `mapstructure:"SHIELD_MODE"`
	ShieldCapacity              int    `mapstructure:"SHIELD_CAPACITY"`
	ShieldRefillRate            int    `mapstructure:"SHIELD_REFILL_RATE"`
	ShieldRefillIntervalSeconds int    `mapstructure:"SHIELD_REFILL_INTERVAL_SECONDS"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// IsProduction reports whether the config describes a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
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
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.ShieldMode = strings.ToUpper(strings.TrimSpace(config.ShieldMode))
	config.DBSchemaMode = strings.ToLower(strings.TrimSpace(config.DBSchemaMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "ravencube")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_AUTO_CREATE", false)
	viper.SetDefault("DB_SCHEMA_MODE", "auto")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("CACHE_TTL_SECONDS", 60)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("AUTH_AUDIENCE", "")
	viper.SetDefault("MEDIA_DIR", "./media")
	viper.SetDefault("MEDIA_BASE_URL", "http://localhost:8375/media")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("IMAGE_MAX_DIMENSION", 800)
	viper.SetDefault("IMAGE_FOLDER", "RavenCube/posts")
	viper.SetDefault("SHIELD_MODE", "LIVE")
	viper.SetDefault("SHIELD_CAPACITY", 15)
	viper.SetDefault("SHIELD_REFILL_RATE", 10)
	viper.SetDefault("SHIELD_REFILL_INTERVAL_SECONDS", 10)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	switch c.ShieldMode {
	case "", "LIVE", "DRY_RUN":
	default:
		return fmt.Errorf("SHIELD_MODE must be LIVE or DRY_RUN, got %q", c.ShieldMode)
	}
	switch c.DBSchemaMode {
	case "", "auto", "manual":
	default:
		return fmt.Errorf("DB_SCHEMA_MODE must be auto or manual, got %q", c.DBSchemaMode)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
