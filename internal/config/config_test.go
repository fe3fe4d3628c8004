package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		Port:                     "8080",
		ImageMaxUploadSizeMB:     5,
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = defaultJWTSecret
	assert.ErrorContains(t, c.Validate(), "JWT_SECRET must be changed")

	c = validConfig()
	c.Env = "production"
	c.JWTSecret = "short"
	assert.ErrorContains(t, c.Validate(), "at least 32 characters")

	c = validConfig()
	c.Env = "production"
	c.DBPassword = "password"
	assert.ErrorContains(t, c.Validate(), "DB_PASSWORD")
}

func TestConfig_ValidateShieldMode(t *testing.T) {
	c := validConfig()
	c.ShieldMode = "DRY_RUN"
	assert.NoError(t, c.Validate())

	c.ShieldMode = "OFF"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateSchemaMode(t *testing.T) {
	for _, mode := range []string{"", "auto", "manual"} {
		c := validConfig()
		c.DBSchemaMode = mode
		assert.NoError(t, c.Validate(), mode)
	}

	c := validConfig()
	c.DBSchemaMode = "hybrid"
	assert.ErrorContains(t, c.Validate(), "DB_SCHEMA_MODE")
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("SHIELD_MODE", " dry_run ")
	t.Setenv("DB_SCHEMA_MODE", " Manual ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "DRY_RUN", c.ShieldMode)
	assert.Equal(t, "manual", c.DBSchemaMode)
	assert.Equal(t, 5, c.ImageMaxUploadSizeMB)
	assert.Equal(t, 800, c.ImageMaxDimension)
	assert.Equal(t, "RavenCube/posts", c.ImageFolder)
	assert.Equal(t, 15, c.ShieldCapacity)
	assert.Equal(t, 10, c.ShieldRefillRate)
	assert.Equal(t, 10, c.ShieldRefillIntervalSeconds)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("IMAGE_MAX_UPLOAD_SIZE_MB", "2")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, 2, c.ImageMaxUploadSizeMB)
	assert.Equal(t, "auto", c.DBSchemaMode)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_MissingProfileFails(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "staging-does-not-exist")

	_, err := LoadConfig()
	assert.Error(t, err)
}
