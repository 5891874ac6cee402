package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "PORT", "ALLOWED_ORIGINS", "ADMIN_USERNAME", "ADMIN_PASSWORD",
		"APP_ENV", "LOG_LEVEL", "DB_MAX_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.AdminConfigured())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://root:pw@localhost:3306/genmon")
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://genmon.example, http://localhost:5173 ,")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "rootpw")
	t.Setenv("APP_ENV", "Development")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DB_MAX_CONNS", "3")
	t.Setenv("DB_MAX_IDLE_CONNS", "not-a-number")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")

	cfg := LoadConfig()

	assert.Equal(t, "mysql://root:pw@localhost:3306/genmon", cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"https://genmon.example", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.True(t, cfg.AdminConfigured())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
