// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	DatabaseURL       string   // пусто - база не настроена, маршруты отвечают 503
	Port              string
	AllowedOrigins    []string // "*" - разрешены все
	AdminUsername     string
	AdminPassword     string
	Environment       string
	LogLevel          string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	ShutdownTimeout   time.Duration
}

func LoadConfig() *Config {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	environment := strings.ToLower(os.Getenv("APP_ENV"))
	if environment == "" {
		environment = EnvProduction
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
		if environment == EnvDevelopment {
			logLevel = "debug"
		}
	}

	return &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              port,
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		Environment:       environment,
		LogLevel:          logLevel,
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_CONNS", 10),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// AdminConfigured - заданы ли учётные данные администратора для bootstrap
func (c *Config) AdminConfigured() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
