package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the usage service
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Copilot    CopilotConfig
	Monitoring MonitoringConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional: when disabled,
// every report lookup goes to the upstream API.
type RedisConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	ReportCostTTL time.Duration
}

// CopilotConfig holds upstream Copilot API configuration
type CopilotConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	MetricsPath string
	LogLevel    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "120s"),
		},
		Redis: RedisConfig{
			Enabled:       getEnvAsBool("REDIS_ENABLED", false),
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnvAsInt("REDIS_PORT", 6379),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			PoolSize:      getEnvAsInt("REDIS_POOL_SIZE", 10),
			ReportCostTTL: getEnvAsDuration("REPORT_COST_TTL", "5m"),
		},
		Copilot: CopilotConfig{
			BaseURL: getEnv("COPILOT_API_BASE_URL", "https://owpublic.blob.core.windows.net/tech-task"),
			Token:   getEnv("COPILOT_API_TOKEN", ""),
			Timeout: getEnvAsDuration("COPILOT_API_TIMEOUT", "10s"),
		},
		Monitoring: MonitoringConfig{
			MetricsPath: getEnv("METRICS_PATH", "/metrics"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
	}

	// Validate required fields
	if cfg.Copilot.BaseURL == "" {
		return nil, fmt.Errorf("COPILOT_API_BASE_URL is required")
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ := time.ParseDuration(defaultValue)
		return duration
	}
	return value
}
