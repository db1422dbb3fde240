package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Provider ProviderConfig
	Store    StoreConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ProviderConfig holds extraction-provider configuration
type ProviderConfig struct {
	BaseURL     string
	AccessToken string
	AgentModel  string
	Timeout     time.Duration
}

// StoreConfig holds object-metadata-store configuration
type StoreConfig struct {
	BaseURL     string
	AccessToken string
	Scope       string
	Timeout     time.Duration
}

// PipelineConfig holds batch-processing configuration
type PipelineConfig struct {
	Workers         int
	DocumentTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Provider: ProviderConfig{
			BaseURL:     getEnv("PORTAL_PROVIDER_URL", "https://api.box.com/2.0"),
			AccessToken: getEnv("PORTAL_PROVIDER_TOKEN", ""),
			AgentModel:  getEnv("PORTAL_PROVIDER_MODEL", "azure__openai__gpt_4o_mini"),
			Timeout:     getEnvAsDuration("PORTAL_PROVIDER_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			BaseURL:     getEnv("PORTAL_STORE_URL", "https://api.box.com/2.0"),
			AccessToken: getEnv("PORTAL_STORE_TOKEN", ""),
			Scope:       getEnv("PORTAL_STORE_SCOPE", "enterprise"),
			Timeout:     getEnvAsDuration("PORTAL_STORE_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("PORTAL_WORKERS", 5),
			DocumentTimeout: getEnvAsDuration("PORTAL_DOCUMENT_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Provider.AccessToken == "" {
		return NewAppError("CONFIG_ERROR", "PORTAL_PROVIDER_TOKEN is required", ErrInvalidInput)
	}
	if c.Store.AccessToken == "" {
		return NewAppError("CONFIG_ERROR", "PORTAL_STORE_TOKEN is required", ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "PORTAL_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
