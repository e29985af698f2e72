// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for the SQLite databases (always absolute)
	Port               int
	LogLevel           string
	DevMode            bool
	AlphaVantageAPIKey string
	LogoURLTemplate    string // Printf-style template with one %s for the symbol variant
	QuickQuoteBaseURL  string // No-credential quote provider base URL
	Backup             *BackupConfig
}

// BackupConfig holds settings for nightly backups to S3-compatible storage.
type BackupConfig struct {
	Enabled         bool
	Schedule        string // cron expression
	Endpoint        string // custom endpoint for S3-compatible providers (R2, MinIO); empty for AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path and ensure the directory exists
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
		LogoURLTemplate:    getEnv("LOGO_URL_TEMPLATE", "https://assets.parqet.com/logos/symbol/%s?format=png"),
		QuickQuoteBaseURL:  getEnv("QUICKQUOTE_BASE_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
		Backup:             loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.AlphaVantageAPIKey == "" {
		return fmt.Errorf("ALPHAVANTAGE_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_S3_BUCKET is required when backups are enabled")
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:        getEnv("BACKUP_SCHEDULE", "30 2 * * *"), // 02:30 nightly
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
