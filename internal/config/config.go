// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Default problem parameters. These seed the settings database on first
	// boot and remain the fallback when a solve request omits a field.
	NumAssets    int     // Size of the synthetic asset universe
	Budget       int     // Number of assets to select (equality constraint)
	RiskAversion float64 // Risk-aversion scalar q in q·xᵀΣx − μᵀx
	Penalty      float64 // Budget penalty scale λ; <= 0 means auto-scale
	Seed         int64   // RNG seed for data generation and variational solvers

	// Cloud backup (S3-compatible, Cloudflare R2). Backups are disabled when
	// any of the credentials are empty.
	R2AccountID         string
	R2AccessKeyID       string
	R2SecretAccessKey   string
	R2BucketName        string
	BackupRetentionDays int // Remote archives older than this are rotated out; 0 keeps everything
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. Check EIGENFOLIO_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("EIGENFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("EIGENFOLIO_PORT", 8010),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		NumAssets:    getEnvAsInt("EIGENFOLIO_NUM_ASSETS", 6),
		Budget:       getEnvAsInt("EIGENFOLIO_BUDGET", 3),
		RiskAversion: getEnvAsFloat("EIGENFOLIO_RISK_AVERSION", 0.5),
		Penalty:      getEnvAsFloat("EIGENFOLIO_PENALTY", 0),
		Seed:         int64(getEnvAsInt("EIGENFOLIO_SEED", 123)),

		R2AccountID:         getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:       getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:        getEnv("R2_BUCKET_NAME", ""),
		BackupRetentionDays: getEnvAsInt("EIGENFOLIO_BACKUP_RETENTION_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.NumAssets < 1 {
		return fmt.Errorf("num assets must be at least 1, got %d", c.NumAssets)
	}
	if c.Budget < 0 || c.Budget > c.NumAssets {
		return fmt.Errorf("budget %d outside [0, %d]", c.Budget, c.NumAssets)
	}
	return nil
}

// UpdateFromSettings updates configuration from the settings database.
// Settings DB values take precedence over environment variables so that
// runtime changes made through the API survive without a restart.
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	if v, err := settingsRepo.GetFloat(settings.KeyRiskAversion, c.RiskAversion); err == nil {
		c.RiskAversion = v
	}
	if v, err := settingsRepo.GetFloat(settings.KeyPenalty, c.Penalty); err == nil {
		c.Penalty = v
	}
	if v, err := settingsRepo.GetInt(settings.KeyBudget, c.Budget); err == nil {
		c.Budget = v
	}
	if v, err := settingsRepo.GetInt(settings.KeyNumAssets, c.NumAssets); err == nil {
		c.NumAssets = v
	}
	if v, err := settingsRepo.GetInt(settings.KeySeed, int(c.Seed)); err == nil {
		c.Seed = int64(v)
	}

	// Backup credentials may be stored in settings rather than .env
	keys := map[string]*string{
		"r2_account_id":        &c.R2AccountID,
		"r2_access_key_id":     &c.R2AccessKeyID,
		"r2_secret_access_key": &c.R2SecretAccessKey,
		"r2_bucket_name":       &c.R2BucketName,
	}
	for key, dst := range keys {
		value, err := settingsRepo.Get(key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", key, err)
		}
		// Only use settings DB value if it's not empty; otherwise keep the
		// env var value (if any) as fallback
		if value != nil && *value != "" {
			*dst = *value
		}
	}

	return nil
}

// BackupConfigured reports whether all R2 credentials are present.
func (c *Config) BackupConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
