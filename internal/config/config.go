package config

import (
	"os"
	"strconv"

	"biasaudit/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig `validate:"required"`
	Admin    AdminConfig  `validate:"required"`
	Database DatabaseConfig
	Audit    AuditConfig `validate:"required"`
	Log      LogConfig   `validate:"required"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string `validate:"required,numeric"`
	GinMode      string `validate:"oneof=debug release test"`
	MaxUploadMB  int    `validate:"min=1,max=1024"`
	AllowOrigins string
}

// AdminConfig holds the metrics/pprof router settings
type AdminConfig struct {
	Port    string `validate:"required_if=Enabled true"`
	Enabled bool
}

// DatabaseConfig holds the optional report ledger connection. An empty URL disables it.
type DatabaseConfig struct {
	URL string
}

// AuditConfig holds the pipeline constants
type AuditConfig struct {
	Seed             int64   `validate:"gte=0"`
	TestRatio        float64 `validate:"gt=0,lt=1"`
	MaxExplainRows   int     `validate:"min=1"`
	TopK             int     `validate:"min=1"`
	ForestTrees      int     `validate:"min=1,max=1000"`
	ForestMaxDepth   int     `validate:"min=1,max=64"`
	LogisticMaxIter  int     `validate:"min=1"`
	LogisticStepSize float64 `validate:"gt=0"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string `validate:"oneof=debug info warn error"`
	Development bool
}

// Default returns the configuration used when no environment overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			GinMode:      "release",
			MaxUploadMB:  50,
			AllowOrigins: "*",
		},
		Admin: AdminConfig{
			Port:    "6060",
			Enabled: true,
		},
		Audit: AuditConfig{
			Seed:             42,
			TestRatio:        0.2,
			MaxExplainRows:   100,
			TopK:             5,
			ForestTrees:      50,
			ForestMaxDepth:   10,
			LogisticMaxIter:  1000,
			LogisticStepSize: 0.5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the environment (and a .env file when present) and validates it
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	d := Default()
	config := &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", d.Server.Port),
			GinMode:      getEnvOrDefault("GIN_MODE", d.Server.GinMode),
			MaxUploadMB:  getEnvIntOrDefault("MAX_UPLOAD_MB", d.Server.MaxUploadMB),
			AllowOrigins: getEnvOrDefault("CORS_ALLOW_ORIGINS", d.Server.AllowOrigins),
		},
		Admin: AdminConfig{
			Port:    getEnvOrDefault("ADMIN_PORT", d.Admin.Port),
			Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", d.Admin.Enabled),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Audit: AuditConfig{
			Seed:             getEnvInt64OrDefault("AUDIT_SEED", d.Audit.Seed),
			TestRatio:        getEnvFloatOrDefault("AUDIT_TEST_RATIO", d.Audit.TestRatio),
			MaxExplainRows:   getEnvIntOrDefault("AUDIT_MAX_EXPLAIN_ROWS", d.Audit.MaxExplainRows),
			TopK:             getEnvIntOrDefault("AUDIT_TOP_K", d.Audit.TopK),
			ForestTrees:      getEnvIntOrDefault("AUDIT_FOREST_TREES", d.Audit.ForestTrees),
			ForestMaxDepth:   getEnvIntOrDefault("AUDIT_FOREST_MAX_DEPTH", d.Audit.ForestMaxDepth),
			LogisticMaxIter:  getEnvIntOrDefault("AUDIT_LOGISTIC_MAX_ITER", d.Audit.LogisticMaxIter),
			LogisticStepSize: getEnvFloatOrDefault("AUDIT_LOGISTIC_STEP", d.Audit.LogisticStepSize),
		},
		Log: LogConfig{
			Level:       getEnvOrDefault("LOG_LEVEL", d.Log.Level),
			Development: getEnvBoolOrDefault("LOG_DEVELOPMENT", d.Log.Development),
		},
	}

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks struct constraints
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "configuration validation failed")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
