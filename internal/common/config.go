package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Jobs   JobsConfig
	Sheets SheetConfig
}

// ServerConfig holds the HTTP surface configuration
type ServerConfig struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// JobsConfig holds job manager configuration
type JobsConfig struct {
	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	Retention   time.Duration
	ArtifactDir string
	// RegistryDSN points at a sqlite file for the job registry.
	// Empty selects the in-memory registry.
	RegistryDSN string
}

// SheetConfig holds parser configuration
type SheetConfig struct {
	// ColumnMapPath points at a JSON column-map file overriding the
	// built-in header synonyms. Empty uses the embedded default.
	ColumnMapPath string
	// HeaderScanRows bounds how deep the header search looks.
	HeaderScanRows int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HPPD_ADDR", ":8080"),
			MaxUploadBytes:  getEnvAsInt64("HPPD_MAX_UPLOAD_BYTES", 64<<20),
			ShutdownTimeout: getEnvAsDuration("HPPD_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			Workers:     getEnvAsInt("HPPD_WORKERS", 4),
			QueueSize:   getEnvAsInt("HPPD_QUEUE_SIZE", 64),
			JobTimeout:  getEnvAsDuration("HPPD_JOB_TIMEOUT", 5*time.Minute),
			Retention:   getEnvAsDuration("HPPD_RETENTION", time.Hour),
			ArtifactDir: getEnv("HPPD_ARTIFACT_DIR", os.TempDir()),
			RegistryDSN: getEnv("HPPD_REGISTRY_DSN", ""),
		},
		Sheets: SheetConfig{
			ColumnMapPath:  getEnv("HPPD_COLUMN_MAP", ""),
			HeaderScanRows: getEnvAsInt("HPPD_HEADER_SCAN_ROWS", 20),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HPPD_ADDR is required", ErrInvalidInput)
	}
	if c.Jobs.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "HPPD_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Jobs.Retention <= 0 {
		return NewAppError("CONFIG_ERROR", "HPPD_RETENTION must be positive", ErrInvalidInput)
	}
	if c.Jobs.ArtifactDir == "" {
		return NewAppError("CONFIG_ERROR", "HPPD_ARTIFACT_DIR is required", ErrInvalidInput)
	}
	return nil
}
