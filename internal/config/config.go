package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageFS  = "fs"
	StorageGCS = "gcs"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string `toml:"server_port"`

	// OpenTelemetry settings
	OTelEnabled  bool   `toml:"otel_enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
	Environment  string `toml:"environment"`

	// Storage settings
	StorageType string `toml:"storage_type"` // fs, gcs
	DataFile    string `toml:"data_file"`
	GCSBucket   string `toml:"gcs_bucket"`
	GCSObject   string `toml:"gcs_object"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:   "8080",
		OTelEnabled:  true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "todolists",
		Environment:  "development",
		StorageType:  StorageFS,
		DataFile:     "db.json",
		GCSObject:    "db.json",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// TODO_CONFIG_FILE (if any), then environment variables. Variables listed in
// the dotenv file named by TODO_ENV_FILE fill in any that are not already set.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("TODO_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if path := os.Getenv("TODO_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", path, err)
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.StorageType = getEnv("STORAGE_TYPE", cfg.StorageType)
	cfg.DataFile = getEnv("DATA_FILE", cfg.DataFile)
	cfg.GCSBucket = getEnv("GCS_BUCKET", cfg.GCSBucket)
	cfg.GCSObject = getEnv("GCS_OBJECT", cfg.GCSObject)

	enabled, err := getEnvBool("OTEL_ENABLED", cfg.OTelEnabled)
	if err != nil {
		return nil, err
	}
	cfg.OTelEnabled = enabled

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	switch c.StorageType {
	case StorageFS:
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required when STORAGE_TYPE is 'fs'")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_TYPE is 'gcs'")
		}
		if c.GCSObject == "" {
			return fmt.Errorf("GCS_OBJECT is required when STORAGE_TYPE is 'gcs'")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE: %s", c.StorageType)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s=%q: %w", key, value, err)
	}
	return b, nil
}
