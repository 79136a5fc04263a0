// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env          string `mapstructure:"APP_ENV"`
	DevtoolsPort string `mapstructure:"DEVTOOLS_PORT"`
	BackendURL   string `mapstructure:"BACKEND_URL"`

	SnapshotBackend  string `mapstructure:"SNAPSHOT_BACKEND"` // memory | file | redis | database
	SnapshotKey      string `mapstructure:"SNAPSHOT_KEY"`
	SnapshotVersion  int    `mapstructure:"SNAPSHOT_VERSION"`
	SnapshotFilePath string `mapstructure:"SNAPSHOT_FILE_PATH"`
	SnapshotDebounce int    `mapstructure:"SNAPSHOT_DEBOUNCE_MS"`
	HydrateTimeout   int    `mapstructure:"HYDRATE_TIMEOUT_SECONDS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	DBDriver   string `mapstructure:"DB_DRIVER"` // sqlite | postgres
	DBPath     string `mapstructure:"DB_PATH"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`
	DemoSeed     bool   `mapstructure:"DEMO_SEED"`

	TracingEnabled bool    `mapstructure:"TRACING_ENABLED"`
	TracingExport  string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	SamplerRatio   float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	// We intentionally ignore this error as the config file may not exist yet
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	// Set default values for development
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DEVTOOLS_PORT", "8460")
	viper.SetDefault("BACKEND_URL", "http://localhost:3001")
	viper.SetDefault("SNAPSHOT_BACKEND", "file")
	viper.SetDefault("SNAPSHOT_KEY", "echocircle:state")
	viper.SetDefault("SNAPSHOT_VERSION", 1)
	viper.SetDefault("SNAPSHOT_FILE_PATH", "echocircle-state.json")
	viper.SetDefault("SNAPSHOT_DEBOUNCE_MS", 250)
	viper.SetDefault("HYDRATE_TIMEOUT_SECONDS", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "echocircle.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "echocircle")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("DEMO_SEED", false)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 0.1)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.SnapshotBackend = strings.ToLower(strings.TrimSpace(config.SnapshotBackend))
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.DevtoolsPort == "" {
		return errors.New("DEVTOOLS_PORT is required")
	}
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.SnapshotKey == "" {
		return errors.New("SNAPSHOT_KEY is required")
	}
	if c.SnapshotVersion < 1 {
		return errors.New("SNAPSHOT_VERSION must be a positive integer")
	}
	if c.HydrateTimeout < 1 {
		return errors.New("HYDRATE_TIMEOUT_SECONDS must be at least 1")
	}

	switch c.SnapshotBackend {
	case "memory", "file", "redis", "database":
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q (expected memory, file, redis or database)", c.SnapshotBackend)
	}

	if c.SnapshotBackend == "file" && c.SnapshotFilePath == "" {
		return errors.New("SNAPSHOT_FILE_PATH is required for the file snapshot backend")
	}
	if c.SnapshotBackend == "redis" && c.RedisURL == "" {
		return errors.New("REDIS_URL is required for the redis snapshot backend")
	}
	if c.SnapshotBackend == "database" {
		switch c.DBDriver {
		case "sqlite":
			if c.DBPath == "" {
				return errors.New("DB_PATH is required for the sqlite database backend")
			}
		case "postgres":
			if c.DBHost == "" || c.DBName == "" {
				return errors.New("DB_HOST and DB_NAME are required for the postgres database backend")
			}
		default:
			return fmt.Errorf("unknown DB_DRIVER %q (expected sqlite or postgres)", c.DBDriver)
		}
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	// Strict checks for production
	if isProduction {
		if c.SnapshotBackend == "memory" {
			return errors.New("SNAPSHOT_BACKEND 'memory' loses all state on restart and is not allowed in production")
		}
		if strings.HasPrefix(c.BackendURL, "http://") {
			log.Println("WARNING: BACKEND_URL uses plain HTTP in production. Bearer tokens will travel unencrypted.")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.DemoSeed {
			return errors.New("DEMO_SEED must not be enabled in production")
		}
	}

	return nil
}
