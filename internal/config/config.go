// Package config defines the pipeline's configuration model. Everything is
// read from environment variables with sensible defaults; the process takes
// no required arguments.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds every knob the pipeline reads.
type Config struct {
	// Destination database.
	DBBackend  string // storage backend kind: postgres, mysql, mssql, sqlite
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBTable    string

	// Source dataset.
	DatasetID     int
	SourceBaseURL string

	// Load behavior.
	BatchSize int

	// Observability.
	LogLevel       string
	MetricsBackend string // "pushgateway" or "none"
	PushgatewayURL string
}

// FromEnv builds the configuration from environment variables, applying
// defaults matching a local Postgres and the UCI Heart Disease dataset.
func FromEnv() Config {
	return Config{
		DBBackend:      envOr("DB_BACKEND", "postgres"),
		DBHost:         envOr("DB_HOST", "db"),
		DBPort:         envOr("DB_PORT", "5432"),
		DBName:         envOr("DB_NAME", "heart_disease"),
		DBUser:         envOr("DB_USER", "postgres"),
		DBPassword:     envOr("DB_PASSWORD", "postgres"),
		DBTable:        envOr("DB_TABLE", ""),
		DatasetID:      envIntOr("DATASET_ID", 45),
		SourceBaseURL:  envOr("SOURCE_BASE_URL", ""),
		BatchSize:      envIntOr("BATCH_SIZE", 1000),
		LogLevel:       envOr("LOG_LEVEL", "INFO"),
		MetricsBackend: envOr("METRICS_BACKEND", "none"),
		PushgatewayURL: envOr("PUSHGATEWAY_URL", "http://localhost:9091"),
	}
}

// DSN renders the connection string for the configured backend.
func (c Config) DSN() string {
	switch c.DBBackend {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	case "mssql":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName)
	case "sqlite":
		// DB_NAME is the database file path.
		return c.DBName
	default:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName)
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
