// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Table backends.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// Row identity schemes.
const (
	IdentityPositional = "positional"
	IdentityStable     = "stable"
)

// Config holds application configuration.
type Config struct {
	Port          int
	SpreadsheetID string
	// Credentials is the base64 encoded service account JSON, decoded lazily on first use.
	Credentials  string
	TableBackend string
	RowIdentity  string
	StaticDir    string
	LogLevel     string

	Export ExportConfig
}

// ExportConfig holds the optional snapshot export targets. An empty target is disabled.
type ExportConfig struct {
	Bucket           string
	BigQueryProject  string
	BigQueryDataset  string
	BigQueryTable    string
	NotionToken      string
	NotionDatabaseID string
	// Schedule is a cron spec for periodic exports to every configured target.
	Schedule string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 5000),
		SpreadsheetID: strings.TrimSpace(getEnv("SPREADSHEET_ID", "")),
		Credentials:   strings.TrimSpace(getEnv("GOOGLE_CREDENTIALS", "")),
		TableBackend:  strings.ToLower(getEnv("TABLE_BACKEND", BackendSheets)),
		RowIdentity:   strings.ToLower(getEnv("ROW_IDENTITY", IdentityPositional)),
		StaticDir:     getEnv("STATIC_DIR", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Export: ExportConfig{
			Bucket:           getEnv("EXPORT_BUCKET", ""),
			BigQueryProject:  getEnv("BIGQUERY_PROJECT", ""),
			BigQueryDataset:  getEnv("BIGQUERY_DATASET", "ledger"),
			BigQueryTable:    getEnv("BIGQUERY_TABLE", "transactions_snapshots"),
			NotionToken:      getEnv("NOTION_TOKEN", ""),
			NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
			Schedule:         strings.TrimSpace(getEnv("EXPORT_SCHEDULE", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings. Missing sheet credentials are not an
// error here: they surface on the first request that needs the sheet.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	switch c.TableBackend {
	case BackendSheets, BackendMemory:
	default:
		return fmt.Errorf("invalid TABLE_BACKEND %q (want %q or %q)", c.TableBackend, BackendSheets, BackendMemory)
	}
	switch c.RowIdentity {
	case IdentityPositional, IdentityStable:
	default:
		return fmt.Errorf("invalid ROW_IDENTITY %q (want %q or %q)", c.RowIdentity, IdentityPositional, IdentityStable)
	}
	return nil
}

// BigQueryEnabled reports whether the BigQuery export target is configured.
func (e ExportConfig) BigQueryEnabled() bool {
	return e.BigQueryProject != "" && e.BigQueryDataset != "" && e.BigQueryTable != ""
}

// NotionEnabled reports whether the Notion export target is configured.
func (e ExportConfig) NotionEnabled() bool {
	return e.NotionToken != "" && e.NotionDatabaseID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return -1
	}
	return n
}
