package config

// Storage backends selectable through StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// StorageConfig selects the task repository implementation.
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory postgres sqlite"`
}

// DatabaseConfig contains PostgreSQL settings. URL is only required when the
// postgres backend is selected; Validate enforces that.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// SQLiteConfig contains settings for the embedded SQLite backend.
// An empty Path selects an in-memory database.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}
