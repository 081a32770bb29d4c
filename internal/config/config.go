package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is a postgres connection string for the postgres driver and a file
// path (or ":memory:") for the sqlite driver.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TaskConfig contains settings for the background job runner.
type TaskConfig struct {
	WorkerCount                  int `mapstructure:"worker_count"                     validate:"required,gt=0"`
	BatchSize                    int `mapstructure:"batch_size"                       validate:"required,gt=0"`
	PollIntervalMs               int `mapstructure:"poll_interval_ms"                 validate:"required,gte=50"`
	StuckJobAgeMinutes           int `mapstructure:"stuck_job_age_minutes"            validate:"required,gt=0"`
	StuckJobCheckIntervalMinutes int `mapstructure:"stuck_job_check_interval_minutes" validate:"required,gt=0"`
	BackoffBaseSeconds           int `mapstructure:"backoff_base_seconds"             validate:"required,gt=0"`
	BackoffMaxSeconds            int `mapstructure:"backoff_max_seconds"              validate:"required,gtefield=BackoffBaseSeconds"`
}

// NotifyConfig contains settings for reminder delivery.
type NotifyConfig struct {
	Methods       []string `mapstructure:"methods"         validate:"required,min=1,dive,required"`
	RatePerSecond float64  `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst         int      `mapstructure:"burst"           validate:"gt=0"`
}
