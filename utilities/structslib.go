package utilities

import (
	"log"
)

// Colors.
const (
	ColorCyan   = "\033[96m" // For startup banners
	ColorRed    = "\033[91m" // For drawdown alerts
	ColorReset  = "\033[0m"
	ColorYellow = "\033[93m" // For entity labels
)

// Logging Level
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// --- Types (Alphabetized) ---

// AlertsConfig defines when the service pushes drawdown notifications.
type AlertsConfig struct {
	CooldownMinutes          int     `mapstructure:"cooldown_minutes"`
	DrawdownThresholdPercent float64 `mapstructure:"drawdown_threshold_percent"`
	Enabled                  bool    `mapstructure:"enabled"`
}

// AppConfig is the root configuration structure, holding all other config sections.
type AppConfig struct {
	Alerts      AlertsConfig    `mapstructure:"alerts"`
	AppName     string          `mapstructure:"app_name"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
	DB          DatabaseConfig  `mapstructure:"database"`
	Discord     DiscordConfig   `mapstructure:"discord"`
	Environment string          `mapstructure:"environment"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Platform    PlatformConfig  `mapstructure:"platform"`
	Version     string          `mapstructure:"version"`
	Web         WebConfig       `mapstructure:"web"`
}

// DashboardConfig holds the entities the dashboard tracks and how often it refreshes them.
type DashboardConfig struct {
	DefaultTimeframe   string   `mapstructure:"default_timeframe"`
	EntityIDs          []string `mapstructure:"entity_ids"`
	LookbackDays       int      `mapstructure:"lookback_days"`
	RefreshIntervalSec int      `mapstructure:"refresh_interval_sec"`
}

// DatabaseConfig holds settings for database connections.
type DatabaseConfig struct {
	DBPath string `mapstructure:"database_path"`
}

// DiscordConfig holds settings for sending notifications via Discord.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Logger provides a structured logger with different levels.
type Logger struct {
	Level  LogLevel
	Logger *log.Logger
}

// LoggingConfig holds settings related to logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LogLevel defines the severity of a log message.
type LogLevel int

// PlatformConfig holds settings for the trading platform REST API.
type PlatformConfig struct {
	APIKey               string  `mapstructure:"api_key"`
	BaseURL              string  `mapstructure:"base_url"`
	EntityInfoTTLMinutes int     `mapstructure:"entity_info_ttl_minutes"`
	MaxRetries           int     `mapstructure:"max_retries"`
	QuoteCurrency        string  `mapstructure:"quote_currency"`
	RateLimitBurst       int     `mapstructure:"rate_limit_burst"`
	RateLimitPerSec      float64 `mapstructure:"rate_limit_per_sec"`
	RequestTimeoutSec    int     `mapstructure:"request_timeout_sec"`
	RetryDelaySec        int     `mapstructure:"retry_delay_sec"`
}

// WebConfig holds settings for the dashboard JSON API server.
type WebConfig struct {
	AuthToken       string `mapstructure:"auth_token"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
	ListenAddr      string `mapstructure:"listen_addr"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
}
