package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is read when FINTRACK_CONFIG is not set and the file exists.
const DefaultConfigFile = "fintrack.toml"

type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Storage
	DataBackend  string `toml:"data_backend"`
	DataDir      string `toml:"data_dir"`
	SQLiteDBPath string `toml:"sqlite_db_path"`

	// Presentation
	Timezone string `toml:"timezone"`
	Currency string `toml:"currency"`

	// AMQP (optional)
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Error reporting (optional)
	SentryDSN   string `toml:"sentry_dsn"`
	Environment string `toml:"environment"`

	// Timers
	ResetCheckInterval time.Duration `toml:"-"`
	CountdownInterval  time.Duration `toml:"-"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// File is the TOML file that was applied, if any.
	File string `toml:"-"`
}

// fileConfig mirrors Config for TOML decoding; durations are strings.
type fileConfig struct {
	Config
	ResetCheckInterval string `toml:"reset_check_interval"`
	CountdownInterval  string `toml:"countdown_interval"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		DataBackend:        "file",
		DataDir:            "./data",
		SQLiteDBPath:       "./data/fintrack.db",
		Timezone:           "Local",
		Currency:           "Rp",
		AMQPExchange:       "fintrack",
		AMQPQueue:          "budget_events",
		Environment:        "development",
		ResetCheckInterval: time.Minute,
		CountdownInterval:  time.Minute,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FINTRACK_CONFIG (or ./fintrack.toml when present), then the environment.
func Load() (*Config, error) {
	cfg := Defaults()

	path, explicit := os.LookupEnv("FINTRACK_CONFIG")
	if !explicit || path == "" {
		path, explicit = DefaultConfigFile, false
	}
	if err := cfg.applyFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Config: *c}
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.ResetCheckInterval != "" {
		d, err := time.ParseDuration(fc.ResetCheckInterval)
		if err != nil {
			return fmt.Errorf("config file %s: reset_check_interval: %w", path, err)
		}
		fc.Config.ResetCheckInterval = d
	}
	if fc.CountdownInterval != "" {
		d, err := time.ParseDuration(fc.CountdownInterval)
		if err != nil {
			return fmt.Errorf("config file %s: countdown_interval: %w", path, err)
		}
		fc.Config.CountdownInterval = d
	}

	*c = fc.Config
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.Currency = getEnv("CURRENCY", c.Currency)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	c.SentryDSN = getEnv("SENTRY_DSN", c.SentryDSN)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ResetCheckInterval = getEnvDuration("RESET_CHECK_INTERVAL", c.ResetCheckInterval)
	c.CountdownInterval = getEnvDuration("COUNTDOWN_INTERVAL", c.CountdownInterval)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Location resolves Timezone; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "file", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(filepath.Dir(c.SQLiteDBPath)); msg != "" {
			errs = append(errs, msg)
		}
	case "file":
		if c.DataDir == "" {
			errs = append(errs, "data directory cannot be empty when using file backend")
		} else if msg := ensureDir(c.DataDir); msg != "" {
			errs = append(errs, msg)
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SentryDSN != "" {
		if u, err := url.Parse(c.SentryDSN); err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid Sentry DSN '%s'", c.SentryDSN))
		}
	}

	if c.ResetCheckInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid reset check interval %v: must be at least 1 second", c.ResetCheckInterval))
	} else if c.ResetCheckInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid reset check interval %v: must be at most 24 hours", c.ResetCheckInterval))
	}
	if c.CountdownInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid countdown interval %v: must be at least 1 second", c.CountdownInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func ensureDir(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("cannot create directory '%s': %v", dir, err)
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
