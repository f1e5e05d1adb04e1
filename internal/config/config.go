// ABOUTME: Configuration loading and parsing for todo-list
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields left empty in the file
const (
	DefaultBasePath        = "/todos"
	DefaultDriver          = "sqlite"
	DefaultMongoDatabase   = "todo_list"
	DefaultSessionBackend  = "database"
	DefaultSessionDuration = 14 * 24 * time.Hour
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"

	// MinSecretLength is the shortest accepted sessions.secret
	MinSecretLength = 16
)

// DSNEnvVar overrides database.dsn when set.
const DSNEnvVar = "TODO_DB_DSN"

// Config represents the complete todo-list configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Sessions  SessionsConfig  `yaml:"sessions" toml:"sessions"`
	Accounts  AccountsConfig  `yaml:"accounts" toml:"accounts"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	BasePath string `yaml:"base_path" toml:"base_path"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "sqlite" (pure Go), "sqlite3" (cgo), "pgx" (PostgreSQL)
	// or "mongo" (MongoDB)
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`

	// Name is the MongoDB database name; ignored by the SQL drivers
	Name string `yaml:"name" toml:"name"`
}

// SessionsConfig holds browser session configuration
type SessionsConfig struct {
	// Backend is "database" or "redis"
	Backend  string        `yaml:"backend" toml:"backend"`
	Secret   string        `yaml:"secret" toml:"secret"`
	Duration time.Duration `yaml:"-" toml:"-"`
	Redis    RedisConfig   `yaml:"redis" toml:"redis"`

	// Raw string value for unmarshaling
	DurationRaw string `yaml:"duration" toml:"duration"`
}

// RedisConfig holds the Redis session backend connection
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

// AccountsConfig holds account settings
type AccountsConfig struct {
	// BcryptCost of 0 uses bcrypt.DefaultCost
	BcryptCost int `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if dsn := os.Getenv(DSNEnvVar); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills empty optional fields.
func (c *Config) ApplyDefaults() {
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.Driver == "mongo" && c.Database.Name == "" {
		c.Database.Name = DefaultMongoDatabase
	}
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = DefaultSessionBackend
	}
	if c.Sessions.Duration == 0 {
		c.Sessions.Duration = DefaultSessionDuration
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /")
	}
	if strings.TrimRight(c.Server.BasePath, "/") == "" {
		return fmt.Errorf("server.base_path cannot be the site root")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3", "pgx", "mongo":
	default:
		return fmt.Errorf("database.driver must be sqlite, sqlite3, pgx or mongo, got %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if len(c.Sessions.Secret) < MinSecretLength {
		return fmt.Errorf("sessions.secret must be at least %d characters", MinSecretLength)
	}

	switch c.Sessions.Backend {
	case "database":
	case "redis":
		if c.Sessions.Redis.Addr == "" {
			return fmt.Errorf("sessions.redis.addr is required when sessions.backend is redis")
		}
	default:
		return fmt.Errorf("sessions.backend must be database or redis, got %q", c.Sessions.Backend)
	}

	if c.Sessions.Duration < 0 {
		return fmt.Errorf("sessions.duration must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Sessions.DurationRaw != "" {
		d, err := time.ParseDuration(cfg.Sessions.DurationRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.duration %q: %w", cfg.Sessions.DurationRaw, err)
		}
		cfg.Sessions.Duration = d
	}
	return nil
}
