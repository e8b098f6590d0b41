// ABOUTME: Configuration loading and parsing for the courier relay
// ABOUTME: Supports YAML files with environment variable expansion and validation

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in storage.backend.
const (
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the complete courier configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bot       BotConfig       `yaml:"bot"`
	Storage   StorageConfig   `yaml:"storage"`
	Admin     AdminConfig     `yaml:"admin"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BotConfig holds the app identity used for outbound channel calls
type BotConfig struct {
	AppID       string `yaml:"app_id"`
	AppPassword string `yaml:"app_password"`
}

// StorageConfig selects and configures the reference store backend
type StorageConfig struct {
	Backend string       `yaml:"backend"`
	File    FileConfig   `yaml:"file"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
}

// FileConfig holds file-backend settings
type FileConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds sqlite-backend settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds redis-backend settings
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// AdminConfig holds the pre-shared credential for administrative endpoints
type AdminConfig struct {
	Token string `yaml:"token"`
}

// BroadcastConfig holds broadcast defaults
type BroadcastConfig struct {
	DefaultMessage string `yaml:"default_message"`
	Workers        int    `yaml:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Storage.Redis.TimeoutRaw != "" {
		cfg.Storage.Redis.Timeout, err = time.ParseDuration(cfg.Storage.Redis.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing redis timeout %q: %w", cfg.Storage.Redis.TimeoutRaw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Admin.Token == "" {
		return fmt.Errorf("admin.token is required")
	}

	switch c.Storage.Backend {
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case BackendFile:
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendMemory:
		// Nothing to configure.
	case "":
		return fmt.Errorf("storage.backend is required")
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}
