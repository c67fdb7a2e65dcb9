// ABOUTME: Configuration loading and parsing for chatbot-gateway
// ABOUTME: YAML or TOML files with ${VAR} expansion, CHATBOT_* env overrides and tag validation

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete chatbot-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Sessions SessionsConfig `yaml:"sessions" toml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr" toml:"http_addr" env:"CHATBOT_HTTP_ADDR" validate:"required"`
	Name           string   `yaml:"name" toml:"name" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`

	ShutdownTimeout    time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DatabaseConfig selects the message log backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver" env:"CHATBOT_DB_DRIVER" validate:"oneof=sqlite sqlite3 badger memory"`
	Path   string `yaml:"path" toml:"path" env:"CHATBOT_DB_PATH" validate:"required_unless=Driver memory"`
}

// SessionsConfig holds per-connection settings
type SessionsConfig struct {
	// GuestID is used when a chat request carries no session id
	GuestID string `yaml:"guest_id" toml:"guest_id" env:"CHATBOT_GUEST_ID" validate:"required"`
	// ReadLimit caps the size of one inbound WebSocket frame in bytes
	ReadLimit int64 `yaml:"read_limit" toml:"read_limit" validate:"gte=0"`

	WriteTimeout    time.Duration `yaml:"-" toml:"-"`
	WriteTimeoutRaw string        `yaml:"write_timeout" toml:"write_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"CHATBOT_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" env:"CHATBOT_LOG_FORMAT" validate:"oneof=text json"`
}

var validate = validator.New()

// Default returns the configuration used when a file leaves values unset.
// It is also what the init command writes.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:           "0.0.0.0:8000",
			Name:               "SimpleRealtimeChatbot",
			AllowedOrigins:     []string{"*"},
			ShutdownTimeout:    5 * time.Second,
			ShutdownTimeoutRaw: "5s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "chatbot.db",
		},
		Sessions: SessionsConfig{
			GuestID:         "guest",
			ReadLimit:       32768,
			WriteTimeout:    10 * time.Second,
			WriteTimeoutRaw: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Values missing from the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded, then CHATBOT_* variables override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// FromEnv builds a configuration from defaults and CHATBOT_* variables only.
func FromEnv() (*Config, error) {
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path, content string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(content, cfg)
		return err
	default:
		return yaml.Unmarshal([]byte(content), cfg)
	}
}

// Encode renders cfg in the format implied by path's extension.
func Encode(path string, cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
	default:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks field constraints and returns the first failure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if c.Sessions.WriteTimeout <= 0 {
		return fmt.Errorf("sessions.write_timeout must be positive")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	if cfg.Sessions.WriteTimeoutRaw != "" {
		cfg.Sessions.WriteTimeout, err = time.ParseDuration(cfg.Sessions.WriteTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing write_timeout %q: %w", cfg.Sessions.WriteTimeoutRaw, err)
		}
	}

	return nil
}
