// ABOUTME: Configuration loading and parsing for glotdesk
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete glotdesk configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Translator TranslatorConfig `yaml:"translator"`
	Superadmin SuperadminConfig `yaml:"superadmin"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TokenTTLRaw string `yaml:"token_ttl"`
}

// TranslatorConfig holds configuration for the external translation service
type TranslatorConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"-"`
	CacheTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw  string `yaml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl"`
}

// SuperadminConfig holds the bootstrap superadmin account credentials.
// The account is created on first startup if no superadmin exists.
type SuperadminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// UploadsConfig holds voice message upload configuration
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values that have a sensible default when omitted.
func (c *Config) applyDefaults() {
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Translator.Timeout == 0 {
		c.Translator.Timeout = 15 * time.Second
	}
	if c.Translator.CacheTTL == 0 {
		c.Translator.CacheTTL = 10 * time.Minute
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Superadmin.Email == "" {
		return fmt.Errorf("superadmin.email is required")
	}
	if c.Superadmin.Password == "" {
		return fmt.Errorf("superadmin.password is required")
	}

	if c.Translator.BaseURL == "" {
		return fmt.Errorf("translator.base_url is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Translator.TimeoutRaw != "" {
		cfg.Translator.Timeout, err = time.ParseDuration(cfg.Translator.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Translator.TimeoutRaw, err)
		}
	}

	if cfg.Translator.CacheTTLRaw != "" {
		cfg.Translator.CacheTTL, err = time.ParseDuration(cfg.Translator.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.Translator.CacheTTLRaw, err)
		}
	}

	return nil
}
