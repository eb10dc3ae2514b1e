// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"
  token_ttl: "12h"

translator:
  base_url: "https://translate.example.com"
  api_key: "sk-test"
  timeout: "5s"
  cache_ttl: "30m"

superadmin:
  email: "root@example.com"
  password: "changeme"

uploads:
  dir: "./uploads"

logging:
  level: "debug"
  format: "json"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "test-secret")
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want %v", cfg.Auth.TokenTTL, 12*time.Hour)
	}

	if cfg.Translator.BaseURL != "https://translate.example.com" {
		t.Errorf("Translator.BaseURL = %q, want %q", cfg.Translator.BaseURL, "https://translate.example.com")
	}
	if cfg.Translator.Timeout != 5*time.Second {
		t.Errorf("Translator.Timeout = %v, want %v", cfg.Translator.Timeout, 5*time.Second)
	}
	if cfg.Translator.CacheTTL != 30*time.Minute {
		t.Errorf("Translator.CacheTTL = %v, want %v", cfg.Translator.CacheTTL, 30*time.Minute)
	}

	if cfg.Superadmin.Email != "root@example.com" {
		t.Errorf("Superadmin.Email = %q, want %q", cfg.Superadmin.Email, "root@example.com")
	}

	if cfg.Uploads.Dir != "./uploads" {
		t.Errorf("Uploads.Dir = %q, want %q", cfg.Uploads.Dir, "./uploads")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configContent := `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
  password: "changeme"
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want default %v", cfg.Auth.TokenTTL, 24*time.Hour)
	}
	if cfg.Translator.Timeout != 15*time.Second {
		t.Errorf("Translator.Timeout = %v, want default %v", cfg.Translator.Timeout, 15*time.Second)
	}
	if cfg.Translator.CacheTTL != 10*time.Minute {
		t.Errorf("Translator.CacheTTL = %v, want default %v", cfg.Translator.CacheTTL, 10*time.Minute)
	}
	if cfg.Uploads.Dir != "uploads" {
		t.Errorf("Uploads.Dir = %q, want default %q", cfg.Uploads.Dir, "uploads")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "secret-from-env")
	t.Setenv("TEST_TRANSLATOR_KEY", "key-from-env")

	configContent := `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
translator:
  base_url: "https://translate.example.com"
  api_key: "${TEST_TRANSLATOR_KEY}"
superadmin:
  email: "root@example.com"
  password: "changeme"
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "secret-from-env")
	}
	if cfg.Translator.APIKey != "key-from-env" {
		t.Errorf("Translator.APIKey = %q, want %q", cfg.Translator.APIKey, "key-from-env")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configContent := `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "literal-secret"
translator:
  base_url: "https://translate.example.com"
  api_key: "${UNSET_VAR_FOR_TEST}"
superadmin:
  email: "root@example.com"
  password: "changeme"
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Unset env vars should expand to empty string
	if cfg.Translator.APIKey != "" {
		t.Errorf("Translator.APIKey = %q, want empty string for unset env var", cfg.Translator.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configContent := `
server:
  http_addr "missing colon"
`
	_, err := Load(writeConfig(t, configContent))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configContent := `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
  token_ttl: "invalid-duration"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
  password: "changeme"
`
	_, err := Load(writeConfig(t, configContent))
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing http_addr",
			configContent: `
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
  password: "changeme"
`,
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "missing database path",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
auth:
  jwt_secret: "test-secret"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
  password: "changeme"
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "missing jwt_secret",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
  password: "changeme"
`,
			wantErrSubstr: "auth.jwt_secret is required",
		},
		{
			name: "missing superadmin email",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
translator:
  base_url: "https://translate.example.com"
superadmin:
  password: "changeme"
`,
			wantErrSubstr: "superadmin.email is required",
		},
		{
			name: "missing superadmin password",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
translator:
  base_url: "https://translate.example.com"
superadmin:
  email: "root@example.com"
`,
			wantErrSubstr: "superadmin.password is required",
		},
		{
			name: "missing translator base_url",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
superadmin:
  email: "root@example.com"
  password: "changeme"
`,
			wantErrSubstr: "translator.base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.configContent))
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
