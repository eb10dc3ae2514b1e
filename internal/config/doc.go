// Package config handles configuration loading for glotdesk.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${GLOTDESK_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "24h"
//	translator:
//	  timeout: "15s"
//	  cache_ttl: "10m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and websocket connections
//
// Database:
//
//	database:
//	  path: "/var/lib/glotdesk/glotdesk.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${GLOTDESK_JWT_SECRET}"  # Required
//	  token_ttl: "24h"
//
// Translation service:
//
//	translator:
//	  base_url: "https://translate.example.com"
//	  api_key: "${GLOTDESK_TRANSLATOR_KEY}"
//	  timeout: "15s"
//	  cache_ttl: "10m"
//
// Superadmin bootstrap account (created on first startup):
//
//	superadmin:
//	  email: "admin@example.com"
//	  password: "${GLOTDESK_SUPERADMIN_PASSWORD}"
//
// Voice message uploads:
//
//	uploads:
//	  dir: "/var/lib/glotdesk/uploads"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/glotdesk/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
