// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/core/resource"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Auth      AuthConfig       `yaml:"auth"`
	Admin     AdminConfig      `yaml:"admin"`
	Databases []DatabaseConfig `yaml:"databases"`
	Resources []ResourceConfig `yaml:"resources"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SecureCookies  bool          `yaml:"secure_cookies"` // Set when served over HTTPS
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// AuthConfig configures admin sign-in.
type AuthConfig struct {
	JWTSecret  string            `yaml:"jwt_secret,omitempty"` // Generated at startup when empty
	SessionTTL time.Duration     `yaml:"session_ttl"`
	Admins     []AdminUserConfig `yaml:"admins"`
}

// AdminUserConfig is one account allowed to sign in.
type AdminUserConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"` // bcrypt, see `autoadmin hash-password`
	Role         string `yaml:"role,omitempty"`
}

// AdminConfig configures the admin panel. Empty values fall back to the
// panel's defaults.
type AdminConfig struct {
	RootPath   string         `yaml:"root_path"`
	LoginPath  string         `yaml:"login_path"`
	LogoutPath string         `yaml:"logout_path"`
	Branding   BrandingConfig `yaml:"branding"`
}

// BrandingConfig configures the page chrome.
type BrandingConfig struct {
	LogoURL     string `yaml:"logo_url"`
	CompanyName string `yaml:"company_name"`
	ShowFooter  *bool  `yaml:"show_footer"`
}

// DatabaseConfig is one database whose tables or collections are discovered.
type DatabaseConfig struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"` // "sqlite" or "mongo"

	// DSN is the SQLite file path or DSN.
	DSN string `yaml:"dsn,omitempty"`

	// URI and Database address a MongoDB database.
	URI      string `yaml:"uri,omitempty"`
	Database string `yaml:"database,omitempty"`

	// SampleSize bounds property inference of MongoDB collections.
	SampleSize int `yaml:"sample_size,omitempty"`

	// Discover lists every table of the database. When false only the
	// resources declared for it are shown.
	Discover *bool `yaml:"discover,omitempty"`
}

// Discovers reports whether every table of the database is listed.
func (d DatabaseConfig) Discovers() bool {
	return d.Discover == nil || *d.Discover
}

// ResourceConfig declares one table or collection explicitly, with the
// decorator options inline.
type ResourceConfig struct {
	Database string `yaml:"database"`
	Table    string `yaml:"table"`

	resource.DecoratorOptions `yaml:",inline"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// expandEnv substitutes $VAR and ${VAR}. Unset variables are left as
// written so bcrypt hashes such as "$2a$10$..." survive.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "$" + name
	})
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	AUTOADMIN_SERVER_HOST          - Server host (default: 0.0.0.0)
//	AUTOADMIN_SERVER_PORT          - Server port (default: 8080)
//	AUTOADMIN_LOG_LEVEL            - Log level: debug, info, warn, error (default: info)
//	AUTOADMIN_LOG_FORMAT           - Log format: json or console (default: json)
//	AUTOADMIN_METRICS_ENABLED      - Enable /metrics endpoint
//	AUTOADMIN_JWT_SECRET           - Session signing secret
//	AUTOADMIN_ROOT_PATH            - Admin root path (default: /admin)
//	AUTOADMIN_ADMIN_EMAIL          - Admin email (required)
//	AUTOADMIN_ADMIN_PASSWORD_HASH  - Admin bcrypt hash (required)
//	AUTOADMIN_SQLITE_DSN           - SQLite database to administer
//	AUTOADMIN_MONGO_URI            - MongoDB server to administer
//	AUTOADMIN_MONGO_DATABASE       - MongoDB database name
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set AUTOADMIN_ADMIN_EMAIL")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("AUTOADMIN_ADMIN_EMAIL") != ""
}

// applyEnvOverrides applies AUTOADMIN_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("AUTOADMIN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("AUTOADMIN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AUTOADMIN_SERVER_SECURE_COOKIES"); v != "" {
		cfg.Server.SecureCookies = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("AUTOADMIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUTOADMIN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("AUTOADMIN_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("AUTOADMIN_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// Auth configuration
	if v := os.Getenv("AUTOADMIN_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTOADMIN_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}
	if email := os.Getenv("AUTOADMIN_ADMIN_EMAIL"); email != "" {
		cfg.Auth.Admins = append(cfg.Auth.Admins, AdminUserConfig{
			Email:        email,
			PasswordHash: os.Getenv("AUTOADMIN_ADMIN_PASSWORD_HASH"),
		})
	}

	// Admin configuration
	if v := os.Getenv("AUTOADMIN_ROOT_PATH"); v != "" {
		cfg.Admin.RootPath = v
	}
	if v := os.Getenv("AUTOADMIN_COMPANY_NAME"); v != "" {
		cfg.Admin.Branding.CompanyName = v
	}

	// Database configuration
	if v := os.Getenv("AUTOADMIN_SQLITE_DSN"); v != "" {
		cfg.Databases = append(cfg.Databases, DatabaseConfig{Name: "sqlite", Driver: DriverSQLite, DSN: v})
	}
	if v := os.Getenv("AUTOADMIN_MONGO_URI"); v != "" {
		cfg.Databases = append(cfg.Databases, DatabaseConfig{
			Name:     "mongo",
			Driver:   DriverMongo,
			URI:      v,
			Database: os.Getenv("AUTOADMIN_MONGO_DATABASE"),
		})
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}
	for i := range cfg.Auth.Admins {
		if cfg.Auth.Admins[i].Role == "" {
			cfg.Auth.Admins[i].Role = "admin"
		}
	}

	for i := range cfg.Databases {
		db := &cfg.Databases[i]
		if db.Name == "" {
			db.Name = db.Driver
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if len(cfg.Auth.Admins) == 0 {
		return fmt.Errorf("auth.admins must contain at least one admin")
	}
	for i, a := range cfg.Auth.Admins {
		if a.Email == "" {
			return fmt.Errorf("auth.admins[%d].email is required", i)
		}
		if a.PasswordHash == "" {
			return fmt.Errorf("auth.admins[%d].password_hash is required", i)
		}
	}

	databases := make(map[string]bool, len(cfg.Databases))
	for i, db := range cfg.Databases {
		if databases[db.Name] {
			return fmt.Errorf("databases[%d].name %q is used twice", i, db.Name)
		}
		databases[db.Name] = true

		switch db.Driver {
		case DriverSQLite:
			if db.DSN == "" {
				return fmt.Errorf("databases[%d].dsn is required for sqlite", i)
			}
		case DriverMongo:
			if db.URI == "" || db.Database == "" {
				return fmt.Errorf("databases[%d].uri and database are required for mongo", i)
			}
		default:
			return fmt.Errorf("databases[%d].driver must be 'sqlite' or 'mongo', got %q", i, db.Driver)
		}
	}

	for i, r := range cfg.Resources {
		if r.Table == "" {
			return fmt.Errorf("resources[%d].table is required", i)
		}
		if !databases[r.Database] {
			return fmt.Errorf("resources[%d].database %q is not configured", i, r.Database)
		}
	}

	return nil
}
