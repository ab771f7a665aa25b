// Package config loads server configuration from flags, environment variables and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	Name        string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// File enables a rotating JSON log file when non-empty.
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

// DataConfig locates everything the server persists.
type DataConfig struct {
	BasePath string
}

// DatabasePath is the SQLite file.
func (d DataConfig) DatabasePath() string { return filepath.Join(d.BasePath, "readup.db") }

// SearchPath is the bleve index directory.
func (d DataConfig) SearchPath() string { return filepath.Join(d.BasePath, "search") }

// CachePath is the badger directory for computed views.
func (d DataConfig) CachePath() string { return filepath.Join(d.BasePath, "cache") }

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// AuthConfig holds token configuration. Login itself happens elsewhere; the
// server only verifies PASETO tokens minted with the shared key.
type AuthConfig struct {
	AccessTokenDuration time.Duration
}

// RateLimitConfig bounds write requests per client IP.
type RateLimitConfig struct {
	WritesPerSecond float64
	Burst           int
}

// CacheConfig toggles the computed-view cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load builds the configuration with precedence:
// 1. Command-line flags.
// 2. Environment variables.
// 3. .env file.
// 4. Defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("readup", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Rotating log file path")
	dataPath := fs.String("data-path", "", "Base path for the database, search index and caches")
	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 24h)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: value(*env, "ENV", "development"),
			Name:        value("", "APP_NAME", "ReadUp"),
		},
		Logger: LoggerConfig{
			Level:          value(*logLevel, "LOG_LEVEL", "info"),
			File:           value(*logFile, "LOG_FILE", ""),
			FileMaxSizeMB:  intValue("", "LOG_FILE_MAX_SIZE_MB", 50),
			FileMaxBackups: intValue("", "LOG_FILE_MAX_BACKUPS", 5),
			FileMaxAgeDays: intValue("", "LOG_FILE_MAX_AGE_DAYS", 28),
		},
		Data: DataConfig{
			BasePath: value(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        value(*port, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(value(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			WritesPerSecond: floatValue("", "RATE_LIMIT_WRITES_PER_SECOND", 5),
			Burst:           intValue("", "RATE_LIMIT_BURST", 20),
		},
		Cache: CacheConfig{
			Enabled: boolValue("", "CACHE_ENABLED", true),
		},
	}

	durations := []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h"},
		{&cfg.Cache.TTL, "", "CACHE_TTL", "10m"},
	}
	for _, d := range durations {
		raw := value(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.env), raw, err)
		}
		*d.dst = parsed
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	cfg.Data.BasePath, err = expandPath(cfg.Data.BasePath, filepath.Join(home, "ReadUp", "data"))
	if err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if cfg.Logger.File != "" {
		if cfg.Logger.File, err = expandPath(cfg.Logger.File, ""); err != nil {
			return nil, fmt.Errorf("invalid log file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty")
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	if c.RateLimit.WritesPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit must allow at least one request")
	}
	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// An empty path yields defaultPath unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// value returns the first non-empty value from flag, env var, or default.
func value(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// boolValue accepts "true", "1" and "yes" (case-insensitive) as true.
func boolValue(flagValue, envKey string, defaultValue bool) bool {
	raw := strings.ToLower(value(flagValue, envKey, ""))
	if raw == "" {
		return defaultValue
	}
	return raw == "true" || raw == "1" || raw == "yes"
}

func intValue(flagValue, envKey string, defaultValue int) int {
	n, err := strconv.Atoi(value(flagValue, envKey, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func floatValue(flagValue, envKey string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(value(flagValue, envKey, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines into the environment without overriding
// variables that are already set. Lines starting with # are comments.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the operator
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}
	return scanner.Err()
}
