package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store kinds.
const (
	SessionStoreDatabase = "database"
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
)

// DefaultCORSOrigins are the origins of the bundled web client in development.
var DefaultCORSOrigins = []string{"http://localhost:5500", "http://127.0.0.1:5500"}

type Config struct {
	// HTTP Server
	Port         string
	StaticDir    string
	CORSOrigins  []string
	SecureCookie bool

	// Persistence
	DatabaseURL string

	// Sessions
	SessionStore         string
	RedisURL             string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Logging
	LogLevel string

	// Variables that were set but could not be parsed
	parseErrors []string
}

// LoadDotEnv reads variables from the given files (".env" when none are
// given) into the environment. Missing files are ignored and variables that
// are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment. Values that do not
// parse keep their default and are reported by Validate.
func Load() *Config {
	var errs []string
	return &Config{
		Port:         getEnv("PORT", "3001"),
		StaticDir:    getEnv("STATIC_DIR", ""),
		CORSOrigins:  getEnvList("CORS_ORIGINS", DefaultCORSOrigins),
		SecureCookie: getEnvBool("SECURE_COOKIE", false, &errs),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SessionStore:         getEnv("SESSION_STORE", SessionStoreDatabase),
		RedisURL:             getEnv("REDIS_URL", ""),
		SessionTTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour, &errs),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour, &errs),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		parseErrors: errs,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errs := append([]string(nil), c.parseErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	switch c.SessionStore {
	case SessionStoreDatabase, SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required when SESSION_STORE is redis")
		} else if u, err := url.Parse(c.RedisURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid REDIS_URL '%s': %v", c.RedisURL, err))
		} else if u.Scheme != "redis" && u.Scheme != "rediss" {
			errs = append(errs, fmt.Sprintf("invalid REDIS_URL scheme '%s': must be 'redis' or 'rediss'", u.Scheme))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid session store '%s': must be one of [%s %s %s]",
			c.SessionStore, SessionStoreDatabase, SessionStoreMemory, SessionStoreRedis))
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionSweepInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid session sweep interval %v: must be at least 1 second", c.SessionSweepInterval))
	}

	for _, origin := range c.CORSOrigins {
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool, errs *[]string) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid %s '%s': must be true or false", key, value))
			return defaultValue
		}
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid %s '%s': must be a duration such as 168h", key, value))
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
