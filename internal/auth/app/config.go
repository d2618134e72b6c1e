package app

import (
	"os"
	"strconv"
	"time"

	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/pkg/jwtx"
)

type Config struct {
	Issuer        string // Issuer claim for tokens (default: decorly-auth)
	AccessSecret  string // Required: HS256 secret for access tokens (>= 32 bytes)
	RefreshSecret string // Required: HS256 secret for refresh tokens, must differ

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	LockoutThreshold int           // Failed logins before a lock (default: 5)
	LockoutDuration  time.Duration // Lock duration (default: 15m)
	ResetTokenTTL    time.Duration // Reset-token lifetime (default: 10m)

	DatabaseFile string // Path to SQLite database file (default: ./decorly.db)
	PepperFile   string // Optional: path to password pepper file

	// Optional admin seed, applied once at startup when the address is free.
	// Self-registration can never produce an admin.
	AdminEmail    string
	AdminPassword string

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	CookieSecure  bool // Secure flag on the refresh cookie (default: true outside dev)
	VerboseErrors bool // Leak internal detail in 500 bodies (default: true in dev only)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Reset-token sweep interval (default: 1h)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	return Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "decorly-auth"),
		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", service.DefaultLockoutThreshold),
		LockoutDuration:  getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", service.DefaultLockoutDuration),
		ResetTokenTTL:    getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", service.DefaultResetTokenTTL),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "decorly.db"),
		PepperFile:   os.Getenv("AUTH_PEPPER_FILE"),

		AdminEmail:    os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		Env:       env,
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		CookieSecure:  getEnvBoolOrDefault("AUTH_COOKIE_SECURE", env != "dev"),
		VerboseErrors: getEnvBoolOrDefault("AUTH_VERBOSE_ERRORS", env == "dev"),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
