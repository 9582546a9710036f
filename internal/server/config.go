// Package server provides configuration helpers that define runtime
// defaults, validation, and tuning parameters for the WinChat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// SystemName is the sender name used for server announcements.
	SystemName string
	// MaxPendingPerUser caps each recipient's offline-message buffer;
	// the oldest entry is evicted when the cap is hit. Zero disables
	// the cap.
	MaxPendingPerUser int
	// StaticDir, when non-empty, is served at "/" for the bundled
	// frontend.
	StaticDir string

	// DirectoryDSN is the MySQL DSN of the external USERSLOG user
	// directory. Empty disables the directory merge.
	DirectoryDSN string
	// RedisAddr enables cache-aside caching of directory lookups.
	RedisAddr string
	// DirectoryRefresh is how often the presence view refreshes its
	// directory snapshot.
	DirectoryRefresh time.Duration
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Port: ":3500",
		AllowedOrigins: []string{
			"http://localhost:3500",
			"http://127.0.0.1:5500",
		},
		MaxMessageSize: 10 << 20, // base64 file and image payloads ride inside message events
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		SystemName:        "Admin",
		MaxPendingPerUser: 500,
		DirectoryRefresh:  time.Minute,
	}
}

// NewConfigFromEnv creates a Config from environment variables, falling
// back to defaults for anything unset.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if system := os.Getenv("SYSTEM_NAME"); system != "" {
		cfg.SystemName = system
	}

	if maxPending := os.Getenv("MAX_PENDING_PER_USER"); maxPending != "" {
		if parsed, err := strconv.Atoi(maxPending); err == nil && parsed >= 0 {
			cfg.MaxPendingPerUser = parsed
		}
	}

	cfg.StaticDir = os.Getenv("STATIC_DIR")
	cfg.DirectoryDSN = os.Getenv("DIRECTORY_DSN")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	if refresh := os.Getenv("DIRECTORY_REFRESH_SECONDS"); refresh != "" {
		cfg.DirectoryRefresh = parseSeconds(refresh, cfg.DirectoryRefresh)
	}

	return cfg
}

// sanitize fills in zero values that would otherwise break the server.
func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":3500"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 10 << 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if c.SystemName == "" {
		c.SystemName = "Admin"
	}
	if c.DirectoryRefresh <= 0 {
		c.DirectoryRefresh = time.Minute
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
