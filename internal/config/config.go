package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendSQLite, BackendMemory, BackendSheets}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	// TrustedProxies adds CIDRs whose forwarding headers are believed.
	TrustedProxies []string

	// Storage
	DataBackend   string
	SQLiteDBPath  string
	DataDirectory string

	// AMQP (empty URL disables rollover notices)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsReadCacheTTL       time.Duration

	// Caches
	EarningsCacheSize int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:   getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/scoreboard.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "scoreboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "rollover_notices"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Scoreboard"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		SheetsReadCacheTTL:       getEnvDuration("SHEETS_READ_CACHE_TTL", 10*time.Second),

		EarningsCacheSize: getEnvInt("EARNINGS_CACHE_SIZE", 64),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether rollover notices should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// problems collects every validation failure so one run reports them all.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate reports every invalid setting at once. For the sqlite backend it
// also creates the database directory.
func (c *Config) Validate() error {
	var p problems
	c.validateServer(&p)
	c.validateStorage(&p)
	c.validateAMQP(&p)
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
}

func (c *Config) validateServer(p *problems) {
	if port, err := strconv.Atoi(c.Port); err != nil {
		p.addf("invalid port '%s': must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}
	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			p.addf("invalid trusted proxy '%s': must be a CIDR such as 100.64.0.0/10", cidr)
		}
	}
	if c.RateLimitPerMinute < 1 {
		p.addf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute)
	}
	if c.EarningsCacheSize < 1 {
		p.addf("invalid earnings cache size %d: must be at least 1", c.EarningsCacheSize)
	}
	if c.ShutdownTimeout < time.Second {
		p.addf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout)
	}
}

func (c *Config) validateStorage(p *problems) {
	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
			return
		}
		if dir := filepath.Dir(c.SQLiteDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.addf("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			p.addf("Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			p.addf("Google Sheet name is required when using sheets backend")
		}
		switch {
		case c.GoogleServiceAccountJSON != "":
		case c.GoogleServiceAccountFile == "":
			p.addf("either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		default:
			if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, fs.ErrNotExist) {
				p.addf("Google service account file does not exist: %s", c.GoogleServiceAccountFile)
			}
		}
		if c.SheetsReadCacheTTL < 0 {
			p.addf("invalid sheets read cache TTL %v: must not be negative", c.SheetsReadCacheTTL)
		}
	default:
		p.addf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends)
	}
}

func (c *Config) validateAMQP(p *problems) {
	if !c.AMQPEnabled() {
		return
	}
	if u, err := url.Parse(c.AMQPURL); err != nil {
		p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		p.addf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if c.AMQPExchange == "" {
		p.addf("AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		p.addf("AMQP queue name cannot be empty when AMQP URL is provided")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
