package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Promotion source kinds accepted by PROMO_SOURCE.
const (
	PromoSourceHTTP     = "http"
	PromoSourceStub     = "stub"
	PromoSourceCatalog  = "catalog"
	PromoSourcePostgres = "postgres"
)

// DefaultCurrencies is the allow-list used when ALLOWED_CURRENCIES is empty.
var DefaultCurrencies = []string{"USD", "EUR", "AED"}

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Quote    QuoteConfig
	FX       FXConfig
	Promo    PromoConfig
	Database DatabaseConfig
	S3       S3Config
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int    `envconfig:"SERVER_PORT" default:"8888"`
	ShutdownTimeout int    `envconfig:"SERVER_SHUTDOWN_TIMEOUT_SEC" default:"30"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// QuoteConfig holds request validation settings.
type QuoteConfig struct {
	AllowedCurrencies string `envconfig:"ALLOWED_CURRENCIES"`
}

// FXConfig holds the rate source settings. An empty BaseURL selects the stub source.
type FXConfig struct {
	BaseURL      string `envconfig:"FX_BASE_URL"`
	TimeoutMS    int    `envconfig:"FX_TIMEOUT_MS" default:"1000"`
	Retries      int    `envconfig:"FX_RETRIES" default:"2"`
	RetryDelayMS int    `envconfig:"FX_RETRY_DELAY_MS" default:"200"`
}

// PromoConfig holds the promotion source settings.
type PromoConfig struct {
	Source       string   `envconfig:"PROMO_SOURCE"`
	BaseURL      string   `envconfig:"PROMO_BASE_URL"`
	TimeoutMS    int      `envconfig:"PROMO_TIMEOUT_MS" default:"1000"`
	CatalogFiles []string `envconfig:"PROMO_CATALOG_FILES" default:"data/promotions/promotions.csv.gz"`
}

// DatabaseConfig holds database-related configuration. Only used by the postgres promotion source.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"loyalty"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
}

// S3Config holds AWS S3 configuration for promotion catalog files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"promotions/"` // Path prefix within bucket
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.FX.BaseURL != "" {
		if err := validateBaseURL(c.FX.BaseURL); err != nil {
			return fmt.Errorf("invalid FX base URL: %w", err)
		}
	}

	if c.FX.TimeoutMS < 1 {
		return fmt.Errorf("FX timeout must be at least 1ms")
	}

	if c.FX.Retries < 0 {
		return fmt.Errorf("FX retries cannot be negative: %d", c.FX.Retries)
	}

	if c.FX.RetryDelayMS < 0 {
		return fmt.Errorf("FX retry delay cannot be negative: %d", c.FX.RetryDelayMS)
	}

	if c.Promo.TimeoutMS < 1 {
		return fmt.Errorf("promotion timeout must be at least 1ms")
	}

	switch c.Promo.Kind() {
	case PromoSourceStub:
	case PromoSourceHTTP:
		if c.Promo.BaseURL == "" {
			return fmt.Errorf("promotion base URL is required for the http promotion source")
		}
		if err := validateBaseURL(c.Promo.BaseURL); err != nil {
			return fmt.Errorf("invalid promotion base URL: %w", err)
		}
	case PromoSourceCatalog:
		if len(c.Promo.CatalogFiles) == 0 {
			return fmt.Errorf("at least one promotion catalog file is required for the catalog promotion source")
		}
		if c.S3.Enabled {
			if c.S3.Bucket == "" {
				return fmt.Errorf("S3 bucket is required when S3 is enabled")
			}
			if c.S3.Region == "" {
				return fmt.Errorf("S3 region is required when S3 is enabled")
			}
		}
	case PromoSourcePostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid promotion source: %s (must be http, stub, catalog, or postgres)", c.Promo.Source)
	}

	return nil
}

// Validate validates the database settings.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// Kind resolves the promotion source. An empty PROMO_SOURCE means http when
// PROMO_BASE_URL is set and stub otherwise.
func (c *PromoConfig) Kind() string {
	kind := strings.ToLower(strings.TrimSpace(c.Source))
	if kind != "" {
		return kind
	}
	if c.BaseURL != "" {
		return PromoSourceHTTP
	}
	return PromoSourceStub
}

// Timeout returns the single-attempt promotion timeout.
func (c *PromoConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Timeout returns the per-attempt rate timeout.
func (c *FXConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryDelay returns the fixed delay between rate attempts.
func (c *FXConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// Currencies returns the parsed currency allow-list.
func (c *QuoteConfig) Currencies() []string {
	return ParseCurrencyList(c.AllowedCurrencies)
}

// ParseCurrencyList parses a comma-separated allow-list. Entries are trimmed
// and upper-cased, empties dropped and duplicates removed keeping first
// occurrence. An empty result falls back to DefaultCurrencies.
func ParseCurrencyList(raw string) []string {
	seen := make(map[string]struct{})
	var currencies []string

	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		currencies = append(currencies, code)
	}

	if len(currencies) == 0 {
		return append([]string(nil), DefaultCurrencies...)
	}
	return currencies
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
