package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds everything loaded from config.env and the environment.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DSN         string `mapstructure:"DSN"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SeedMemory  bool   `mapstructure:"SEED_MEMORY"`

	DBMaxOpenConns int `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int `mapstructure:"DB_MAX_IDLE_CONNS"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`
	StaffEmails string `mapstructure:"STAFF_EMAILS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	CORSOrigins       string  `mapstructure:"CORS_ORIGINS"`
	IdempotencyDBPath string  `mapstructure:"IDEMPOTENCY_DB_PATH"`
	AuthRateLimit     float64 `mapstructure:"AUTH_RATE_LIMIT"`
	AuthRateBurst     int     `mapstructure:"AUTH_RATE_BURST"`
	RedemptionTTLDays int     `mapstructure:"REDEMPTION_TTL_DAYS"`
}

var defaults = map[string]any{
	"PORT":                "8080",
	"DSN":                 "",
	"STORE_DRIVER":        DriverPostgres,
	"SEED_MEMORY":         true,
	"DB_MAX_OPEN_CONNS":   25,
	"DB_MAX_IDLE_CONNS":   5,
	"JWT_SECRET":          "",
	"JWT_TTL_HOURS":       24 * 7,
	"STAFF_EMAILS":        "",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "text",
	"CORS_ORIGINS":        "*",
	"IDEMPOTENCY_DB_PATH": "idempotency.db",
	"AUTH_RATE_LIMIT":     5.0,
	"AUTH_RATE_BURST":     10,
	"REDEMPTION_TTL_DAYS": 30,
}

// Load reads config.env from dir (if present) and overlays environment
// variables. Every key has a default so AutomaticEnv can bind it.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DSN == "" {
			return errors.New("DSN is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.RedemptionTTLDays <= 0 {
		return errors.New("REDEMPTION_TTL_DAYS must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) RedemptionTTL() time.Duration {
	return time.Duration(c.RedemptionTTLDays) * 24 * time.Hour
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// StaffEmailList returns the lower-cased addresses that register as staff.
func (c *Config) StaffEmailList() []string {
	emails := splitList(c.StaffEmails)
	for i, e := range emails {
		emails[i] = strings.ToLower(e)
	}
	return emails
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
