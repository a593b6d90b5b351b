// Package config loads server settings from flags, the environment and an
// optional .env file.
//
// Precedence, highest first:
//
//	command-line flags (--port)
//	real environment variables
//	values from the .env file
//	struct defaults (envDefault tags)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DevSessionSecret is used when SESSION_SECRET is unset. Fine on a laptop,
// never in production.
const DevSessionSecret = "wellness-app-secret-key-2024"

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	SessionSecret    string        `env:"SESSION_SECRET" envDefault:"wellness-app-secret-key-2024"`
	SessionBackend   string        `env:"SESSION_BACKEND" envDefault:"sqlite"`
	SessionDBPath    string        `env:"SESSION_DB_PATH" envDefault:"data/sessions.db"`
	SessionKeyPrefix string        `env:"SESSION_KEY_PREFIX" envDefault:"wellness:"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"744h"`
	SweepInterval    time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"web/static"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// TrustProxy honours X-Forwarded-* headers from a reverse proxy.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"true"`
}

// Load parses args (without the program name), loads the .env file and the
// environment, and validates the result.
//
// A missing .env file is fine unless --env-file named it explicitly.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("wellness-tracker", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "path to a .env file to load before reading the environment")
	port := flags.IntP("port", "p", 0, "port to listen on (overrides PORT)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || flags.Changed("env-file") {
			return nil, fmt.Errorf("config: loading %s: %w", *envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if flags.Changed("port") {
		cfg.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	switch c.SessionBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// UsingDevSecret reports whether the built-in secret is in use.
func (c *Config) UsingDevSecret() bool {
	return c.SessionSecret == DevSessionSecret
}
