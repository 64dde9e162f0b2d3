// Package config loads the passport server configuration from the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the passport server configuration.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Addr        string `env:"ADDR"                           envDefault:":8080"`

	// CSRFSecret signs the CSRF cookies.
	CSRFSecret string `env:"CSRF_SECRET,required,notEmpty"`

	CookieSecure      bool          `env:"COOKIE_SECURE"`
	SessionExpiresIn  time.Duration `env:"SESSION_EXPIRES_IN"  envDefault:"720h"`
	ResetTicketExpiry time.Duration `env:"RESET_TICKET_EXPIRY" envDefault:"15m"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    envDefault:"10s"`

	LogLevel  slog.Level `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the dotenv files, if any, and parses the configuration from
// the process environment.
//
// Variables already present in the environment take precedence over the
// ones from the files.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load dotenv file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	return &cfg, nil
}

// Parse parses the configuration from environ instead of the process
// environment.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	return &cfg, nil
}
