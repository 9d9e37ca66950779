/*
Package configs loads the relay's settings from the environment.

Values come from process environment variables, optionally preloaded from a
.env file in the working directory. Defaults are chosen so that a bare
`go run ./cmd` starts a usable development server.
*/
package configs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`

	// AllowedOrigins is a comma separated list of origins accepted for CORS and
	// WebSocket upgrades outside development.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// Relay Settings
	RegistryStripes  int `envconfig:"REGISTRY_STRIPES" default:"64"`
	ClientSendBuffer int `envconfig:"CLIENT_SEND_BUFFER" default:"256"`
	MaxContentBytes  int `envconfig:"MAX_CONTENT_BYTES" default:"5000"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads a .env file if one exists, then parses the environment into
// an AppConfig and validates it.
func LoadConfig() (*AppConfig, error) {
	// a missing .env file is the normal case in production
	_ = godotenv.Load()

	return loadFromEnv()
}

func loadFromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	if c.RegistryStripes <= 0 {
		return errors.New("REGISTRY_STRIPES must be positive")
	}

	if c.ClientSendBuffer <= 0 {
		return errors.New("CLIENT_SEND_BUFFER must be positive")
	}

	if c.MaxContentBytes <= 0 {
		return errors.New("MAX_CONTENT_BYTES must be positive")
	}

	if !c.IsDevelopment() && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", c.Environment)
	}

	return nil
}
