// Package config loads the gateway configuration from environment
// variables at startup. Components receive the parsed configuration
// explicitly; nothing reads the environment after startup.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the root configuration object constructed once in main.
type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Session  SessionConfig
	Google   ProviderConfig `envPrefix:"GOOGLE_"`
	Facebook ProviderConfig `envPrefix:"FACEBOOK_"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port    string `env:"PORT"     envDefault:"3000"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000"`
}

// MongoConfig holds the credential store connection settings.
type MongoConfig struct {
	URI            string        `env:"MONGO_URI"             envDefault:"mongodb://127.0.0.1:27017"`
	Database       string        `env:"MONGO_DBNAME"          envDefault:"secretkeeper"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
}

// SessionConfig holds session lifecycle and cookie settings. The secret
// also signs the OAuth state parameter.
type SessionConfig struct {
	Secret       string        `env:"SESSION_SECRET" validate:"required"`
	TTL          time.Duration `env:"SESSION_TTL"    envDefault:"24h"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"sk_session"`
	CookieDomain string        `env:"COOKIE_DOMAIN"`
	CookieSecure bool          `env:"COOKIE_SECURE"`
}

// ProviderConfig holds one external OAuth2 provider's client credentials
// and callback URL.
type ProviderConfig struct {
	ClientID     string        `env:"CLIENT_ID"     validate:"required"`
	ClientSecret string        `env:"CLIENT_SECRET" validate:"required"`
	CallbackURL  string        `env:"CALLBACK_URL"  validate:"required,url"`
	Timeout      time.Duration `env:"TIMEOUT"       envDefault:"10s"`
}

// Load parses and validates the configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
