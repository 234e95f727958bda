// Package config provides configuration management for the GameTester CLI and sandbox
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// EnvPrefix is prepended to every variable name below
const EnvPrefix = "GAMETESTER_"

// Config holds all configuration
type Config struct {
	Client   ClientConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ClientConfig holds SDK session and transport configuration
type ClientConfig struct {
	Mode           gametester.Mode     `env:"MODE" envDefault:"sandbox"`
	DeveloperToken string              `env:"DEVELOPER_TOKEN"`
	PlayerPin      string              `env:"PLAYER_PIN"`
	PlayerToken    string              `env:"PLAYER_TOKEN"`
	BaseURL        string              `env:"BASE_URL"`
	Encoding       gametester.Encoding `env:"ENCODING" envDefault:"json"`
	Timeout        time.Duration       `env:"TIMEOUT" envDefault:"30s"`
}

// ServerConfig holds sandbox HTTP server configuration
type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Seed            bool          `env:"SEED"`
}

// DatabaseConfig holds database configuration.
// An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"postgres"`
	DSN    string `env:"DB_DSN"`
}

// AuthConfig holds player credential configuration
type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"gametester-dev-secret-change-in-production"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"720h"`
	PinCost     int           `env:"PIN_COST" envDefault:"10"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional dotenv files (".env" when none are given) and then
// parses the environment. Variables already set in the environment win over
// dotenv values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_DOTENV").In("config").Wrapf(err, "failed to load dotenv file")
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, oops.Code("CONFIG_PARSE").In("config").Wrapf(err, "failed to parse environment")
	}
	return cfg, nil
}

// SDK converts the client section into an SDK client configuration.
// BaseURL, when set, overrides the URL of the configured mode only.
func (c *ClientConfig) SDK() *gametester.ClientConfig {
	cfg := gametester.DefaultConfig()
	cfg.Encoding = c.Encoding
	cfg.Timeout = c.Timeout
	if c.BaseURL != "" {
		cfg.BaseURLs = map[gametester.Mode]string{c.Mode: c.BaseURL}
	}
	return cfg
}

// Session builds an initialized SDK session from the client section.
// A player token takes precedence over a pin.
func (c *ClientConfig) Session() *gametester.Session {
	session := gametester.NewSession()
	session.Initialize(c.Mode, c.DeveloperToken)
	switch {
	case c.PlayerToken != "":
		session.SetPlayerToken(c.PlayerToken)
	case c.PlayerPin != "":
		session.SetPlayerPin(c.PlayerPin)
	}
	return session
}
