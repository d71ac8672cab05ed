package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Connector ConnectorConfig `yaml:"connector"`
}

// ServerConfig represents service identity configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents REST API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NATSConfig represents NATS configuration. An empty URL disables the
// alert/reading publishers.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// AuthConfig lists the accounts allowed to call the API. The gateway
// persists nothing, so accounts live in configuration rather than a
// database.
type AuthConfig struct {
	Users []UserConfig `yaml:"users"`
}

// UserConfig is one configured account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// GatewayConfig tunes the ingestion gateway
type GatewayConfig struct {
	HistoryLimit      int           `yaml:"history_limit"`
	HistoryQueryLimit int           `yaml:"history_query_limit"`
	MaxRecentErrors   int           `yaml:"max_recent_errors"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// ConnectorConfig tunes the protocol drivers
type ConnectorConfig struct {
	OpenTimeout  time.Duration `yaml:"open_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load reads the configuration file and fills in defaults. A missing file
// is not an error: the defaults describe a working local setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Run on defaults.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "telemetry-gateway"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8095
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 24 * time.Hour
	}
	if c.Gateway.HistoryLimit == 0 {
		c.Gateway.HistoryLimit = 1000
	}
	if c.Gateway.HistoryQueryLimit == 0 {
		c.Gateway.HistoryQueryLimit = 100
	}
	if c.Gateway.MaxRecentErrors == 0 {
		c.Gateway.MaxRecentErrors = 20
	}
	if c.Gateway.ReconnectInterval == 0 {
		c.Gateway.ReconnectInterval = 5 * time.Second
	}
	if c.Connector.OpenTimeout == 0 {
		c.Connector.OpenTimeout = 10 * time.Second
	}
	if c.Connector.PollInterval == 0 {
		c.Connector.PollInterval = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Gateway.HistoryLimit < 1 {
		return fmt.Errorf("gateway.history_limit must be positive")
	}
	if c.Connector.OpenTimeout < time.Second {
		return fmt.Errorf("connector.open_timeout must be at least 1s")
	}
	if c.Connector.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("connector.poll_interval must be at least 100ms")
	}
	if len(c.Auth.Users) > 0 && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required when auth users are configured")
	}
	return nil
}

// Addr returns the API listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
