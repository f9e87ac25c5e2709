// Package config provides client configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds comms-client configuration.
type Config struct {
	// COMMS: connect to the bus at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"comms-client"`

	// MinServerVersion is the semver constraint the connected server must
	// satisfy (empty = library default).
	MinServerVersion string `envconfig:"COMMS_MIN_SERVER_VERSION"`

	// Connection tuning
	ConnectTimeout time.Duration `envconfig:"COMMS_CONNECT_TIMEOUT" default:"10s"`
	ReconnectWait  time.Duration `envconfig:"COMMS_RECONNECT_WAIT" default:"2s"`
	MaxReconnects  int           `envconfig:"COMMS_MAX_RECONNECTS" default:"60"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required", logPrefix)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s - COMMS_CONNECT_TIMEOUT must be positive", logPrefix)
	}
	if c.ReconnectWait <= 0 {
		return fmt.Errorf("%s - COMMS_RECONNECT_WAIT must be positive", logPrefix)
	}
	return nil
}
