package config

import (
	"time"
)

// ServerConfig configures the evaluation HTTP API server.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `envconfig:"MAX_HEADER_BYTES" default:"1048576" validate:"min=1024"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRequestBytes int64         `envconfig:"MAX_REQUEST_BYTES" default:"1048576" validate:"min=1024"`

	// APIKeyHash is the SHA-256 hex digest of the accepted inbound API
	// key. Empty disables authentication; production rejects that.
	APIKeyHash string `envconfig:"API_KEY_HASH"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate performs validation on the ServerConfig.
func (c *ServerConfig) Validate() error {
	if err := validatePort(c.Port, "server"); err != nil {
		return err
	}
	if err := validateHost(c.Host, "server"); err != nil {
		return err
	}
	return nil
}
