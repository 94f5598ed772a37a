// Package config holds process-wide startup configuration for a graphbook
// service: the store connection string and the token signing secret, plus
// server settings. Secrets and connection strings are always injected here
// at startup, never embedded in the components that use them.
package config

import (
	"fmt"
	"time"

	"github.com/lewisdbentley/graphbook/errors"
)

// DefaultJWTSecret is used when no signing secret is configured. It is
// insecure by definition; startup logs a warning whenever it is in effect.
const DefaultJWTSecret = "NEED_HERE_A_SECRET_KEY"

// Config is the startup configuration for one service process.
type Config struct {
	// MongoURI is the document store connection string (required)
	MongoURI string

	// Database is the Mongo database name (required)
	Database string

	// JWTSecret signs bearer tokens; falls back to DefaultJWTSecret
	JWTSecret string

	// BindAddress is the HTTP bind address (default ":4000")
	BindAddress string

	// EnablePlayground serves the GraphQL Playground UI at / (default true,
	// controlled by the caller)
	EnablePlayground bool

	// ShutdownTimeoutStr bounds graceful shutdown (default "30s")
	ShutdownTimeoutStr string

	shutdownTimeout time.Duration
}

// Validate applies defaults and rejects unusable values.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate",
			"mongodb uri is required")
	}
	if c.Database == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate",
			"database name is required")
	}

	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}

	if c.BindAddress == "" {
		c.BindAddress = ":4000"
	}

	if c.ShutdownTimeoutStr == "" {
		c.shutdownTimeout = 30 * time.Second
	} else {
		d, err := time.ParseDuration(c.ShutdownTimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid shutdown timeout: %s", c.ShutdownTimeoutStr))
		}
		if d < time.Second || d > 5*time.Minute {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"shutdown timeout must be between 1s and 5m")
		}
		c.shutdownTimeout = d
	}

	return nil
}

// ShutdownTimeout returns the parsed graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return c.shutdownTimeout
}

// InsecureSecret reports whether the signing secret is the known default.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}
