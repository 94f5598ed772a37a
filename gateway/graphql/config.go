package graphql

import (
	"fmt"
	"time"

	"github.com/lewisdbentley/graphbook/errors"
)

// Config holds configuration for the GraphQL HTTP server.
type Config struct {
	// BindAddress is the HTTP bind address (default ":4000")
	BindAddress string

	// Path is the GraphQL endpoint path (default "/graphql")
	Path string

	// EnablePlayground serves the GraphQL Playground UI at / (default true)
	EnablePlayground bool

	// EnableCORS enables CORS headers (default true)
	EnableCORS bool

	// CORSOrigins lists allowed CORS origins (default ["*"])
	CORSOrigins []string

	// TimeoutStr is the per-operation timeout (default "30s")
	TimeoutStr string

	// timeout is the parsed duration (internal use)
	timeout time.Duration
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		c.BindAddress = ":4000"
	}

	if c.Path == "" {
		c.Path = "/graphql"
	}
	if c.Path[0] != '/' {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"path must start with /")
	}

	if c.TimeoutStr == "" {
		c.timeout = 30 * time.Second
	} else {
		timeout, err := time.ParseDuration(c.TimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid timeout format: %s", c.TimeoutStr))
		}
		if timeout < 100*time.Millisecond || timeout > 5*time.Minute {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"timeout must be between 100ms and 5m")
		}
		c.timeout = timeout
	}

	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	return nil
}

// Timeout returns the parsed per-operation timeout.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// DefaultConfig returns default GraphQL server configuration.
func DefaultConfig() Config {
	return Config{
		BindAddress:      ":4000",
		Path:             "/graphql",
		EnablePlayground: true,
		EnableCORS:       true,
		CORSOrigins:      []string{"*"},
		TimeoutStr:       "30s",
	}
}
