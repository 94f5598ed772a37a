// Package mongostore wraps the MongoDB driver with the connection lifecycle
// and error mapping shared by both graphbook services.
package mongostore

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lewisdbentley/graphbook/errors"
)

// Config holds store client configuration.
type Config struct {
	// URI is the Mongo connection string (required)
	URI string

	// Database is the database name (required)
	Database string

	// PingTimeoutStr bounds the startup reachability check (default "5s")
	PingTimeoutStr string

	pingTimeout time.Duration
}

// Validate applies defaults and rejects unusable values.
func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate",
			"mongo uri is required")
	}
	if c.Database == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate",
			"database name is required")
	}

	if c.PingTimeoutStr == "" {
		c.pingTimeout = 5 * time.Second
	} else {
		d, err := time.ParseDuration(c.PingTimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "parse ping timeout")
		}
		c.pingTimeout = d
	}

	return nil
}

// Client wraps a mongo.Client scoped to one database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect creates the client and checks reachability once. An unreachable
// store is logged, not fatal: the process serves in a degraded state and
// store-backed operations fail per request until the store comes back.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mongostore")

	logger.Info("connecting to MongoDB", "database", cfg.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Connect", "parse client options")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		logger.Error("error connecting to MongoDB", "error", err)
	} else {
		logger.Info("connected to MongoDB")
	}

	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Collection returns a handle on a named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return errors.WrapTransient(err, "Client", "Close", "disconnect")
	}
	return nil
}

// IsDuplicateKey reports whether err is a unique-index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// MapError classifies a driver error into the shared taxonomy. Missing
// documents map to ErrNotFound, unique-index violations to ErrDuplicateKey,
// everything else is treated as transient store trouble.
func MapError(err error, component, method, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(errors.ErrNotFound, component, method, action)
	case IsDuplicateKey(err):
		return errors.WrapInvalid(errors.ErrDuplicateKey, component, method, action)
	default:
		return errors.WrapTransient(err, component, method, action)
	}
}
