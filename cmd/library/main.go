// Package main runs the library GraphQL service: a book catalog backed by
// MongoDB with token-based authentication.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/lewisdbentley/graphbook/auth"
	"github.com/lewisdbentley/graphbook/config"
	"github.com/lewisdbentley/graphbook/gateway/graphql"
	"github.com/lewisdbentley/graphbook/library"
	"github.com/lewisdbentley/graphbook/metric"
	"github.com/lewisdbentley/graphbook/mongostore"
	"github.com/lewisdbentley/graphbook/service"
	"github.com/lewisdbentley/graphbook/token"
)

const appName = "library"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	logger := service.SetupLogger(cliCfg.LogLevel, cliCfg.LogFormat, appName)
	slog.SetDefault(logger)

	cfg := config.Config{
		MongoURI:           cliCfg.MongoURI,
		Database:           cliCfg.Database,
		JWTSecret:          cliCfg.JWTSecret,
		BindAddress:        cliCfg.BindAddress,
		EnablePlayground:   cliCfg.EnablePlayground,
		ShutdownTimeoutStr: cliCfg.ShutdownTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.InsecureSecret() {
		logger.Warn("using the default token signing secret; set --jwt-secret in production")
	}

	ctx := context.Background()

	client, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.MongoURI,
		Database: cfg.Database,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	store := library.NewMongoStore(client)
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Warn("could not ensure indexes", "error", err)
	}

	tokens, err := token.NewService([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry(appName)
	resolver := library.NewResolver(store, tokens, logger)
	builder := auth.NewBuilder[library.User](tokens, resolver, logger)

	serverCfg := graphql.DefaultConfig()
	serverCfg.BindAddress = cfg.BindAddress
	serverCfg.EnablePlayground = cfg.EnablePlayground
	if err := serverCfg.Validate(); err != nil {
		return err
	}

	handler := graphql.NewHandler(resolver, builder.Context, metrics, logger, serverCfg.Timeout())
	server, err := graphql.NewServer(serverCfg, handler, metrics, logger)
	if err != nil {
		return err
	}

	return service.Run(ctx, server, cfg.ShutdownTimeout(), logger)
}
