// Package service carries the shared process lifecycle for the graphbook
// binaries: logger setup, signal handling, and supervised server startup.
package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lewisdbentley/graphbook/errors"
	"github.com/lewisdbentley/graphbook/gateway/graphql"
)

// SetupLogger builds the process logger. Level is debug/info/warn/error,
// format is json or text; anything else falls back to info and json.
func SetupLogger(level, format, name string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", name,
		"pid", os.Getpid(),
	)
}

// Run starts the server and blocks until SIGINT/SIGTERM or a server
// failure, then shuts the server down within the timeout.
func Run(ctx context.Context, server *graphql.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := server.Setup(); err != nil {
		return errors.WrapFatal(err, "Service", "Run", "server setup")
	}

	group, groupCtx := errgroup.WithContext(signalCtx)

	ready := make(chan struct{})
	group.Go(func() error {
		return server.Start(groupCtx, ready)
	})

	select {
	case <-ready:
		logger.Info("service started")
	case <-groupCtx.Done():
	}

	<-groupCtx.Done()
	logger.Info("shutdown requested")

	if err := server.Stop(shutdownTimeout); err != nil {
		return err
	}
	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
