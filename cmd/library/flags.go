package main

import (
	"flag"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	MongoURI         string
	Database         string
	JWTSecret        string
	BindAddress      string
	LogLevel         string
	LogFormat        string
	EnablePlayground bool
	ShutdownTimeout  string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.MongoURI, "mongo-uri",
		getEnv("LIBRARY_MONGO_URI", ""),
		"MongoDB connection string (env: LIBRARY_MONGO_URI)")

	flag.StringVar(&cfg.Database, "database",
		getEnv("LIBRARY_DATABASE", "library"),
		"MongoDB database name (env: LIBRARY_DATABASE)")

	flag.StringVar(&cfg.JWTSecret, "jwt-secret",
		getEnv("LIBRARY_JWT_SECRET", ""),
		"Token signing secret (env: LIBRARY_JWT_SECRET)")

	flag.StringVar(&cfg.BindAddress, "bind",
		getEnv("LIBRARY_BIND_ADDRESS", ":4000"),
		"HTTP bind address (env: LIBRARY_BIND_ADDRESS)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LIBRARY_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: LIBRARY_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LIBRARY_LOG_FORMAT", "json"),
		"Log format: json, text (env: LIBRARY_LOG_FORMAT)")

	flag.BoolVar(&cfg.EnablePlayground, "playground",
		getEnvBool("LIBRARY_PLAYGROUND", true),
		"Serve the GraphQL Playground UI (env: LIBRARY_PLAYGROUND)")

	flag.StringVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnv("LIBRARY_SHUTDOWN_TIMEOUT", "30s"),
		"Graceful shutdown timeout (env: LIBRARY_SHUTDOWN_TIMEOUT)")

	flag.Parse()
	return cfg
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
