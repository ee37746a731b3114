/*
config.go - Environment configuration

PURPOSE:
  All runtime configuration enters through environment variables, with an
  optional .env file for local development. Every value has a default that
  makes the server runnable out of the box except AUTH_SECRET, which must
  be set explicitly when authentication is enabled.

SEE ALSO:
  - cmd/server: the only consumer
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port     int
	DBPath   string
	LogLevel string

	// AuthSecret signs and verifies API tokens. Empty disables the
	// authenticated surface entirely.
	AuthSecret string

	// AMQP settings are optional; an empty URL disables delta publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Load reads an optional .env file and then the environment. A missing
// .env file is not an error; a malformed one is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	return &Config{
		Port:         port,
		DBPath:       stringEnv("DB_PATH", "budget.db"),
		LogLevel:     stringEnv("LOG_LEVEL", "info"),
		AuthSecret:   os.Getenv("AUTH_SECRET"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: stringEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    stringEnv("AMQP_QUEUE", "budget-deltas"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
