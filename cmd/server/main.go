/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment (optional .env file)
  2. Initialize SQLite store and run migrations
  3. Connect the AMQP delta publisher when a broker is configured
  4. Wire the engine, handler and router
  5. Start server with graceful shutdown

CONFIGURATION (environment variables):
  PORT           HTTP server port (default: 8080)
  DB_PATH        SQLite database path (default: budget.db)
                 Use ":memory:" for an in-memory database
  LOG_LEVEL      debug | info | warn | error (default: info)
  AUTH_SECRET    Token signing secret; empty disables authentication
  AMQP_URL       Broker URL; empty disables delta publishing
  AMQP_EXCHANGE  Exchange for delta events (default: budget)
  AMQP_QUEUE     Bound queue and routing key (default: budget-deltas)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the publisher and the database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - budget/engine.go: The write orchestrator
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budgeteala/budget-engine/api"
	"github.com/budgeteala/budget-engine/auth"
	"github.com/budgeteala/budget-engine/budget"
	"github.com/budgeteala/budget-engine/config"
	amqpevents "github.com/budgeteala/budget-engine/events/amqp"
	"github.com/budgeteala/budget-engine/logging"
	"github.com/budgeteala/budget-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath, log)
	if err != nil {
		log.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher budget.Publisher = budget.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := amqpevents.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		log.Info("delta publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	var tokens *auth.Tokens
	if cfg.AuthSecret != "" {
		tokens = auth.NewTokens(cfg.AuthSecret)
	} else {
		log.Warn("AUTH_SECRET not set, authentication disabled")
	}

	engine := budget.NewEngine(store, log, publisher)
	handler := api.NewHandler(engine, store, tokens, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
