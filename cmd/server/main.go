/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ride compliance and payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment, optional .env)
  2. Apply command-line flag overrides and validate
  3. Initialize logger and SQLite store
  4. Create session, API handler and router
  5. Start the month-end close scheduler (if companies are configured)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (APP_PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: rides.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  SERVICE_NAME, LOGGER_LEVEL, APP_PORT, DB_PATH, SESSION_CONCURRENCY,
  ALLOWED_ORIGINS, AUTH_SECRET, CLOSE_COMPANIES, CLOSE_INTERVAL
  (see config/config.go). Tokens are minted with cmd/token.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the close scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/rides.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Close March for two companies every 15 minutes
  CLOSE_COMPANIES=acme,globex CLOSE_INTERVAL=15m ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/ride-engine/api"
	"github.com/warp/ride-engine/config"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/logger"
	"github.com/warp/ride-engine/session"
	"github.com/warp/ride-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.Int("port", cfg.AppPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.AppPort = *port
	cfg.DBPath = *dbPath

	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", logger.Error(err))
		os.Exit(1)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to initialize database", logger.Error(err), logger.String("db", cfg.DBPath))
		os.Exit(1)
	}
	defer store.Close()

	sess := session.New(session.Config{
		Concurrency: cfg.SessionConcurrency,
		Logger:      log.With(logger.String("component", "session")),
	})

	handler := api.NewHandler(store, sess, log.With(logger.String("component", "api")))
	router := api.NewRouter(handler, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthSecret:     cfg.AuthSecret,
	})
	if cfg.AuthSecret == "" {
		log.Warning("AUTH_SECRET not set, API is unauthenticated")
	}

	companies := make([]generic.CompanyID, 0, len(cfg.CloseCompanies))
	for _, c := range cfg.CloseCompanies {
		companies = append(companies, generic.CompanyID(c))
	}
	scheduler := api.NewCloseScheduler(store, sess, companies, log)
	scheduler.CheckInterval = cfg.CloseInterval
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", logger.Int("port", cfg.AppPort), logger.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", logger.Error(err))
		return
	}

	log.Info("server stopped")
}
