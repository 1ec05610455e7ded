/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cash book server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Open the storage backend
  3. Open the book (migrates legacy keys, bootstraps the default store)
  4. Start the snapshot scheduler when a snapshot directory is set
  5. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -addr    Listen address, overrides CASHBOOK_ADDR
  -db      SQLite database path, overrides CASHBOOK_SQLITE_PATH
           Use ":memory:" for in-memory database
  -env     .env file to read (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the snapshot scheduler
  4. Close the backend
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cash.db"

  # Share one book between tills through Redis
  CASHBOOK_STORAGE_DRIVER=redis CASHBOOK_REDIS_ADDR=10.0.0.5:6379 ./server

  # Keep CSV snapshots of every write
  CASHBOOK_SNAPSHOT_DIR=./snapshots ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/open.go: Backend selection
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/api"
	"github.com/warp/cashbook/config"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/store"
	"github.com/warp/cashbook/store/sqlite"
)

func main() {
	// Flags
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	envFile := flag.String("env", ".env", ".env file to read")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}

	log := cfg.Logger()
	engine, err := cfg.Engine()
	if err != nil {
		log.Fatalf("Invalid engine settings: %v", err)
	}

	// Initialize backend
	ctx := context.Background()
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		log.WithField("driver", cfg.StorageDriver).Fatalf("Failed to open storage: %v", err)
	}
	defer backend.Close()

	opts := []records.Option{records.WithEngine(engine), records.WithLogger(log)}
	var sink records.SnapshotSink
	if cfg.SnapshotDir != "" {
		sink = records.DirSink{Dir: cfg.SnapshotDir}
		opts = append(opts, records.WithSnapshotSink(sink))
	}

	book, err := records.Open(ctx, backend, opts...)
	if err != nil {
		log.Fatalf("Failed to open book: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(book, log)
	if sink != nil {
		scheduler := api.NewSnapshotScheduler(book, sink, log)
		scheduler.Interval = cfg.SnapshotInterval
		if runs, ok := backend.(*sqlite.Store); ok {
			scheduler.Runs = runs
		}
		handler.Scheduler = scheduler
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		Production:  cfg.Production,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr,
			"storage": cfg.StorageDriver,
			"policy":  cfg.DifferencePolicy,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	log.Info("server stopped")
}
