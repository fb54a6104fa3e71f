/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then parse environment and command-line flags
  2. Initialize SQLite store
  3. Create API handler and evaluation scheduler
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (environment variable in brackets):
  -port                HTTP server port [PORT] (default: 8080)
  -db                  SQLite database path [DB_PATH] (default: attendance.db)
                       Use ":memory:" for in-memory database
  -scheduler           Daily evaluation scheduler [SCHEDULER_ENABLED] (default: true)
  -scheduler-interval  Scheduler check interval [SCHEDULER_INTERVAL] (default: 1h)
  -parallelism         Range evaluation parallelism [EVAL_PARALLELISM] (default: 4)
  -range-max-days      Default range bound [RANGE_MAX_DAYS] (default: 62)
  -cors-origins        Allowed CORS origins [CORS_ORIGINS] (comma-separated)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/attendance.db"
  ./server -db=":memory:" -scheduler=false
  PORT=3000 ./server

SEE ALSO:
  - config.go: Environment and flag parsing
  - api/server.go: Router configuration
  - api/scheduler.go: Daily evaluation scheduler
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	LoadEnv()
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.RangeMaxDays = cfg.RangeMaxDays
	handler.Parallelism = cfg.Parallelism

	scheduler := api.NewEvaluationScheduler(store, handler.Ranges)
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Parallelism = cfg.Parallelism
	handler.Scheduler = scheduler
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
