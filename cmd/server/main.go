package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/garnizeh/repairdesk/api"
	dbfs "github.com/garnizeh/repairdesk/db"
	"github.com/garnizeh/repairdesk/internal/config"
	"github.com/garnizeh/repairdesk/internal/db"
	"github.com/garnizeh/repairdesk/internal/intake"
	"github.com/garnizeh/repairdesk/internal/queue"
	"github.com/garnizeh/repairdesk/internal/repository/sqlite"
	"github.com/garnizeh/repairdesk/internal/share"
	"github.com/garnizeh/repairdesk/internal/tracker"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting repairdesk server version %s (built at %s)", version, buildTime)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)

	ctx := context.Background()

	// Open database connection and apply migrations
	d, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(d, logger)
	ctrl := tracker.NewController(repo, logger)
	if err := ctrl.Refresh(ctx); err != nil {
		// the server can start with an empty collection; the scheduled
		// refresh will catch up once the store is reachable
		log.Printf("Initial job fetch failed: %v", err)
	}
	svc := intake.NewService(repo, repo, logger)

	if err := os.MkdirAll(cfg.DocumentDir, 0o755); err != nil {
		log.Fatalf("Failed to create document dir: %v", err)
	}

	// Background queue for service-request documents
	qrepo := queue.NewRepository(d)
	handlers := map[string]queue.Handler{
		share.TaskDocument: share.NewDocumentHandler(cfg.DocumentDir, logger),
	}
	pool := queue.NewWorkerPool(qrepo, handlers, logger, cfg.Workers)
	pool.Start(ctx)

	enqueue := func(r *http.Request, payload share.DocumentPayload) {
		if _, err := pool.Enqueue(r.Context(), share.TaskDocument, payload, 100, 3); err != nil {
			logger.Error("enqueue share document", "err", err)
		}
	}

	// Keep the materialized collection warm
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.RefreshSchedule, func() {
		if err := ctrl.Refresh(context.Background()); err != nil {
			logger.Error("scheduled refresh", "err", err)
		}
	}); err != nil {
		log.Fatalf("Invalid refresh schedule %q: %v", cfg.RefreshSchedule, err)
	}
	sched.Start()

	handler := api.SetupRoutes(version, buildTime, ctrl, svc, enqueue)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	<-sched.Stop().Done()
	pool.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if err := d.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
