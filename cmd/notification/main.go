package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/socialpulse/backend/internal/notifier"
	"github.com/socialpulse/backend/internal/repositories"
	"github.com/socialpulse/backend/internal/router"
	"github.com/socialpulse/backend/pkg/bus"
	"github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Connect to the message broker for consuming domain events
	busClient, err := bus.Connect(cfg.AmqpURL)
	if err != nil {
		log.Fatalf("Failed to connect to the message broker: %v", err)
	}

	// --- Fan-out engine ---
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	postRepo := repositories.NewPostgresPostRepository(db.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(db.Postgres)

	// Delivery reports go to MongoDB when it is configured
	var reportRepo repositories.ReportRepository
	if db.Mongo != nil {
		reportRepo = repositories.NewMongoReportRepository(db.Mongo.Database("socialpulse"))
		log.Println("Fan-out delivery reports enabled.")
	}

	workers, _ := strconv.Atoi(cfg.FanoutWorkers)
	engine := notifier.NewEngine(notificationRepo, postRepo, followRepo, reportRepo, workers)

	// Create Echo instance for the query API
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Run schema migrations and wire routes
	router.AutoMigrate(db.Postgres)
	router.SetupNotificationRoutes(e, db.Postgres)

	// Validator
	e.Validator = validators.NewValidator()

	// Consumers start only after migrations, so the first event finds its tables
	if err := engine.Run(busClient); err != nil {
		log.Fatalf("Failed to start fan-out engine: %v", err)
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	// Wait for shutdown signal, then stop accepting HTTP requests and drain
	// in-flight event deliveries before the process exits.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down notification service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Failed to shut down HTTP server cleanly: %v", err)
	}
	if err := busClient.Close(); err != nil {
		log.Printf("Failed to close broker connection cleanly: %v", err)
	}
}
