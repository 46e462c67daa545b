package main

import (
	"log"

	"github.com/labstack/echo/v4"
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

	// Connect to the message broker for publishing post.created events
	busClient, err := bus.Connect(cfg.AmqpURL)
	if err != nil {
		log.Fatalf("Failed to connect to the message broker: %v", err)
	}
	defer busClient.Close()

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Run schema migrations and wire routes
	router.AutoMigrate(db.Postgres)
	router.SetupPostRoutes(e, db.Postgres, busClient)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
