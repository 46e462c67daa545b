package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/socialpulse/backend/internal/router"
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

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Run schema migrations and wire routes
	router.AutoMigrate(db.Postgres)
	router.SetupCommentRoutes(e, db.Postgres)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
