package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/socialpulse/backend/internal/handlers"
	"github.com/socialpulse/backend/internal/middleware"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/repositories"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.Secure())
	log.Println("Global middleware configured.")
}

// AutoMigrate runs PostgreSQL schema migrations for all models. Every service
// runs it on startup so any of them can bring up a fresh database.
func AutoMigrate(pgdb *gorm.DB) {
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
		&models.Follow{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")
}

// SetupUserRoutes configures the user service: authentication, profiles, and
// follow relationships.
func SetupUserRoutes(e *echo.Echo, pgdb *gorm.DB, publisher handlers.EventPublisher) {
	e.GET("/health", handlers.HealthCheck("user"))

	userRepo := repositories.NewPostgresUserRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, publisher)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	followHandler := handlers.NewFollowHandler(followRepo, userRepo)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")
}

// SetupPostRoutes configures the post service: posts and reactions.
func SetupPostRoutes(e *echo.Echo, pgdb *gorm.DB, publisher handlers.EventPublisher) {
	e.GET("/health", handlers.HealthCheck("post"))

	postRepo := repositories.NewPostgresPostRepository(pgdb)
	reactionRepo := repositories.NewPostgresReactionRepository(pgdb)

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	postHandler := handlers.NewPostHandler(postRepo, publisher)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	reactionHandler := handlers.NewReactionHandler(reactionRepo, postRepo)
	reactionHandler.RegisterReactionRoutes(api)
	log.Println("Reaction routes configured.")
}

// SetupCommentRoutes configures the comment service.
func SetupCommentRoutes(e *echo.Echo, pgdb *gorm.DB) {
	e.GET("/health", handlers.HealthCheck("comment"))

	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	postRepo := repositories.NewPostgresPostRepository(pgdb)
	userRepo := repositories.NewPostgresUserRepository(pgdb)

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")
}

// SetupNotificationRoutes configures the notification service's query API.
func SetupNotificationRoutes(e *echo.Echo, pgdb *gorm.DB) {
	e.GET("/health", handlers.HealthCheck("notification"))

	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")
}
