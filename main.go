// main.go
package main

import (
	"errors"
	"log"
	"os"
	"time"

	"unimap/apperr"
	"unimap/database"
	"unimap/handlers"
	"unimap/middleware"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Initialize the achievement core: catalog first, then the services
	// layered on top of it.
	services.InitCatalog()
	services.InitProgressStore(database.GetDB())
	services.InitUnlockEngine()
	services.InitInviteCoordinator(database.GetDB())

	services.InitCleanupService(database.GetDB())
	services.GetCleanupService().Start()
	defer func() {
		if cleanup := services.GetCleanupService(); cleanup != nil {
			cleanup.Stop()
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB, bounded by the proof media limit
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(middleware.FiberRateLimitMiddleware())

	// Serve the SPA client
	app.Static("/", "./static")

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.FiberAuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)

	// Catalog routes (public, static data)
	api.Get("/catalog", handlers.GetCatalog)
	api.Get("/catalog/:id", handlers.GetAchievement)

	// Leaderboard (public)
	api.Get("/leaderboard", handlers.GetLeaderboard)

	// Progress routes
	progressGroup := api.Group("/progress")
	progressGroup.Use(middleware.AuthMiddleware)
	progressGroup.Get("/", handlers.GetMyProgress)
	progressGroup.Post("/unlock", handlers.Unlock)
	progressGroup.Post("/proof", handlers.AttachProof)
	progressGroup.Post("/scan", handlers.RecordScan)
	progressGroup.Get("/:username", handlers.GetUserProgress)

	// Invite routes
	inviteGroup := api.Group("/invites")
	inviteGroup.Use(middleware.AuthMiddleware)
	inviteGroup.Post("/", handlers.SendInvite)
	inviteGroup.Get("/pending", handlers.GetPendingInvites)
	inviteGroup.Get("/pending/count", handlers.GetPendingInviteCount)
	inviteGroup.Get("/outgoing", handlers.GetOutgoingInvite)
	inviteGroup.Post("/:id/accept", handlers.AcceptInvite)
	inviteGroup.Post("/:id/reject", handlers.RejectInvite)
	inviteGroup.Post("/:id/cancel", handlers.CancelInvite)

	// User routes
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", handlers.GetCurrentUser)
	userGroup.Get("/search", handlers.SearchUsers)
	userGroup.Get("/rank", handlers.GetMyRank)
	userGroup.Get("/:username", handlers.GetUserProfile)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🗺️  Catalog: %d achievements", services.GetCatalog().Len())

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
		if postgresUnconfigured() {
			log.Println("WARNING: running production on the embedded SQLite fallback")
		}
	}
}

func postgresUnconfigured() bool {
	return os.Getenv("DATABASE_URL") == "" && os.Getenv("DB_HOST") == ""
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	// Typed domain errors carry their own status mapping.
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"error":   appErr.Message,
			"kind":    apperr.KindName(appErr.Kind),
		})
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
