package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/handlers"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	if err := database.Connect(); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect()

	handlers.Init()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		// Base64 crop photos are large.
		BodyLimit: 10 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("FRONTEND_URL"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Routes
	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Get("/me", handlers.AuthMiddleware, handlers.Me)

	// Public catalog routes
	api.Get("/crops", handlers.GetCrops)
	api.Get("/crops/:id", handlers.GetCrop)
	api.Get("/pests", handlers.GetPests)
	api.Get("/pests/:id", handlers.GetPest)

	// Public community reads
	api.Get("/community/posts", handlers.GetPosts)
	api.Get("/community/posts/:id/replies", handlers.GetReplies)

	// Public alerts feed
	api.Get("/alerts", handlers.GetAlerts)

	// AI routes (protected)
	ai := api.Group("/ai", handlers.AuthMiddleware)
	ai.Post("/chat", handlers.Chat)
	ai.Post("/identify-image", handlers.IdentifyImage)
	ai.Post("/symptom-check", handlers.SymptomCheck)
	ai.Post("/advisory", handlers.GenerateAdvisory)
	ai.Get("/weather-alerts", handlers.WeatherAlerts)

	// Conversation routes (protected)
	chat := api.Group("/chat", handlers.AuthMiddleware)
	chat.Post("/conversations", handlers.CreateConversation)
	chat.Get("/conversations", handlers.ListConversations)
	chat.Get("/conversations/:id", handlers.GetConversation)
	chat.Patch("/conversations/:id", handlers.UpdateConversation)
	chat.Delete("/conversations/:id", handlers.DeleteConversation)
	chat.Post("/conversations/:conversation_id/messages", handlers.AppendMessage)

	// Spray log routes (protected)
	sprays := api.Group("/spray-logs", handlers.AuthMiddleware)
	sprays.Get("/", handlers.GetSprayLogs)
	sprays.Post("/", handlers.CreateSprayLog)
	sprays.Delete("/:id", handlers.DeleteSprayLog)

	// Community writes (protected)
	community := api.Group("/community", handlers.AuthMiddleware)
	community.Post("/posts", handlers.CreatePost)
	community.Delete("/posts/:id", handlers.DeletePost)
	community.Post("/posts/:id/like", handlers.ToggleLike)
	community.Post("/posts/:id/replies", handlers.CreateReply)
	community.Delete("/replies/:reply_id", handlers.DeleteReply)

	// User routes (protected)
	user := api.Group("/user", handlers.AuthMiddleware)
	user.Get("/profile", handlers.Me)
	user.Put("/profile", handlers.UpdateProfile)
	user.Get("/crops", handlers.GetUserCrops)
	user.Post("/crops", handlers.AddUserCrop)
	user.Delete("/crops/:id", handlers.RemoveUserCrop)

	// Weather forecast for the dashboard (protected)
	api.Get("/alerts/weather-forecast", handlers.AuthMiddleware, handlers.GetWeatherForecast)

	// Admin routes (protected by Auth + Admin middleware)
	admin := api.Group("/admin", handlers.AuthMiddleware, handlers.AdminMiddleware)
	admin.Get("/stats", handlers.GetAdminStats)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}
