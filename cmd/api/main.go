package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/puertolima/puertolima_core/internal/api"
	"github.com/puertolima/puertolima_core/internal/cache"
	"github.com/puertolima/puertolima_core/internal/db"
	"github.com/puertolima/puertolima_core/internal/middleware"
	"github.com/puertolima/puertolima_core/internal/routing"
	"github.com/puertolima/puertolima_core/internal/sectors"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

func main() {
	log.Println("Starting Puerto Lima API server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load the tariff table; every cost figure derives from it
	table, err := tariff.Load()
	if err != nil {
		log.Fatalf("Failed to load tariff table: %v", err)
	}
	log.Println("✓ Tariff table loaded")

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	// Compose the route resolver: OSRM behind the route cache, degrading to
	// a corrected great-circle estimate when the provider is unavailable
	osrmConfig := routing.LoadOSRMConfigFromEnv()
	osrm, err := routing.NewOSRMResolver(osrmConfig)
	if err != nil {
		log.Fatalf("Failed to configure route provider: %v", err)
	}

	store := sectors.NewPostgresStore(pool)
	resolver := &routing.Fallback{
		Primary: routing.NewCachedResolver(osrm, osrmConfig.Profile),
		Estimate: &routing.GreatCircleResolver{
			Factor: table.CorrectionFor,
			Region: sectors.RegionFunc(store),
		},
	}
	log.Printf("✓ Route resolver ready (provider: %s)", osrmConfig.BaseURL)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Puerto Lima API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Routes
	app.Get("/", api.ServiceInfo)
	app.Get("/health", api.Health)

	v1 := app.Group("/v1", middleware.RateLimitMiddleware(rdb, middleware.LoadRateLimitConfigFromEnv()))
	v1.Post("/comparisons", api.CompareHandler(table, resolver))
	v1.Post("/comparisons/sensitivity", api.SensitivityHandler(table, resolver))
	v1.Post("/comparisons/breakeven", api.BreakEvenHandler(table, resolver))
	v1.Post("/reports", api.ReportHandler(table, resolver))
	v1.Get("/sectors/lookup", api.SectorLookupHandler(store))

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	// Get port from environment
	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Comparisons: POST http://localhost%s/v1/comparisons", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
