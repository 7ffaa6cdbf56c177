package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp creates the fiber app with middleware and routes
func NewApp(handler *Handler) *fiber.App {
	writeTimeout := 10 * time.Second
	if handler.timeout > 0 {
		writeTimeout += handler.timeout
	}

	app := fiber.New(fiber.Config{
		AppName:      "RegForecast API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		UnescapePath: true,
		ErrorHandler: ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + SessionHeader,
	}))

	SetupRoutes(app, handler)
	return app
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/regions", handler.ListRegions)
		api.Get("/regions/:region/history", handler.GetHistory)
		api.Post("/regions/:region/forecast", handler.Forecast)

		// Aggregates for comparative views
		api.Get("/summary/regions", handler.GetRegionTotals)
	}
}

// ErrorHandler renders errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
