package engine

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"webhook-tester/internal/instrument"
)

// NewApp creates the Fiber app with the error handler and middleware stack
// shared by the server and tests.
func NewApp(logger *zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(instrument.Middleware(logger))
	return app
}
