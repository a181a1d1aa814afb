package engine

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)

	app.All("/webhook", h.Webhook)
	app.Get("/events", h.Events)

	api := app.Group("/api")
	api.Get("/logs", h.Logs)
	api.Get("/stats", h.Stats)
}

// RegisterStatic serves the viewer UI from dir. Call it after RegisterRoutes
// so the API routes take precedence.
func RegisterStatic(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	app.Static("/", dir)
}
