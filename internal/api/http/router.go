package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-assistant/internal/api/http/handlers"
	"github.com/spec-kit/support-assistant/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Chat              *handlers.ChatHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/session", cfg.Chat.StartSession)

	chat := app.Group("/chat", cfg.SessionMiddleware.Handle)
	chat.Post("/message", cfg.Chat.SendMessage)
	chat.Post("/action", cfg.Chat.SendAction)
	chat.Post("/attachment", cfg.Chat.UploadAttachment)
	chat.Post("/reset", cfg.Chat.Reset)
	chat.Get("/transcript", cfg.Chat.Transcript)
}
