package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/app/controllers"
	"github.com/bonlog/bonlog/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", controllers.HandleHealth)

	// Short post share links
	app.Get("/p/:code", loggedInMiddleware, controllers.HandlePostShareLink)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
