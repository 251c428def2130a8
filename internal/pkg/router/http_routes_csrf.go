package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/bonlog/bonlog/app/controllers"
	"github.com/bonlog/bonlog/internal/pkg/env"
	"github.com/bonlog/bonlog/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleHome)

	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Membership and billing
	group.Get("/user/settings/membership", middleware.RequireAuth, controllers.HandleMembershipSettings)
	group.Post("/user/settings/membership/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	group.Post("/user/settings/membership/portal", middleware.RequireAuth, controllers.HandleBillingPortal)
	group.Post("/user/settings/membership/resync", middleware.RequireAuth, controllers.HandleBillingResync)
}
