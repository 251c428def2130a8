package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/internal/pkg/statistics"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

// HandleHome renders the landing page, or the home timeline for logged-in
// users (the actual feed loads via the timeline API).
func HandleHome(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	stats := statistics.GetStatisticsData()
	return c.Render("home", fiber.Map{
		"Title":      "BON-LOG",
		"IsLoggedIn": userCtx.IsLoggedIn,
		"Username":   userCtx.Username,
		"IsPremium":  userCtx.IsPremium,
		"TotalPosts": stats.TotalPosts,
		"TodayPosts": stats.TodayPosts,
		"TotalUsers": stats.TotalUsers,
	})
}

// HandleHealth is the load balancer health check.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
