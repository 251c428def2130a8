package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

const (
	AUTH_KEY      string = "authenticated"
	USER_ID       string = "user_id"
	USER_NAME     string = "username"
	USER_IS_ADMIN string = "isAdmin"
)

func flashError(c *fiber.Ctx, message, target string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect(target)
}

func flashSuccess(c *fiber.Ctx, message, target string) error {
	fm := fiber.Map{
		"type":    "success",
		"message": message,
	}
	return flash.WithSuccess(c, fm).Redirect(target)
}

// parseCursor reads a RFC3339 "before" query parameter for feed pagination.
// Missing or malformed cursors fall back to now.
func parseCursor(c *fiber.Ctx) time.Time {
	raw := c.Query("before")
	if raw == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Now()
	}
	return t
}
