package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/app/repository"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

// HandleShopList lists approved shops, optionally filtered by prefecture.
func HandleShopList(c *fiber.Ctx) error {
	shops, err := repository.GetGlobalFactory().Shop.ListByPrefecture(c.Query("prefecture"), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}
	return c.JSON(fiber.Map{"shops": shops})
}

// HandleShopMap lists approved shops inside a map bounding box.
// Query: ?min_lat=&max_lat=&min_lng=&max_lng=
func HandleShopMap(c *fiber.Ctx) error {
	minLat, err1 := strconv.ParseFloat(c.Query("min_lat"), 64)
	maxLat, err2 := strconv.ParseFloat(c.Query("max_lat"), 64)
	minLng, err3 := strconv.ParseFloat(c.Query("min_lng"), 64)
	maxLng, err4 := strconv.ParseFloat(c.Query("max_lng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_bounds"})
	}
	if minLat > maxLat || minLng > maxLng {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_bounds"})
	}

	shops, err := repository.GetGlobalFactory().Shop.ListInBounds(minLat, maxLat, minLng, maxLng, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}
	return c.JSON(fiber.Map{"shops": shops})
}

// HandleShopGet returns one approved shop.
func HandleShopGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}
	shop, err := repository.GetGlobalFactory().Shop.GetByID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	return c.JSON(shop)
}

type createShopRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefecture  string  `json:"prefecture"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	WebsiteURL  string  `json:"website_url"`
	Phone       string  `json:"phone"`
}

// HandleShopCreate submits a shop for the directory. Entries stay hidden
// until a moderator approves them.
func HandleShopCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createShopRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	shop := models.Shop{
		Name:        req.Name,
		Description: req.Description,
		Prefecture:  req.Prefecture,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		WebsiteURL:  req.WebsiteURL,
		Phone:       req.Phone,
		CreatedByID: userCtx.UserID,
	}
	if err := repository.GetGlobalFactory().Shop.Create(&shop); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(shop)
}

// HandleEventCalendar lists events for a given month (?year=&month=),
// defaulting to the current month.
func HandleEventCalendar(c *fiber.Ctx) error {
	now := time.Now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	if month < 1 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_month"})
	}

	events, err := repository.GetGlobalFactory().Event.ListByMonth(year, time.Month(month))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}
	return c.JSON(fiber.Map{"events": events, "year": year, "month": month})
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Prefecture  string `json:"prefecture"`
	Venue       string `json:"venue"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

// HandleEventCreate adds an event to the calendar.
func HandleEventCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createEventRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_starts_at"})
	}

	event := models.Event{
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Prefecture:  req.Prefecture,
		Venue:       req.Venue,
		StartsAt:    startsAt,
		CreatedByID: userCtx.UserID,
	}
	if event.Kind == "" {
		event.Kind = models.EventKindExhibition
	}
	if req.EndsAt != "" {
		endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil || endsAt.Before(startsAt) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_ends_at"})
		}
		event.EndsAt = &endsAt
	}

	if err := repository.GetGlobalFactory().Event.Create(&event); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}
