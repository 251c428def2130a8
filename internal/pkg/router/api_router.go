package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/bonlog/bonlog/app/controllers"
	"github.com/bonlog/bonlog/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")

	// Timeline and posts
	v1.Get("/timeline", controllers.HandleAPITimeline)
	v1.Get("/posts/search", controllers.HandleAPIPostSearch)
	v1.Get("/posts/:uuid", controllers.HandleAPIPostGet)
	v1.Post("/posts", middleware.RequireAPISessionAuth, controllers.HandleAPIPostCreate)
	v1.Delete("/posts/:uuid", middleware.RequireAPISessionAuth, controllers.HandleAPIPostDelete)
	v1.Post("/posts/:uuid/like", middleware.RequireAPISessionAuth, controllers.HandleAPIPostLike)
	v1.Post("/posts/:uuid/bookmark", middleware.RequireAPISessionAuth, controllers.HandleAPIPostBookmark)
	v1.Post("/posts/:uuid/repost", middleware.RequireAPISessionAuth, controllers.HandleAPIPostRepost)
	v1.Get("/posts/:uuid/comments", controllers.HandleAPIPostComments)
	v1.Post("/posts/:uuid/comments", middleware.RequireAPISessionAuth, controllers.HandleAPIPostCommentCreate)
	v1.Get("/posts/:uuid/analytics", middleware.RequireAPISessionAuth, controllers.HandleAPIPostAnalytics)

	// Media uploads (direct-to-S3 via presigned URLs)
	v1.Post("/media/presign", middleware.RequireAPISessionAuth, controllers.HandleAPIMediaPresign)

	// Users and social graph
	v1.Get("/users/:name", controllers.HandleUserProfile)
	v1.Post("/users/:name/follow", middleware.RequireAPISessionAuth, controllers.HandleUserFollow)
	v1.Post("/users/:name/block", middleware.RequireAPISessionAuth, controllers.HandleUserBlock)
	v1.Post("/users/:name/mute", middleware.RequireAPISessionAuth, controllers.HandleUserMute)

	// Notifications
	v1.Get("/notifications", middleware.RequireAPISessionAuth, controllers.HandleUserNotifications)
	v1.Post("/notifications/read", middleware.RequireAPISessionAuth, controllers.HandleUserNotificationsRead)

	// Direct messages
	v1.Get("/messages", middleware.RequireAPISessionAuth, controllers.HandleMessageThreads)
	v1.Get("/messages/:uuid", middleware.RequireAPISessionAuth, controllers.HandleMessageThread)
	v1.Post("/messages/to/:name", middleware.RequireAPISessionAuth, controllers.HandleMessageSend)

	// Shop directory and events calendar
	v1.Get("/shops", controllers.HandleShopList)
	v1.Get("/shops/map", controllers.HandleShopMap)
	v1.Get("/shops/:id", controllers.HandleShopGet)
	v1.Post("/shops", middleware.RequireAPISessionAuth, controllers.HandleShopCreate)
	v1.Get("/events", controllers.HandleEventCalendar)
	v1.Post("/events", middleware.RequireAPISessionAuth, controllers.HandleEventCreate)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
