package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/app/repository"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/entitlements"
	"github.com/bonlog/bonlog/internal/pkg/jobqueue"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
	"github.com/bonlog/bonlog/internal/pkg/utils"
)

// HandleUserProfile returns a user's public profile and latest posts.
func HandleUserProfile(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory()
	user, err := repos.User.GetByName(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	viewerID := usercontext.GetUserID(c)
	if viewerID != 0 && isBlockedBy(viewerID, user.ID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	posts, err := repos.Post.ByUser(user.ID, parseCursor(c), c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "posts_failed"})
	}

	db := database.GetDB()
	var followers, following int64
	db.Model(&models.Follow{}).Where("followee_id = ?", user.ID).Count(&followers)
	db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&following)

	avatarURL := user.AvatarURL
	if avatarURL == "" {
		avatarURL = utils.GetGravatarURL(user.Email, 200)
	}

	return c.JSON(fiber.Map{
		"user":        user,
		"avatar_url":  avatarURL,
		"posts":       posts,
		"followers":   followers,
		"following":   following,
		"next_before": nextCursor(posts),
	})
}

// HandleUserFollow toggles the follow edge to another user.
func HandleUserFollow(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	target, err := repository.GetGlobalFactory().User.GetByName(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if target.ID == userCtx.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot_follow_self"})
	}
	if isBlockedBy(userCtx.UserID, target.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "blocked"})
	}

	following, err := models.ToggleFollow(database.GetDB(), userCtx.UserID, target.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "follow_failed"})
	}

	if following {
		if q := jobqueue.GetQueue(); q != nil {
			jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
				UserID:      target.ID,
				ActorID:     userCtx.UserID,
				Type:        models.NotificationTypeFollow,
				ReferenceID: userCtx.UserID,
			})
		}
	}

	return c.JSON(fiber.Map{"following": following})
}

// HandleUserBlock toggles a block edge. A block also removes any follow
// edges between the pair.
func HandleUserBlock(c *fiber.Ctx) error {
	return toggleRelationship(c, models.RelationshipBlock)
}

// HandleUserMute toggles a mute edge.
func HandleUserMute(c *fiber.Ctx) error {
	return toggleRelationship(c, models.RelationshipMute)
}

func toggleRelationship(c *fiber.Ctx, kind string) error {
	userCtx := usercontext.GetUserContext(c)
	target, err := repository.GetGlobalFactory().User.GetByName(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if target.ID == userCtx.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_target"})
	}

	db := database.GetDB()
	var existing models.Relationship
	res := db.Where("actor_id = ? AND target_id = ? AND kind = ?", userCtx.UserID, target.ID, kind).First(&existing)
	if res.Error == nil {
		if err := db.Delete(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
		}
		return c.JSON(fiber.Map{"active": false, "kind": kind})
	}

	if err := db.Create(&models.Relationship{ActorID: userCtx.UserID, TargetID: target.ID, Kind: kind}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}

	if kind == models.RelationshipBlock {
		db.Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
			userCtx.UserID, target.ID, target.ID, userCtx.UserID).Delete(&models.Follow{})
	}

	return c.JSON(fiber.Map{"active": true, "kind": kind})
}

// HandleUserNotifications lists the caller's notifications, newest first.
func HandleUserNotifications(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	var notifications []models.Notification
	if err := db.Where("user_id = ?", userCtx.UserID).
		Order("created_at DESC").Limit(50).Find(&notifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}

	unread, _ := models.CountUnreadNotifications(db, userCtx.UserID)
	return c.JSON(fiber.Map{"notifications": notifications, "unread": unread})
}

// HandleUserNotificationsRead marks all of the caller's notifications read.
func HandleUserNotificationsRead(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	err := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userCtx.UserID, false).
		Update("is_read", true).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMembershipSettings shows the caller's membership state. This is the
// page the checkout and portal flows bounce back to.
func HandleMembershipSettings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().User.GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	limits := entitlements.LimitsFor(user.IsPremium)
	return c.JSON(fiber.Map{
		"is_premium":         user.IsPremium,
		"premium_expires_at": user.PremiumExpiresAt,
		"has_subscription":   user.HasStripeSubscription(),
		"limits":             limits,
		"checkout_result":    c.Query("checkout"),
	})
}

// isBlockedBy reports whether either side of the pair blocks the other.
func isBlockedBy(viewerID, targetID uint) bool {
	var n int64
	database.GetDB().Model(&models.Relationship{}).
		Where("kind = ?", models.RelationshipBlock).
		Where("(actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)",
			viewerID, targetID, targetID, viewerID).
		Count(&n)
	return n > 0
}
