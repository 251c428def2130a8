package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/app/repository"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/jobqueue"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

// HandleMessageThreads lists the caller's DM threads, most recent first.
func HandleMessageThreads(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	var threads []models.MessageThread
	err := db.Where("user_a_id = ? OR user_b_id = ?", userCtx.UserID, userCtx.UserID).
		Order("last_message_at DESC").Limit(50).Find(&threads).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}

	unread, _ := models.CountUnreadMessages(db, userCtx.UserID)
	return c.JSON(fiber.Map{"threads": threads, "unread": unread})
}

// HandleMessageThread returns the messages of one thread and marks the
// caller's incoming messages read.
func HandleMessageThread(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	var thread models.MessageThread
	if err := db.Where("uuid = ?", c.Params("uuid")).First(&thread).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if thread.UserAID != userCtx.UserID && thread.UserBID != userCtx.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	var messages []models.Message
	if err := db.Where("thread_id = ?", thread.ID).
		Order("created_at ASC").Limit(200).Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load_failed"})
	}

	now := time.Now()
	db.Model(&models.Message{}).
		Where("thread_id = ? AND sender_id <> ? AND read_at IS NULL", thread.ID, userCtx.UserID).
		Update("read_at", now)

	return c.JSON(fiber.Map{"thread": thread, "messages": messages})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// HandleMessageSend sends a DM to another user, creating the thread on
// first contact. Blocked pairs cannot message each other.
func HandleMessageSend(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	target, err := repository.GetGlobalFactory().User.GetByName(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if target.ID == userCtx.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_target"})
	}
	if isBlockedBy(userCtx.UserID, target.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "blocked"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_required"})
	}

	db := database.GetDB()
	a, b := models.NormalizeThreadPair(userCtx.UserID, target.ID)

	var thread models.MessageThread
	err = db.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&thread).Error
	if err != nil {
		thread = models.MessageThread{UUID: uuid.New().String(), UserAID: a, UserBID: b}
		if err := db.Create(&thread).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "thread_failed"})
		}
	}

	msg := models.Message{
		ThreadID: thread.ID,
		SenderID: userCtx.UserID,
		Content:  req.Content,
	}
	if err := db.Create(&msg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "send_failed"})
	}

	now := time.Now()
	db.Model(&thread).Update("last_message_at", now)

	if q := jobqueue.GetQueue(); q != nil {
		jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
			UserID:      target.ID,
			ActorID:     userCtx.UserID,
			Type:        models.NotificationTypeMessage,
			ReferenceID: thread.ID,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}
